package kinematics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DampingConfig tunes the damped least-squares pseudo-inverse.
//
// Damping is applied only near a singularity: when the smallest singular value
// of the Jacobian drops below SingularThreshold, the damping factor grows
// smoothly from 0 to Lambda as that singular value approaches 0.
type DampingConfig struct {
	Lambda            float64
	SingularThreshold float64
}

// DefaultDamping is the damping used when none is configured.
var DefaultDamping = DampingConfig{Lambda: 0.05, SingularThreshold: 0.02}

// VelocitySolver maps a Cartesian twist to a joint-space correction through a
// damped pseudo-inverse of the Jacobian.
type VelocitySolver struct {
	chain   *Chain
	jac     *JacobianSolver
	damping DampingConfig
}

func NewVelocitySolver(chain *Chain, damping DampingConfig) *VelocitySolver {
	return &VelocitySolver{chain: chain, jac: NewJacobianSolver(chain), damping: damping}
}

// CartToJnt returns dq such that J(q)*dq approximates twist.
func (s *VelocitySolver) CartToJnt(q []float64, twist [6]float64) ([]float64, error) {
	if err := checkJointCount(s.chain, q); err != nil {
		return nil, err
	}
	jac, _ := s.jac.jacobianAt(q)
	return s.solve(jac, twist)
}

// solve computes dq = V * diag(s / (s^2 + lambda^2)) * U^T * twist from the
// thin SVD J = U * diag(s) * V^T.
func (s *VelocitySolver) solve(jac *mat.Dense, twist [6]float64) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(jac, mat.SVDThin); !ok {
		return nil, errors.Wrap(ErrInvalidInput, "jacobian SVD failed")
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	lambda2 := s.dampingFactor(values)

	dx := mat.NewVecDense(6, twist[:])
	var utx mat.VecDense
	utx.MulVec(u.T(), dx)
	for i, sigma := range values {
		denom := sigma*sigma + lambda2
		if denom < 1e-24 {
			utx.SetVec(i, 0)
			continue
		}
		utx.SetVec(i, utx.AtVec(i)*sigma/denom)
	}

	var dq mat.VecDense
	dq.MulVec(&v, &utx)
	out := make([]float64, dq.Len())
	for i := range out {
		out[i] = dq.AtVec(i)
	}
	return out, nil
}

func (s *VelocitySolver) dampingFactor(values []float64) float64 {
	if len(values) == 0 || s.damping.SingularThreshold <= 0 {
		return 0
	}
	// gonum returns singular values in descending order.
	smallest := values[len(values)-1]
	if smallest >= s.damping.SingularThreshold {
		return 0
	}
	ratio := smallest / s.damping.SingularThreshold
	return (1 - ratio*ratio) * s.damping.Lambda * s.damping.Lambda
}
