package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// JacobianSolver computes the 6xN geometric Jacobian of a chain. Rows 0-2 map
// joint velocities to linear tip velocity, rows 3-5 to angular velocity, both
// in the base frame with the reference point at the tip.
type JacobianSolver struct {
	chain *Chain
}

func NewJacobianSolver(chain *Chain) *JacobianSolver {
	return &JacobianSolver{chain: chain}
}

// JntToJac returns the Jacobian at q.
func (s *JacobianSolver) JntToJac(q []float64) (*mat.Dense, error) {
	if err := checkJointCount(s.chain, q); err != nil {
		return nil, err
	}
	jac, _ := s.jacobianAt(q)
	return jac, nil
}

// jacobianAt returns the Jacobian together with the tip frame, which the
// position solver needs on every iteration. q must already be validated.
func (s *JacobianSolver) jacobianAt(q []float64) (*mat.Dense, mgl64.Mat4) {
	n := s.chain.NumJoints()
	axes := make([]mgl64.Vec3, 0, n)
	origins := make([]mgl64.Vec3, 0, n)
	types := make([]JointType, 0, n)

	frame := mgl64.Ident4()
	i := 0
	for _, j := range s.chain.joints {
		frame = frame.Mul4(j.Origin)
		if !j.Movable() {
			continue
		}
		axes = append(axes, frame.Mat3().Mul3x1(j.Axis))
		origins = append(origins, frame.Col(3).Vec3())
		types = append(types, j.Type)
		frame = frame.Mul4(j.motion(q[i]))
		i++
	}

	tip := frame.Col(3).Vec3()
	jac := mat.NewDense(6, n, nil)
	for c, z := range axes {
		if types[c] == Prismatic {
			jac.Set(0, c, z[0])
			jac.Set(1, c, z[1])
			jac.Set(2, c, z[2])
			continue
		}
		v := z.Cross(tip.Sub(origins[c]))
		jac.Set(0, c, v[0])
		jac.Set(1, c, v[1])
		jac.Set(2, c, v[2])
		jac.Set(3, c, z[0])
		jac.Set(4, c, z[1])
		jac.Set(5, c, z[2])
	}
	return jac, frame
}
