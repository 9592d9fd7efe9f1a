package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
)

// IKConfig holds the Newton-Raphson position solver parameters.
type IKConfig struct {
	MaxIterations int
	// Tolerance bounds every component of the pose error twist: meters for
	// the linear part, radians for the angular part.
	Tolerance          float64
	Damping            DampingConfig
	EnforceJointLimits bool
}

// DefaultIKConfig returns the solver parameters used by the controller.
func DefaultIKConfig() IKConfig {
	return IKConfig{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Damping:       DefaultDamping,
	}
}

// Solution is the outcome of an inverse kinematics solve. On convergence
// failure Joints holds the last estimate.
type Solution struct {
	Joints     []float64
	Iterations int
	// Residual is the Euclidean norm of the final pose error twist.
	Residual float64
}

// IKSolver solves position inverse kinematics by Newton-Raphson iteration on
// top of a damped least-squares velocity solver.
type IKSolver struct {
	chain *Chain
	fk    *FKSolver
	vel   *VelocitySolver
	cfg   IKConfig
}

// NewIKSolver returns a solver for chain. Non-positive MaxIterations or
// Tolerance fall back to the defaults.
func NewIKSolver(chain *Chain, cfg IKConfig) *IKSolver {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &IKSolver{
		chain: chain,
		fk:    NewFKSolver(chain),
		vel:   NewVelocitySolver(chain, cfg.Damping),
		cfg:   cfg,
	}
}

// Config returns the parameters the solver runs with.
func (s *IKSolver) Config() IKConfig {
	return s.cfg
}

// CartToJnt iterates from qInit towards target. It returns ErrInvalidInput
// for a joint vector of the wrong length and ErrConvergenceFailure, along with
// the last estimate, when MaxIterations is exhausted.
func (s *IKSolver) CartToJnt(qInit []float64, target Pose) (Solution, error) {
	if err := checkJointCount(s.chain, qInit); err != nil {
		return Solution{}, err
	}

	q := make([]float64, len(qInit))
	copy(q, qInit)
	goal := target.Frame()

	var residual float64
	for i := 0; i < s.cfg.MaxIterations; i++ {
		jac, frame := s.vel.jac.jacobianAt(q)
		twist := poseError(frame, goal)
		residual = floats.Norm(twist[:], 2)
		if withinTolerance(twist, s.cfg.Tolerance) {
			return Solution{Joints: q, Iterations: i, Residual: residual}, nil
		}

		dq, err := s.vel.solve(jac, twist)
		if err != nil {
			return Solution{Joints: q, Iterations: i, Residual: residual}, err
		}
		for k := range q {
			q[k] += dq[k]
		}
		if s.cfg.EnforceJointLimits {
			s.chain.ClampToLimits(q)
		}
	}

	if frame, err := s.fk.JntToFrame(q); err == nil {
		twist := poseError(frame, goal)
		residual = floats.Norm(twist[:], 2)
	}
	return Solution{Joints: q, Iterations: s.cfg.MaxIterations, Residual: residual},
		errors.Wrapf(ErrConvergenceFailure, "residual %.3g after %d iterations", residual, s.cfg.MaxIterations)
}

func withinTolerance(twist [6]float64, eps float64) bool {
	for _, v := range twist {
		if math.Abs(v) >= eps {
			return false
		}
	}
	return true
}
