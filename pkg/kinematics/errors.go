package kinematics

import "github.com/pkg/errors"

var (
	// ErrInvalidInput reports a joint vector whose length does not match the
	// chain, or a chain that cannot be evaluated. It is a programming error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConvergenceFailure is returned by IKSolver when the iteration cap is
	// reached before the pose error falls below tolerance.
	ErrConvergenceFailure = errors.New("inverse kinematics did not converge")

	// ErrModelLoad reports that no chain could be built from a robot description.
	ErrModelLoad = errors.New("model load failed")
)

func checkJointCount(c *Chain, q []float64) error {
	if len(q) != c.NumJoints() {
		return errors.Wrapf(ErrInvalidInput, "expected %d joint values, got %d", c.NumJoints(), len(q))
	}
	return nil
}
