package control

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/open-teleop/invkin/pkg/config"
	"github.com/open-teleop/invkin/pkg/kinematics"
)

// Trajectory produces the desired end-effector pose at elapsed tracking time t.
type Trajectory interface {
	At(t float64) kinematics.Pose
}

// CircularTrajectory is a horizontal circle of Radius at Height, centred on
// the base z axis, with angular argument t/TimeScale and a fixed orientation.
type CircularTrajectory struct {
	Radius      float64
	Height      float64
	TimeScale   float64
	Orientation quat.Number
}

var _ Trajectory = CircularTrajectory{}

// NewCircularTrajectory builds the trajectory from configuration.
func NewCircularTrajectory(cfg config.TrajectoryConfig) CircularTrajectory {
	o := kinematics.IdentityOrientation()
	if len(cfg.Orientation) == 4 {
		o = quat.Number{Real: cfg.Orientation[0], Imag: cfg.Orientation[1], Jmag: cfg.Orientation[2], Kmag: cfg.Orientation[3]}
	}
	return CircularTrajectory{
		Radius:      cfg.Radius,
		Height:      cfg.Height,
		TimeScale:   cfg.TimeScale,
		Orientation: o,
	}
}

func (c CircularTrajectory) At(t float64) kinematics.Pose {
	a := t / c.TimeScale
	return kinematics.Pose{
		Position:    r3.Vector{X: c.Radius * math.Cos(a), Y: c.Radius * math.Sin(a), Z: c.Height},
		Orientation: c.Orientation,
	}
}

// Period is the elapsed time of one full revolution, 2*pi*TimeScale.
func (c CircularTrajectory) Period() float64 {
	return 2 * math.Pi * c.TimeScale
}
