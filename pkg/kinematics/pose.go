package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a Cartesian end-effector pose: a position in meters and a unit
// quaternion orientation, both expressed in the chain's base frame.
type Pose struct {
	Position    r3.Vector
	Orientation quat.Number
}

// IdentityOrientation is the quaternion with no rotation.
func IdentityOrientation() quat.Number {
	return quat.Number{Real: 1}
}

// NewPose returns a pose with the given position and identity orientation.
func NewPose(x, y, z float64) Pose {
	return Pose{Position: r3.Vector{X: x, Y: y, Z: z}, Orientation: IdentityOrientation()}
}

// PoseFromFrame extracts position and orientation from a homogeneous
// transform. The quaternion is normalized with w >= 0, and each of x, y, z and
// w is taken from its own component of the solved rotation.
func PoseFromFrame(m mgl64.Mat4) Pose {
	q := canonicalQuat(mgl64.Mat4ToQuat(m))
	return Pose{
		Position: r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)},
		Orientation: quat.Number{
			Real: q.W,
			Imag: q.V[0],
			Jmag: q.V[1],
			Kmag: q.V[2],
		},
	}
}

// Frame returns the homogeneous transform for p. The orientation is
// normalized first so a slightly denormalized quaternion still yields a
// proper rotation.
func (p Pose) Frame() mgl64.Mat4 {
	q := mgl64.Quat{
		W: p.Orientation.Real,
		V: mgl64.Vec3{p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag},
	}.Normalize()
	return mgl64.Translate3D(p.Position.X, p.Position.Y, p.Position.Z).Mul4(q.Mat4())
}

// ApproxEqual compares positions within posTol meters and orientations within
// rotTol radians of rotation.
func (p Pose) ApproxEqual(other Pose, posTol, rotTol float64) bool {
	if p.Position.Sub(other.Position).Norm() > posTol {
		return false
	}
	w := rotationVector(other.Frame().Mat3().Mul3(p.Frame().Mat3().Transpose()))
	return w.Len() <= rotTol
}

func canonicalQuat(q mgl64.Quat) mgl64.Quat {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	return q
}

// rotationVector returns axis*angle for r, with the angle in [0, pi].
func rotationVector(r mgl64.Mat3) mgl64.Vec3 {
	q := canonicalQuat(mgl64.Mat4ToQuat(r.Mat4()))
	s := q.V.Len()
	if s < 1e-12 {
		return q.V.Mul(2)
	}
	return q.V.Mul(2 * math.Atan2(s, q.W) / s)
}

// poseError is the 6-vector (linear, angular) that moves current onto
// target, expressed in the base frame.
func poseError(current, target mgl64.Mat4) [6]float64 {
	dp := target.Col(3).Vec3().Sub(current.Col(3).Vec3())
	w := rotationVector(target.Mat3().Mul3(current.Mat3().Transpose()))
	return [6]float64{dp[0], dp[1], dp[2], w[0], w[1], w[2]}
}
