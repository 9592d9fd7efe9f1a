package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// JointType is the motion a joint allows about or along its axis.
type JointType int

const (
	Fixed JointType = iota
	Revolute
	Continuous
	Prismatic
)

func (t JointType) String() string {
	switch t {
	case Revolute:
		return "revolute"
	case Continuous:
		return "continuous"
	case Prismatic:
		return "prismatic"
	default:
		return "fixed"
	}
}

// ParseJointType maps a URDF joint type attribute onto a JointType.
func ParseJointType(s string) (JointType, error) {
	switch s {
	case "fixed":
		return Fixed, nil
	case "revolute":
		return Revolute, nil
	case "continuous":
		return Continuous, nil
	case "prismatic":
		return Prismatic, nil
	}
	return Fixed, errors.Errorf("unsupported joint type %q", s)
}

// Limits bounds a joint position.
type Limits struct {
	Lower float64
	Upper float64
}

// Joint is one element of a chain: a fixed origin transform from the parent
// link, followed by motion about (or along) Axis expressed in the joint frame.
type Joint struct {
	Name   string
	Type   JointType
	Parent string
	Child  string
	Origin mgl64.Mat4
	Axis   mgl64.Vec3
	// Limits is nil for continuous and fixed joints.
	Limits *Limits
}

// Movable reports whether the joint consumes an entry of the joint vector.
func (j Joint) Movable() bool {
	return j.Type != Fixed
}

func (j Joint) motion(q float64) mgl64.Mat4 {
	switch j.Type {
	case Revolute, Continuous:
		return mgl64.HomogRotate3D(q, j.Axis)
	case Prismatic:
		d := j.Axis.Mul(q)
		return mgl64.Translate3D(d[0], d[1], d[2])
	default:
		return mgl64.Ident4()
	}
}

// OriginFrame builds a joint origin from a translation and URDF fixed-axis
// roll/pitch/yaw angles (R = Rz(yaw) * Ry(pitch) * Rx(roll)).
func OriginFrame(xyz r3.Vector, roll, pitch, yaw float64) mgl64.Mat4 {
	rot := mgl64.HomogRotate3DZ(yaw).Mul4(mgl64.HomogRotate3DY(pitch)).Mul4(mgl64.HomogRotate3DX(roll))
	return mgl64.Translate3D(xyz.X, xyz.Y, xyz.Z).Mul4(rot)
}

// Chain is an ordered, immutable sequence of joints from a base link to a tip
// link. It is safe for concurrent use once built.
type Chain struct {
	base   string
	tip    string
	joints []Joint
	names  []string
}

// NewChain validates joints and returns the chain. Movable joints must carry a
// non-zero axis; the axis is normalized.
func NewChain(base, tip string, joints []Joint) (*Chain, error) {
	c := &Chain{base: base, tip: tip, joints: make([]Joint, len(joints))}
	for i, j := range joints {
		if j.Movable() {
			if j.Axis.Len() < 1e-12 {
				return nil, errors.Wrapf(ErrInvalidInput, "joint %q has a zero axis", j.Name)
			}
			j.Axis = j.Axis.Normalize()
			c.names = append(c.names, j.Name)
		}
		if j.Limits != nil && j.Limits.Lower > j.Limits.Upper {
			return nil, errors.Wrapf(ErrInvalidInput, "joint %q has lower limit above upper limit", j.Name)
		}
		c.joints[i] = j
	}
	return c, nil
}

// Base is the name of the link the chain starts from.
func (c *Chain) Base() string { return c.base }

// Tip is the name of the end-effector link.
func (c *Chain) Tip() string { return c.tip }

// NumJoints is the number of movable joints, i.e. the joint vector length.
func (c *Chain) NumJoints() int { return len(c.names) }

// NumSegments counts every joint in the chain, fixed ones included.
func (c *Chain) NumSegments() int { return len(c.joints) }

// JointNames returns the movable joint names in chain order.
func (c *Chain) JointNames() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Joints returns a copy of every joint in chain order.
func (c *Chain) Joints() []Joint {
	joints := make([]Joint, len(c.joints))
	copy(joints, c.joints)
	return joints
}

// ClampToLimits clamps q in place to the limits of each movable joint.
func (c *Chain) ClampToLimits(q []float64) {
	i := 0
	for _, j := range c.joints {
		if !j.Movable() {
			continue
		}
		if j.Limits != nil && i < len(q) {
			q[i] = math.Max(j.Limits.Lower, math.Min(j.Limits.Upper, q[i]))
		}
		i++
	}
}

// WithinLimits reports whether every entry of q respects its joint limits.
func (c *Chain) WithinLimits(q []float64) bool {
	i := 0
	for _, j := range c.joints {
		if !j.Movable() {
			continue
		}
		if j.Limits != nil && i < len(q) && (q[i] < j.Limits.Lower || q[i] > j.Limits.Upper) {
			return false
		}
		i++
	}
	return true
}
