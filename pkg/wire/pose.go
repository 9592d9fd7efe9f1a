package wire

import (
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

const (
	poseX = iota
	poseY
	poseZ
	poseQW
	poseQX
	poseQY
	poseQZ
	poseStamp
	poseNumFields
)

// EncodePose serializes an end-effector pose.
func EncodePose(p kinematics.Pose, stamp time.Time) []byte {
	b := flatbuffers.NewBuilder(96)
	b.StartObject(poseNumFields)
	b.PrependFloat64Slot(poseX, p.Position.X, 0)
	b.PrependFloat64Slot(poseY, p.Position.Y, 0)
	b.PrependFloat64Slot(poseZ, p.Position.Z, 0)
	b.PrependFloat64Slot(poseQW, p.Orientation.Real, 0)
	b.PrependFloat64Slot(poseQX, p.Orientation.Imag, 0)
	b.PrependFloat64Slot(poseQY, p.Orientation.Jmag, 0)
	b.PrependFloat64Slot(poseQZ, p.Orientation.Kmag, 0)
	b.PrependInt64Slot(poseStamp, stampValue(stamp), 0)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

// DecodePose parses a Pose table.
func DecodePose(buf []byte) (p kinematics.Pose, stamp time.Time, err error) {
	defer recoverMalformed(&err)

	t, err := rootTable(buf)
	if err != nil {
		return kinematics.Pose{}, time.Time{}, err
	}
	p = kinematics.Pose{
		Position: r3.Vector{
			X: float64Field(&t, poseX),
			Y: float64Field(&t, poseY),
			Z: float64Field(&t, poseZ),
		},
		Orientation: quat.Number{
			Real: float64Field(&t, poseQW),
			Imag: float64Field(&t, poseQX),
			Jmag: float64Field(&t, poseQY),
			Kmag: float64Field(&t, poseQZ),
		},
	}
	return p, stampField(&t, poseStamp), nil
}
