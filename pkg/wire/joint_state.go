package wire

import (
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
)

const (
	jointStateNames = iota
	jointStatePositions
	jointStateStamp
	jointStateNumFields
)

// JointState is a joint feedback message. Names may be empty, in which case
// positions are in chain order.
type JointState struct {
	Names     []string
	Positions []float64
	Stamp     time.Time
}

// EncodeJointState serializes js.
func EncodeJointState(js JointState) []byte {
	b := flatbuffers.NewBuilder(64 + 16*len(js.Positions))

	var namesVec flatbuffers.UOffsetT
	if len(js.Names) > 0 {
		offsets := make([]flatbuffers.UOffsetT, len(js.Names))
		for i, name := range js.Names {
			offsets[i] = b.CreateString(name)
		}
		b.StartVector(flatbuffers.SizeUOffsetT, len(offsets), flatbuffers.SizeUOffsetT)
		for i := len(offsets) - 1; i >= 0; i-- {
			b.PrependUOffsetT(offsets[i])
		}
		namesVec = b.EndVector(len(offsets))
	}

	b.StartVector(flatbuffers.SizeFloat64, len(js.Positions), flatbuffers.SizeFloat64)
	for i := len(js.Positions) - 1; i >= 0; i-- {
		b.PrependFloat64(js.Positions[i])
	}
	positionsVec := b.EndVector(len(js.Positions))

	b.StartObject(jointStateNumFields)
	if len(js.Names) > 0 {
		b.PrependUOffsetTSlot(jointStateNames, namesVec, 0)
	}
	b.PrependUOffsetTSlot(jointStatePositions, positionsVec, 0)
	b.PrependInt64Slot(jointStateStamp, stampValue(js.Stamp), 0)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

// DecodeJointState parses a JointState table.
func DecodeJointState(buf []byte) (js JointState, err error) {
	defer recoverMalformed(&err)

	t, err := rootTable(buf)
	if err != nil {
		return JointState{}, err
	}

	if o := flatbuffers.UOffsetT(t.Offset(slot(jointStateNames))); o != 0 {
		a, n, err := vectorAt(&t, o, flatbuffers.SizeUOffsetT)
		if err != nil {
			return JointState{}, err
		}
		js.Names = make([]string, n)
		for i := 0; i < n; i++ {
			if js.Names[i], err = stringAt(&t, a+flatbuffers.UOffsetT(i*flatbuffers.SizeUOffsetT)); err != nil {
				return JointState{}, err
			}
		}
	}
	if o := flatbuffers.UOffsetT(t.Offset(slot(jointStatePositions))); o != 0 {
		a, n, err := vectorAt(&t, o, flatbuffers.SizeFloat64)
		if err != nil {
			return JointState{}, err
		}
		js.Positions = make([]float64, n)
		for i := 0; i < n; i++ {
			js.Positions[i] = t.GetFloat64(a + flatbuffers.UOffsetT(i*flatbuffers.SizeFloat64))
		}
	}
	js.Stamp = stampField(&t, jointStateStamp)
	return js, nil
}
