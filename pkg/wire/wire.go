// Package wire encodes the controller's transport payloads as FlatBuffers
// tables.
//
// The schemas, in FlatBuffers IDL:
//
//	table JointState { names:[string]; positions:[double]; stamp:long; }
//	table Pose { x:double; y:double; z:double; qw:double; qx:double; qy:double; qz:double; stamp:long; }
//	table Float64 { data:double; }
//
// stamp is Unix time in nanoseconds.
package wire

import (
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/pkg/errors"
)

// ErrMalformed reports a payload that is not a valid table of the expected type.
var ErrMalformed = errors.New("malformed payload")

// field slot -> vtable offset
func slot(i int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*i)
}

func rootTable(buf []byte) (flatbuffers.Table, error) {
	if len(buf) < 2*flatbuffers.SizeUOffsetT {
		return flatbuffers.Table{}, errors.Wrapf(ErrMalformed, "%d bytes is too short", len(buf))
	}
	n := flatbuffers.GetUOffsetT(buf)
	if int(n) >= len(buf) {
		return flatbuffers.Table{}, errors.Wrapf(ErrMalformed, "root offset %d out of range", n)
	}
	return flatbuffers.Table{Bytes: buf, Pos: n}, nil
}

// recoverMalformed turns an out-of-range read on a corrupt buffer into
// ErrMalformed.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = errors.Wrapf(ErrMalformed, "%v", r)
	}
}

func float64Field(t *flatbuffers.Table, i int) float64 {
	if o := flatbuffers.UOffsetT(t.Offset(slot(i))); o != 0 {
		return t.GetFloat64(o + t.Pos)
	}
	return 0
}

func stampField(t *flatbuffers.Table, i int) time.Time {
	if o := flatbuffers.UOffsetT(t.Offset(slot(i))); o != 0 {
		return time.Unix(0, t.GetInt64(o+t.Pos))
	}
	return time.Time{}
}

func stampValue(stamp time.Time) int64 {
	if stamp.IsZero() {
		return 0
	}
	return stamp.UnixNano()
}

// vectorAt returns the start and length of the vector at field offset o,
// rejecting lengths that would run past the end of the buffer.
func vectorAt(t *flatbuffers.Table, o flatbuffers.UOffsetT, elemSize int) (flatbuffers.UOffsetT, int, error) {
	n := t.VectorLen(o)
	a := t.Vector(o)
	if n < 0 || int(a) > len(t.Bytes) || n > (len(t.Bytes)-int(a))/elemSize {
		return 0, 0, errors.Wrapf(ErrMalformed, "vector of %d elements overruns %d byte buffer", n, len(t.Bytes))
	}
	return a, n, nil
}

// stringAt reads the string referenced by the offset stored at pos.
func stringAt(t *flatbuffers.Table, pos flatbuffers.UOffsetT) (string, error) {
	start := int(pos) + int(flatbuffers.GetUOffsetT(t.Bytes[pos:]))
	if start+flatbuffers.SizeUOffsetT > len(t.Bytes) {
		return "", errors.Wrapf(ErrMalformed, "string offset %d out of range", start)
	}
	body := start + flatbuffers.SizeUOffsetT
	n := int(flatbuffers.GetUOffsetT(t.Bytes[start:]))
	if n > len(t.Bytes)-body {
		return "", errors.Wrapf(ErrMalformed, "string of %d bytes overruns buffer", n)
	}
	return string(t.Bytes[body : body+n]), nil
}
