package wire

import flatbuffers "github.com/google/flatbuffers/go"

const (
	float64Data = iota
	float64NumFields
)

// EncodeFloat64 serializes a single scalar command.
func EncodeFloat64(v float64) []byte {
	b := flatbuffers.NewBuilder(32)
	b.StartObject(float64NumFields)
	b.PrependFloat64Slot(float64Data, v, 0)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

// DecodeFloat64 parses a Float64 table.
func DecodeFloat64(buf []byte) (v float64, err error) {
	defer recoverMalformed(&err)

	t, err := rootTable(buf)
	if err != nil {
		return 0, err
	}
	return float64Field(&t, float64Data), nil
}
