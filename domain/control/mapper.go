package control

import (
	"github.com/pkg/errors"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

// JointMapper translates feedback messages into chain-ordered joint vectors.
//
// With no configured feedback order the first N positions are taken as-is.
// With a configured order, every chain joint must appear in it exactly once;
// that is checked when the mapper is built.
type JointMapper struct {
	chainNames    []string
	feedbackNames []string
	// index[i] is the message position of chain joint i.
	index []int
}

// NewJointMapper validates feedbackNames against chainNames.
func NewJointMapper(chainNames, feedbackNames []string) (*JointMapper, error) {
	m := &JointMapper{
		chainNames: append([]string(nil), chainNames...),
		index:      make([]int, len(chainNames)),
	}
	if len(feedbackNames) == 0 {
		for i := range m.index {
			m.index[i] = i
		}
		return m, nil
	}

	positions := make(map[string]int, len(feedbackNames))
	for i, name := range feedbackNames {
		if _, dup := positions[name]; dup {
			return nil, errors.Wrapf(kinematics.ErrInvalidInput, "feedback joint %q listed twice", name)
		}
		positions[name] = i
	}
	for i, name := range chainNames {
		p, ok := positions[name]
		if !ok {
			return nil, errors.Wrapf(kinematics.ErrInvalidInput, "chain joint %q missing from feedback joint names", name)
		}
		m.index[i] = p
	}
	m.feedbackNames = append([]string(nil), feedbackNames...)
	return m, nil
}

// Positional reports whether the mapper trusts message order.
func (m *JointMapper) Positional() bool {
	return m.feedbackNames == nil
}

// Map returns the chain-ordered joint vector for a feedback message. When the
// message carries names and the mapper is not positional, joints are located
// by name.
func (m *JointMapper) Map(names []string, positions []float64) ([]float64, error) {
	q := make([]float64, len(m.chainNames))

	if m.Positional() {
		if len(positions) < len(q) {
			return nil, errors.Wrapf(kinematics.ErrInvalidInput, "feedback has %d positions, need %d", len(positions), len(q))
		}
		copy(q, positions)
		return q, nil
	}

	if len(names) > 0 && !m.matchesConfiguredOrder(names) {
		return m.mapByName(names, positions)
	}

	for i, p := range m.index {
		if p >= len(positions) {
			return nil, errors.Wrapf(kinematics.ErrInvalidInput, "feedback has %d positions, joint %q is at %d", len(positions), m.chainNames[i], p)
		}
		q[i] = positions[p]
	}
	return q, nil
}

func (m *JointMapper) matchesConfiguredOrder(names []string) bool {
	for i, p := range m.index {
		if p >= len(names) || names[p] != m.chainNames[i] {
			return false
		}
	}
	return true
}

func (m *JointMapper) mapByName(names []string, positions []float64) ([]float64, error) {
	if len(names) != len(positions) {
		return nil, errors.Wrapf(kinematics.ErrInvalidInput, "feedback has %d names and %d positions", len(names), len(positions))
	}
	at := make(map[string]int, len(names))
	for i, name := range names {
		at[name] = i
	}
	q := make([]float64, len(m.chainNames))
	for i, name := range m.chainNames {
		p, ok := at[name]
		if !ok {
			return nil, errors.Wrapf(kinematics.ErrInvalidInput, "feedback is missing joint %q", name)
		}
		q[i] = positions[p]
	}
	return q, nil
}
