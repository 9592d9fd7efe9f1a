package control

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

var chainNames = []string{"a", "b", "c"}

func TestJointMapperPositional(t *testing.T) {
	m, err := NewJointMapper(chainNames, nil)
	require.NoError(t, err)
	assert.True(t, m.Positional())

	q, err := m.Map([]string{"x", "y", "z", "w"}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, q)

	_, err = m.Map(nil, []float64{1, 2})
	assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))
}

func TestJointMapperConfiguredOrder(t *testing.T) {
	m, err := NewJointMapper(chainNames, []string{"c", "extra", "a", "b"})
	require.NoError(t, err)
	assert.False(t, m.Positional())

	q, err := m.Map(nil, []float64{3, 0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, q)

	q, err = m.Map([]string{"c", "extra", "a", "b"}, []float64{3, 0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, q)
}

func TestJointMapperFallsBackToNames(t *testing.T) {
	m, err := NewJointMapper(chainNames, []string{"a", "b", "c"})
	require.NoError(t, err)

	q, err := m.Map([]string{"b", "c", "a"}, []float64{2, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, q)

	_, err = m.Map([]string{"b", "c", "d"}, []float64{2, 3, 1})
	assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))

	_, err = m.Map([]string{"b", "c", "a"}, []float64{2, 3})
	assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))
}

func TestJointMapperValidation(t *testing.T) {
	tests := []struct {
		name     string
		feedback []string
	}{
		{"duplicate", []string{"a", "a", "b", "c"}},
		{"missing", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJointMapper(chainNames, tt.feedback)
			require.Error(t, err)
			assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))
		})
	}
}
