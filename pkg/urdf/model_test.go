package urdf

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

var iiwaPath = filepath.Join("..", "..", "config", "lbr_iiwa.urdf")

const gripperDoc = `<?xml version="1.0"?>
<robot name="slide">
  <link name="base"/>
  <link name="carriage"/>
  <link name="wrist"/>
  <link name="flange"/>
  <link name="loose"/>
  <joint name="slide" type="prismatic">
    <parent link="base"/>
    <child link="carriage"/>
    <axis xyz="0 0 1"/>
    <limit lower="0" upper="0.5"/>
  </joint>
  <joint name="spin" type="continuous">
    <parent link="carriage"/>
    <child link="wrist"/>
    <origin xyz="0.1 0 0"/>
  </joint>
  <joint name="mount" type="fixed">
    <parent link="wrist"/>
    <child link="flange"/>
    <origin xyz="0 0 0.05" rpy="0 0 0"/>
  </joint>
</robot>`

func TestLoadIiwaChain(t *testing.T) {
	chain, err := LoadChainFile(iiwaPath, "lbr_iiwa_link_0", "lbr_iiwa_link_7")
	require.NoError(t, err)

	assert.Equal(t, 7, chain.NumJoints())
	assert.Equal(t, 7, chain.NumSegments())
	assert.Equal(t, "lbr_iiwa_link_0", chain.Base())
	assert.Equal(t, "lbr_iiwa_link_7", chain.Tip())

	names := chain.JointNames()
	require.Len(t, names, 7)
	assert.Equal(t, "lbr_iiwa_joint_1", names[0])
	assert.Equal(t, "lbr_iiwa_joint_7", names[6])

	for _, j := range chain.Joints() {
		require.NotNil(t, j.Limits, "joint %s", j.Name)
		assert.Equal(t, kinematics.Revolute, j.Type)
	}
}

func TestChainFromWorldIncludesFixedJoint(t *testing.T) {
	chain, err := LoadChainFile(iiwaPath, "world", "lbr_iiwa_link_7")
	require.NoError(t, err)
	assert.Equal(t, 7, chain.NumJoints())
	assert.Equal(t, 8, chain.NumSegments())
}

func TestChainDefaultsAndJointTypes(t *testing.T) {
	chain, err := LoadChain([]byte(gripperDoc), "base", "flange")
	require.NoError(t, err)
	require.Equal(t, 2, chain.NumJoints())
	require.Equal(t, 3, chain.NumSegments())

	joints := chain.Joints()
	assert.Equal(t, kinematics.Prismatic, joints[0].Type)
	assert.Equal(t, kinematics.Continuous, joints[1].Type)
	assert.Nil(t, joints[1].Limits)
	assert.InDelta(t, 1.0, joints[1].Axis[0], 1e-12, "continuous joint should take the URDF default x axis")
	assert.Equal(t, kinematics.Fixed, joints[2].Type)

	fk := kinematics.NewFKSolver(chain)
	pose, err := fk.JntToCart([]float64{0.2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, pose.Position.X, 1e-12)
	assert.InDelta(t, 0.25, pose.Position.Z, 1e-12)
}

func TestLoadChainErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		base string
		tip  string
	}{
		{name: "malformed xml", doc: "<robot><link", base: "base", tip: "flange"},
		{name: "missing tip", doc: gripperDoc, base: "base", tip: "tool0"},
		{name: "missing base", doc: gripperDoc, base: "world", tip: "flange"},
		{name: "disconnected", doc: gripperDoc, base: "base", tip: "loose"},
		{name: "reversed", doc: gripperDoc, base: "flange", tip: "base"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadChain([]byte(tc.doc), tc.base, tc.tip)
			require.Error(t, err)
			assert.True(t, errors.Is(err, kinematics.ErrModelLoad), "got %v", err)
		})
	}
}

func TestLoadChainFileMissing(t *testing.T) {
	_, err := LoadChainFile(filepath.Join(t.TempDir(), "nope.urdf"), "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kinematics.ErrModelLoad))
}

func TestParseVector(t *testing.T) {
	v, err := parseVector(" 0.1  -2 3e-1 ")
	require.NoError(t, err)
	assert.Equal(t, 0.1, v.X)
	assert.Equal(t, -2.0, v.Y)
	assert.Equal(t, 0.3, v.Z)

	_, err = parseVector("1 2")
	assert.Error(t, err)
	_, err = parseVector("1 two 3")
	assert.Error(t, err)
}
