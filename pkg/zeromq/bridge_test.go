package zeromq

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/invkin/pkg/config"
	"github.com/open-teleop/invkin/pkg/kinematics"
	customlog "github.com/open-teleop/invkin/pkg/log"
	"github.com/open-teleop/invkin/pkg/processing"
	"github.com/open-teleop/invkin/pkg/wire"
)

type sentMessage struct {
	topic   string
	payload []byte
}

type recordingPublisher struct {
	sent    []sentMessage
	failOn  string
	failErr error
}

func (p *recordingPublisher) PublishMessage(topic string, payload []byte) error {
	if topic == p.failOn {
		return p.failErr
	}
	p.sent = append(p.sent, sentMessage{topic, payload})
	return nil
}

func newTestBridge(pub MessagePublisher) (*RobotBridge, *processing.TopicRegistry, *clock.Mock) {
	cfg := config.DefaultControlConfig()
	logger := customlog.NewDiscardLogger()
	registry := processing.NewTopicRegistry(logger)
	registry.LoadFromConfig(cfg)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewRobotBridge(pub, cfg.Topics, registry, mock, logger), registry, mock
}

func TestRobotBridgePublishPose(t *testing.T) {
	pub := &recordingPublisher{}
	bridge, registry, mock := newTestBridge(pub)

	pose := kinematics.NewPose(0.3, 0, 1)
	require.NoError(t, bridge.PublishPose(pose))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "lbr_iiwa/eef_pose", pub.sent[0].topic)

	decoded, stamp, err := wire.DecodePose(pub.sent[0].payload)
	require.NoError(t, err)
	assert.True(t, decoded.ApproxEqual(pose, 1e-12, 1e-12))
	assert.True(t, stamp.Equal(mock.Now()))

	info, _ := registry.GetTopicInfo("lbr_iiwa/eef_pose")
	assert.EqualValues(t, 1, info.MessageCount)
}

func TestRobotBridgePublishJointCommands(t *testing.T) {
	pub := &recordingPublisher{}
	bridge, _, _ := newTestBridge(pub)

	q := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	require.NoError(t, bridge.PublishJointCommands(q))
	require.Len(t, pub.sent, 7)
	for i, msg := range pub.sent {
		assert.Equal(t, config.DefaultControlConfig().Topics.JointCommands[i], msg.topic)
		v, err := wire.DecodeFloat64(msg.payload)
		require.NoError(t, err)
		assert.Equal(t, q[i], v)
	}

	err := bridge.PublishJointCommands(q[:3])
	assert.True(t, errors.Is(err, kinematics.ErrInvalidInput))
}

func TestRobotBridgePublishContinuesAfterFailure(t *testing.T) {
	pub := &recordingPublisher{
		failOn:  "lbr_iiwa/joint2_position_controller/command",
		failErr: errors.New("socket gone"),
	}
	bridge, registry, _ := newTestBridge(pub)

	err := bridge.PublishJointCommands(make([]float64, 7))
	require.Error(t, err)
	assert.Len(t, pub.sent, 6)

	info, _ := registry.GetTopicInfo("lbr_iiwa/joint2_position_controller/command")
	assert.EqualValues(t, 1, info.ErrorCount)
}

func TestRobotBridgeFeedbackHandler(t *testing.T) {
	bridge, registry, _ := newTestBridge(&recordingPublisher{})

	var gotNames []string
	var gotPositions []float64
	handler := bridge.FeedbackHandler(func(names []string, positions []float64) error {
		gotNames, gotPositions = names, positions
		return nil
	})

	payload := wire.EncodeJointState(wire.JointState{
		Names:     []string{"lbr_iiwa_joint_1", "lbr_iiwa_joint_2"},
		Positions: []float64{0.5, -0.5},
		Stamp:     time.Unix(10, 0),
	})
	require.NoError(t, handler(payload))
	assert.Equal(t, []string{"lbr_iiwa_joint_1", "lbr_iiwa_joint_2"}, gotNames)
	assert.Equal(t, []float64{0.5, -0.5}, gotPositions)

	err := handler([]byte{1, 2})
	assert.True(t, errors.Is(err, wire.ErrMalformed))

	bridge.RecordReceived("lbr_iiwa/joint_states", len(payload), nil)
	bridge.RecordReceived("lbr_iiwa/joint_states", 2, err)
	info, _ := registry.GetTopicInfo("lbr_iiwa/joint_states")
	assert.EqualValues(t, 1, info.MessageCount)
	assert.EqualValues(t, 1, info.ErrorCount)
}

func TestMessageDispatcher(t *testing.T) {
	d := NewMessageDispatcher(customlog.NewDiscardLogger())

	var got []byte
	d.RegisterHandler("a", func(payload []byte) error {
		got = payload
		return nil
	})

	require.NoError(t, d.Dispatch("a", []byte("x")))
	assert.Equal(t, []byte("x"), got)
	assert.Equal(t, []string{"a"}, d.Topics())
	assert.True(t, errors.Is(d.Dispatch("b", nil), ErrUnknownTopic))
}
