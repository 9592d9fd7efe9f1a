package zeromq

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/open-teleop/invkin/pkg/config"
	"github.com/open-teleop/invkin/pkg/kinematics"
	customlog "github.com/open-teleop/invkin/pkg/log"
	"github.com/open-teleop/invkin/pkg/processing"
	"github.com/open-teleop/invkin/pkg/wire"
)

// MessagePublisher sends a raw payload on a topic.
type MessagePublisher interface {
	PublishMessage(topic string, payload []byte) error
}

// RobotBridge encodes controller output into wire messages and decodes joint
// feedback. Every message it sends or receives is counted in the registry.
type RobotBridge struct {
	publisher MessagePublisher
	topics    config.TopicsConfig
	registry  *processing.TopicRegistry
	clock     clock.Clock
	logger    customlog.Logger
}

// NewRobotBridge creates a bridge publishing through publisher.
func NewRobotBridge(publisher MessagePublisher, topics config.TopicsConfig, registry *processing.TopicRegistry,
	clk clock.Clock, logger customlog.Logger) *RobotBridge {
	return &RobotBridge{
		publisher: publisher,
		topics:    topics,
		registry:  registry,
		clock:     clk,
		logger:    logger,
	}
}

// PublishPose sends the end-effector pose.
func (b *RobotBridge) PublishPose(pose kinematics.Pose) error {
	now := b.clock.Now()
	return b.send(b.topics.EEFPose, wire.EncodePose(pose, now))
}

// PublishJointCommands sends one Float64 command per joint on its own topic.
// All joints are attempted even if one fails.
func (b *RobotBridge) PublishJointCommands(q []float64) error {
	if len(q) != len(b.topics.JointCommands) {
		return errors.Wrapf(kinematics.ErrInvalidInput, "%d commands for %d command topics", len(q), len(b.topics.JointCommands))
	}

	var err error
	for i, topic := range b.topics.JointCommands {
		err = multierr.Append(err, b.send(topic, wire.EncodeFloat64(q[i])))
	}
	return err
}

func (b *RobotBridge) send(topic string, payload []byte) error {
	if err := b.publisher.PublishMessage(topic, payload); err != nil {
		b.registry.RecordError(topic)
		return errors.Wrapf(err, "publish on %s", topic)
	}
	b.registry.UpdateTopicStats(topic, len(payload), b.clock.Now())
	return nil
}

// FeedbackHandler returns a handler decoding JointState payloads and passing
// them to ingest.
func (b *RobotBridge) FeedbackHandler(ingest func(names []string, positions []float64) error) HandlerFunc {
	return func(payload []byte) error {
		js, err := wire.DecodeJointState(payload)
		if err != nil {
			return err
		}
		return ingest(js.Names, js.Positions)
	}
}

// RecordReceived counts a received message. It matches the ZeroMQService
// OnMessage hook.
func (b *RobotBridge) RecordReceived(topic string, size int, err error) {
	if err != nil {
		b.registry.RecordError(topic)
		return
	}
	b.registry.UpdateTopicStats(topic, size, b.clock.Now())
}
