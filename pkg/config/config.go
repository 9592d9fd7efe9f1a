package config

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Topic directions relative to the controller.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Operator confirmation sources.
const (
	OperatorSourceStdin = "stdin"
	OperatorSourceHTTP  = "http"
)

// ControlConfig is the operational configuration of the kinematic controller.
// Every field has a default; a file only needs to list what it overrides.
type ControlConfig struct {
	Version    string           `yaml:"version" json:"version"`
	RobotID    string           `yaml:"robot_id" json:"robot_id"`
	Robot      RobotConfig      `yaml:"robot" json:"robot"`
	Rates      RatesConfig      `yaml:"rates" json:"rates"`
	IK         IKConfig         `yaml:"ik" json:"ik"`
	Homing     HomingConfig     `yaml:"homing" json:"homing"`
	Trajectory TrajectoryConfig `yaml:"trajectory" json:"trajectory"`
	Operator   OperatorConfig   `yaml:"operator" json:"operator"`
	Topics     TopicsConfig     `yaml:"topics" json:"topics"`
}

// RobotConfig names the chain and the joint order used by the feedback source.
type RobotConfig struct {
	BaseLink string `yaml:"base_link" json:"base_link"`
	TipLink  string `yaml:"tip_link" json:"tip_link"`
	// FeedbackJointNames is the order in which joint state messages list
	// joints. Empty means the first N entries follow chain order.
	FeedbackJointNames []string `yaml:"feedback_joint_names" json:"feedback_joint_names"`
}

// RatesConfig holds loop frequencies.
type RatesConfig struct {
	PoseEstimationHz   float64 `yaml:"pose_estimation_hz" json:"pose_estimation_hz"`
	TrackingMultiplier int     `yaml:"tracking_multiplier" json:"tracking_multiplier"`
}

// TrackingHz is the tracking loop frequency.
func (r RatesConfig) TrackingHz() float64 {
	return r.PoseEstimationHz * float64(r.TrackingMultiplier)
}

// IKConfig holds inverse kinematics solver parameters.
type IKConfig struct {
	MaxIterations      int     `yaml:"max_iterations" json:"max_iterations"`
	Tolerance          float64 `yaml:"tolerance" json:"tolerance"`
	Damping            float64 `yaml:"damping" json:"damping"`
	SingularThreshold  float64 `yaml:"singular_threshold" json:"singular_threshold"`
	EnforceJointLimits bool    `yaml:"enforce_joint_limits" json:"enforce_joint_limits"`
}

// HomingConfig holds the homing posture and its convergence criteria.
type HomingConfig struct {
	Target         []float64 `yaml:"target" json:"target"`
	Threshold      float64   `yaml:"threshold" json:"threshold"`
	PollHz         float64   `yaml:"poll_hz" json:"poll_hz"`
	SettleSeconds  float64   `yaml:"settle_seconds" json:"settle_seconds"`
	TimeoutSeconds float64   `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// TrajectoryConfig parametrizes the circular reference path.
type TrajectoryConfig struct {
	Radius    float64 `yaml:"radius" json:"radius"`
	Height    float64 `yaml:"height" json:"height"`
	TimeScale float64 `yaml:"time_scale" json:"time_scale"`
	// Orientation is w, x, y, z.
	Orientation []float64 `yaml:"orientation" json:"orientation"`
}

// OperatorConfig controls how the start of tracking is confirmed.
type OperatorConfig struct {
	Sources        []string `yaml:"sources" json:"sources"`
	Prompt         string   `yaml:"prompt" json:"prompt"`
	TimeoutSeconds float64  `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// HasSource reports whether name is one of the configured sources.
func (o OperatorConfig) HasSource(name string) bool {
	for _, s := range o.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// TopicsConfig names the transport topics.
type TopicsConfig struct {
	JointStates   string   `yaml:"joint_states" json:"joint_states"`
	EEFPose       string   `yaml:"eef_pose" json:"eef_pose"`
	JointCommands []string `yaml:"joint_commands" json:"joint_commands"`
}

// TopicMapping describes one transport topic.
type TopicMapping struct {
	TopicID     string `yaml:"topic_id" json:"topic_id"`
	Topic       string `yaml:"topic" json:"topic"`
	MessageType string `yaml:"message_type" json:"message_type"`
	Direction   string `yaml:"direction" json:"direction"`
}

// DefaultControlConfig returns the reference behaviour of the controller.
func DefaultControlConfig() *ControlConfig {
	commands := make([]string, 7)
	for i := range commands {
		commands[i] = fmt.Sprintf("lbr_iiwa/joint%d_position_controller/command", i+1)
	}
	return &ControlConfig{
		Version: "1.0",
		RobotID: "lbr_iiwa",
		Robot: RobotConfig{
			BaseLink: "lbr_iiwa_link_0",
			TipLink:  "lbr_iiwa_link_7",
		},
		Rates: RatesConfig{
			PoseEstimationHz:   50,
			TrackingMultiplier: 4,
		},
		IK: IKConfig{
			MaxIterations:     100,
			Tolerance:         1e-6,
			Damping:           0.05,
			SingularThreshold: 0.02,
		},
		Homing: HomingConfig{
			Target:        []float64{0, 1.57, 0, 1.57, 0, 0, 0},
			Threshold:     0.002,
			PollHz:        10,
			SettleSeconds: 2,
		},
		Trajectory: TrajectoryConfig{
			Radius:      0.3,
			Height:      1.0,
			TimeScale:   2 * math.Pi,
			Orientation: []float64{1, 0, 0, 0},
		},
		Operator: OperatorConfig{
			Sources: []string{OperatorSourceStdin, OperatorSourceHTTP},
			Prompt:  "Press enter to start the trajectory execution",
		},
		Topics: TopicsConfig{
			JointStates:   "lbr_iiwa/joint_states",
			EEFPose:       "lbr_iiwa/eef_pose",
			JointCommands: commands,
		},
	}
}

// LoadControlConfig reads path over the defaults and validates the result.
func LoadControlConfig(path string) (*ControlConfig, error) {
	data, err := readExpanded(path)
	if err != nil {
		return nil, fmt.Errorf("error reading control config file: %w", err)
	}
	return ParseControlConfig(data)
}

// ParseControlConfig decodes YAML over the defaults and validates the result.
func ParseControlConfig(data []byte) (*ControlConfig, error) {
	cfg := DefaultControlConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing control config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and internal consistency. It cannot check the
// joint count against the chain; the controller does that at startup.
func (c *ControlConfig) Validate() error {
	switch {
	case c.Robot.BaseLink == "" || c.Robot.TipLink == "":
		return fmt.Errorf("invalid control config: robot.base_link and robot.tip_link are required")
	case c.Rates.PoseEstimationHz <= 0:
		return fmt.Errorf("invalid control config: rates.pose_estimation_hz must be positive, got %v", c.Rates.PoseEstimationHz)
	case c.Rates.TrackingMultiplier <= 0:
		return fmt.Errorf("invalid control config: rates.tracking_multiplier must be positive, got %d", c.Rates.TrackingMultiplier)
	case c.IK.MaxIterations <= 0:
		return fmt.Errorf("invalid control config: ik.max_iterations must be positive, got %d", c.IK.MaxIterations)
	case c.IK.Tolerance <= 0:
		return fmt.Errorf("invalid control config: ik.tolerance must be positive, got %v", c.IK.Tolerance)
	case c.IK.Damping < 0 || c.IK.SingularThreshold < 0:
		return fmt.Errorf("invalid control config: ik.damping and ik.singular_threshold must not be negative")
	case len(c.Homing.Target) == 0:
		return fmt.Errorf("invalid control config: homing.target is required")
	case c.Homing.Threshold <= 0:
		return fmt.Errorf("invalid control config: homing.threshold must be positive, got %v", c.Homing.Threshold)
	case c.Homing.PollHz <= 0:
		return fmt.Errorf("invalid control config: homing.poll_hz must be positive, got %v", c.Homing.PollHz)
	case c.Homing.SettleSeconds < 0 || c.Homing.TimeoutSeconds < 0:
		return fmt.Errorf("invalid control config: homing durations must not be negative")
	case c.Trajectory.TimeScale == 0:
		return fmt.Errorf("invalid control config: trajectory.time_scale must not be zero")
	case len(c.Trajectory.Orientation) != 4:
		return fmt.Errorf("invalid control config: trajectory.orientation needs 4 values (w, x, y, z), got %d", len(c.Trajectory.Orientation))
	case c.Operator.TimeoutSeconds < 0:
		return fmt.Errorf("invalid control config: operator.timeout_seconds must not be negative")
	case c.Topics.JointStates == "" || c.Topics.EEFPose == "":
		return fmt.Errorf("invalid control config: topics.joint_states and topics.eef_pose are required")
	case len(c.Topics.JointCommands) != len(c.Homing.Target):
		return fmt.Errorf("invalid control config: %d joint command topics for %d homing targets", len(c.Topics.JointCommands), len(c.Homing.Target))
	}

	w, x, y, z := c.Trajectory.Orientation[0], c.Trajectory.Orientation[1], c.Trajectory.Orientation[2], c.Trajectory.Orientation[3]
	if n := math.Sqrt(w*w + x*x + y*y + z*z); math.Abs(n-1) > 1e-6 {
		return fmt.Errorf("invalid control config: trajectory.orientation must be a unit quaternion, norm is %v", n)
	}

	for _, s := range c.Operator.Sources {
		if s != OperatorSourceStdin && s != OperatorSourceHTTP {
			return fmt.Errorf("invalid control config: unknown operator source %q", s)
		}
	}
	if len(c.Operator.Sources) == 0 {
		return fmt.Errorf("invalid control config: operator.sources must list at least one of %q, %q", OperatorSourceStdin, OperatorSourceHTTP)
	}
	return nil
}

// TopicMappings lists every topic the controller touches.
func (c *ControlConfig) TopicMappings() []TopicMapping {
	mappings := []TopicMapping{
		{TopicID: "joint_states", Topic: c.Topics.JointStates, MessageType: "JointState", Direction: DirectionInbound},
		{TopicID: "eef_pose", Topic: c.Topics.EEFPose, MessageType: "Pose", Direction: DirectionOutbound},
	}
	for i, topic := range c.Topics.JointCommands {
		mappings = append(mappings, TopicMapping{
			TopicID:     fmt.Sprintf("joint%d_command", i+1),
			Topic:       topic,
			MessageType: "Float64",
			Direction:   DirectionOutbound,
		})
	}
	return mappings
}

// GetTopicMappingsByDirection returns mappings with the given direction.
func (c *ControlConfig) GetTopicMappingsByDirection(direction string) []TopicMapping {
	var result []TopicMapping
	for _, m := range c.TopicMappings() {
		if m.Direction == direction {
			result = append(result, m)
		}
	}
	return result
}

// YAML renders the configuration as a YAML document.
func (c *ControlConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
