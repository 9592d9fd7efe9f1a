package control

import "github.com/open-teleop/invkin/pkg/kinematics"

// PosePublisher sends the estimated end-effector pose to the outside world.
type PosePublisher interface {
	PublishPose(pose kinematics.Pose) error
}

// CommandPublisher sends one position command per joint, in chain order.
type CommandPublisher interface {
	PublishJointCommands(q []float64) error
}

// Publisher is the full outbound surface of the controller.
type Publisher interface {
	PosePublisher
	CommandPublisher
}
