package api

import (
	"time"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

// Vector3 defines a standard 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a rotation in w, x, y, z order.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PoseMsg mirrors geometry_msgs/Pose.
type PoseMsg struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

func newPoseMsg(p kinematics.Pose) PoseMsg {
	return PoseMsg{
		Position:    Vector3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		Orientation: Quaternion{W: p.Orientation.Real, X: p.Orientation.Imag, Y: p.Orientation.Jmag, Z: p.Orientation.Kmag},
	}
}

// StateResponse is returned by GET /api/v1/state.
type StateResponse struct {
	Phase            string    `json:"phase"`
	Joints           []float64 `json:"joints"`
	JointNames       []string  `json:"joint_names"`
	Pose             *PoseMsg  `json:"pose,omitempty"`
	ElapsedTime      float64   `json:"elapsed_time"`
	FeedbackReceived bool      `json:"feedback_received"`
	PoseComputed     bool      `json:"pose_computed"`
	TrackingActive   bool      `json:"tracking_active"`
}

// PoseStreamMsg is one frame of the /ws/pose stream.
type PoseStreamMsg struct {
	Timestamp   time.Time `json:"timestamp"`
	ElapsedTime float64   `json:"elapsed_time"`
	Pose        PoseMsg   `json:"pose"`
}
