package control

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

// readiness is a one-shot flag. Once set it stays set, and Wait callers are
// released by closing the channel.
type readiness struct {
	once sync.Once
	ch   chan struct{}
}

func newReadiness() *readiness {
	return &readiness{ch: make(chan struct{})}
}

// set reports whether this call performed the transition.
func (r *readiness) set() bool {
	transitioned := false
	r.once.Do(func() {
		close(r.ch)
		transitioned = true
	})
	return transitioned
}

func (r *readiness) isSet() bool {
	select {
	case <-r.ch:
		return true
	default:
		return false
	}
}

func (r *readiness) wait(ctx context.Context) error {
	select {
	case <-r.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StateSnapshot is a consistent copy of RobotState.
type StateSnapshot struct {
	Joints           []float64       `json:"joints"`
	Pose             kinematics.Pose `json:"-"`
	HasPose          bool            `json:"has_pose"`
	ElapsedTime      float64         `json:"elapsed_time"`
	FeedbackReceived bool            `json:"feedback_received"`
	PoseComputed     bool            `json:"pose_computed"`
	TrackingActive   bool            `json:"tracking_active"`
}

// RobotState is the only state shared between feedback ingestion and the two
// periodic tasks. Values are guarded by an RWMutex and always copied out;
// readiness flags are monotonic.
type RobotState struct {
	mu      sync.RWMutex
	joints  []float64
	pose    kinematics.Pose
	hasPose bool
	elapsed float64

	feedbackReceived *readiness
	poseComputed     *readiness
	trackingActive   *readiness
}

// NewRobotState creates state for a chain with n movable joints.
func NewRobotState(n int) *RobotState {
	return &RobotState{
		joints:           make([]float64, n),
		feedbackReceived: newReadiness(),
		poseComputed:     newReadiness(),
		trackingActive:   newReadiness(),
	}
}

// NumJoints is the fixed joint vector length.
func (s *RobotState) NumJoints() int {
	return len(s.joints)
}

// IngestFeedback overwrites the joint vector with the first NumJoints entries
// of positions and marks feedback as received.
func (s *RobotState) IngestFeedback(positions []float64) error {
	if len(positions) < len(s.joints) {
		return errors.Wrapf(kinematics.ErrInvalidInput, "feedback has %d positions, need %d", len(positions), len(s.joints))
	}

	s.mu.Lock()
	copy(s.joints, positions[:len(s.joints)])
	s.mu.Unlock()

	s.feedbackReceived.set()
	return nil
}

// JointPositions returns a copy of the latest joint vector.
func (s *RobotState) JointPositions() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := make([]float64, len(s.joints))
	copy(q, s.joints)
	return q
}

// SetPose stores the latest forward kinematics result and marks the pose as
// computed.
func (s *RobotState) SetPose(p kinematics.Pose) {
	s.mu.Lock()
	s.pose = p
	s.hasPose = true
	s.mu.Unlock()

	s.poseComputed.set()
}

// Pose returns the latest computed pose. ok is false until one exists.
func (s *RobotState) Pose() (p kinematics.Pose, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose, s.hasPose
}

// AdvanceElapsed adds dt to the tracking clock if tracking is active, and
// returns the resulting elapsed time. The check and the update happen under
// one lock.
func (s *RobotState) AdvanceElapsed(dt float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trackingActive.isSet() {
		s.elapsed += dt
	}
	return s.elapsed
}

// ElapsedTime returns the tracking clock in seconds.
func (s *RobotState) ElapsedTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsed
}

// ActivateTracking sets the tracking flag. It reports whether this call
// performed the transition.
func (s *RobotState) ActivateTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackingActive.set()
}

func (s *RobotState) FeedbackReceived() bool { return s.feedbackReceived.isSet() }
func (s *RobotState) PoseComputed() bool     { return s.poseComputed.isSet() }
func (s *RobotState) TrackingActive() bool   { return s.trackingActive.isSet() }

// WaitFeedback blocks until the first feedback message is ingested.
func (s *RobotState) WaitFeedback(ctx context.Context) error {
	return s.feedbackReceived.wait(ctx)
}

// WaitPose blocks until the first pose is computed.
func (s *RobotState) WaitPose(ctx context.Context) error {
	return s.poseComputed.wait(ctx)
}

// WaitTracking blocks until tracking is activated.
func (s *RobotState) WaitTracking(ctx context.Context) error {
	return s.trackingActive.wait(ctx)
}

// Snapshot returns a consistent copy of all values and flags.
func (s *RobotState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := make([]float64, len(s.joints))
	copy(q, s.joints)
	return StateSnapshot{
		Joints:           q,
		Pose:             s.pose,
		HasPose:          s.hasPose,
		ElapsedTime:      s.elapsed,
		FeedbackReceived: s.feedbackReceived.isSet(),
		PoseComputed:     s.poseComputed.isSet(),
		TrackingActive:   s.trackingActive.isSet(),
	}
}
