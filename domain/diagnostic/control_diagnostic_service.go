package diagnostic

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/atomic"
)

// ControlMetrics is a point-in-time view of the control loop counters.
type ControlMetrics struct {
	Timestamp             time.Time `json:"timestamp"`
	RunID                 string    `json:"run_id"`
	UptimeSeconds         float64   `json:"uptime_seconds"`
	FeedbackMessages      int64     `json:"feedback_messages"`
	FeedbackRejected      int64     `json:"feedback_rejected"`
	PoseTicks             int64     `json:"pose_ticks"`
	PoseOverruns          int64     `json:"pose_overruns"`
	TrackingTicks         int64     `json:"tracking_ticks"`
	TrackingOverruns      int64     `json:"tracking_overruns"`
	CommandsPublished     int64     `json:"commands_published"`
	PublishErrors         int64     `json:"publish_errors"`
	IKFailures            int64     `json:"ik_failures"`
	LastIKIterations      int64     `json:"last_ik_iterations"`
	LastIKResidual        float64   `json:"last_ik_residual"`
	HomingMaxError        float64   `json:"homing_max_error"`
	HomingDurationSeconds float64   `json:"homing_duration_seconds"`
}

// DiagnosticService collects control loop counters. All methods are safe for
// concurrent use from the periodic tasks and the transport goroutine.
type DiagnosticService struct {
	runID     string
	startedAt time.Time

	feedback         atomic.Int64
	feedbackRejected atomic.Int64
	poseTicks        atomic.Int64
	poseOverruns     atomic.Int64
	trackingTicks    atomic.Int64
	trackingOverruns atomic.Int64
	commands         atomic.Int64
	publishErrors    atomic.Int64
	ikFailures       atomic.Int64
	lastIKIterations atomic.Int64
	lastIKResidual   atomic.Float64
	homingMaxError   atomic.Float64
	homingDuration   atomic.Float64
}

// NewDiagnosticService creates a diagnostic service tagged with runID.
func NewDiagnosticService(runID string) *DiagnosticService {
	return &DiagnosticService{
		runID:     runID,
		startedAt: time.Now(),
	}
}

func (s *DiagnosticService) RecordFeedback(accepted bool) {
	s.feedback.Inc()
	if !accepted {
		s.feedbackRejected.Inc()
	}
}

func (s *DiagnosticService) RecordPoseTick(overrun bool) {
	s.poseTicks.Inc()
	if overrun {
		s.poseOverruns.Inc()
	}
}

func (s *DiagnosticService) RecordTrackingTick(overrun bool) {
	s.trackingTicks.Inc()
	if overrun {
		s.trackingOverruns.Inc()
	}
}

// RecordIK stores the outcome of one inverse kinematics solve.
func (s *DiagnosticService) RecordIK(iterations int, residual float64, converged bool) {
	s.lastIKIterations.Store(int64(iterations))
	s.lastIKResidual.Store(residual)
	if !converged {
		s.ikFailures.Inc()
	}
}

func (s *DiagnosticService) RecordCommandsPublished() {
	s.commands.Inc()
}

func (s *DiagnosticService) RecordPublishError() {
	s.publishErrors.Inc()
}

// RecordHomingError stores the latest max joint error seen while homing.
func (s *DiagnosticService) RecordHomingError(maxErr float64) {
	s.homingMaxError.Store(maxErr)
}

func (s *DiagnosticService) RecordHomingDone(d time.Duration) {
	s.homingDuration.Store(d.Seconds())
}

// GetMetrics returns the current counters.
func (s *DiagnosticService) GetMetrics() ControlMetrics {
	now := time.Now()
	return ControlMetrics{
		Timestamp:             now,
		RunID:                 s.runID,
		UptimeSeconds:         now.Sub(s.startedAt).Seconds(),
		FeedbackMessages:      s.feedback.Load(),
		FeedbackRejected:      s.feedbackRejected.Load(),
		PoseTicks:             s.poseTicks.Load(),
		PoseOverruns:          s.poseOverruns.Load(),
		TrackingTicks:         s.trackingTicks.Load(),
		TrackingOverruns:      s.trackingOverruns.Load(),
		CommandsPublished:     s.commands.Load(),
		PublishErrors:         s.publishErrors.Load(),
		IKFailures:            s.ikFailures.Load(),
		LastIKIterations:      s.lastIKIterations.Load(),
		LastIKResidual:        s.lastIKResidual.Load(),
		HomingMaxError:        s.homingMaxError.Load(),
		HomingDurationSeconds: s.homingDuration.Load(),
	}
}

// GetMetricsHandler handles API requests for control metrics.
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}
