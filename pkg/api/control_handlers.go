package api

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/invkin/domain/control"
	customlog "github.com/open-teleop/invkin/pkg/log"
	"github.com/open-teleop/invkin/pkg/processing"
)

// ControlHandler exposes controller state and the HTTP start trigger.
type ControlHandler struct {
	controller *control.Controller
	trigger    *control.ManualTrigger
	registry   *processing.TopicRegistry
	logger     customlog.Logger
}

// RegisterControlRoutes registers state, tracking and topic endpoints. trigger
// may be nil when HTTP confirmation is disabled.
func RegisterControlRoutes(app *fiber.App, controller *control.Controller, trigger *control.ManualTrigger,
	registry *processing.TopicRegistry, logger customlog.Logger) {
	h := &ControlHandler{
		controller: controller,
		trigger:    trigger,
		registry:   registry,
		logger:     logger,
	}

	v1 := app.Group("/api/v1")
	v1.Get("/state", h.handleGetState)
	v1.Post("/tracking/start", h.handleStartTracking)
	v1.Get("/topics", h.handleGetTopics)

	logger.Infof("Registered control API endpoints under /api/v1")
}

func (h *ControlHandler) handleGetState(c *fiber.Ctx) error {
	snap := h.controller.State().Snapshot()

	resp := StateResponse{
		Phase:            string(h.controller.Phase()),
		Joints:           snap.Joints,
		JointNames:       h.controller.Chain().JointNames(),
		ElapsedTime:      snap.ElapsedTime,
		FeedbackReceived: snap.FeedbackReceived,
		PoseComputed:     snap.PoseComputed,
		TrackingActive:   snap.TrackingActive,
	}
	if snap.HasPose {
		pose := newPoseMsg(snap.Pose)
		resp.Pose = &pose
	}
	return c.JSON(resp)
}

func (h *ControlHandler) handleStartTracking(c *fiber.Ctx) error {
	if h.trigger == nil {
		return fiber.NewError(http.StatusForbidden, "HTTP start confirmation is disabled")
	}
	phase := h.controller.Phase()
	if phase != control.PhaseAwaitingStart {
		return fiber.NewError(http.StatusConflict,
			fmt.Sprintf("tracking can only be started while %s, phase is %s", control.PhaseAwaitingStart, phase))
	}
	if !h.trigger.Fire() {
		return fiber.NewError(http.StatusConflict, "tracking start already confirmed")
	}

	h.logger.Infof("Tracking start confirmed over HTTP in phase %s", phase)
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
		"phase":  string(phase),
	})
}

func (h *ControlHandler) handleGetTopics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"topics": h.registry.GetTopicStats(),
	})
}
