package api

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/invkin/pkg/log"
	"github.com/open-teleop/invkin/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.ControlConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.ControlConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.ControlConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/control", h.handleGetControlConfig)

	logger.Infof("Registered control configuration API endpoints under /api/v1/config")
}

// handleGetControlConfig returns the effective control configuration as YAML.
func (h *ConfigHandler) handleGetControlConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/control")
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to render control config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	if yamlData == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Control configuration not loaded.",
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}
