package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.MachineConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.MachineConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.MachineConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")

	// The machine description as YAML
	apiGroup.Get("/machine", h.handleGetMachineConfig)
	apiGroup.Put("/machine", h.handleUpdateMachineConfig)

	logger.Infof("Registered machine configuration API endpoints under /api/v1/config")
}

func (h *ConfigHandler) handleGetMachineConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/machine")
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(yamlData) == 0) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Machine configuration not found or not yet set.",
		})
	}
	if err != nil {
		h.logger.Errorf("Failed to get current machine config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

func (h *ConfigHandler) handleUpdateMachineConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling PUT request for /api/v1/config/machine")

	switch c.Get(fiber.HeaderContentType) {
	case "application/x-yaml", "application/yaml", "text/yaml":
	default:
		h.logger.Warnf("Received PUT request with unexpected Content-Type: %s", c.Get(fiber.HeaderContentType))
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	if err := h.configService.UpdateConfig(newConfigYAML); err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			h.logger.Warnf("Rejected machine configuration update: %v", err)
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		h.logger.Errorf("Failed to update machine configuration: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	h.logger.Infof("Machine configuration updated via API")
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Machine configuration updated successfully.",
	})
}
