package processing

import (
	"github.com/openpnp-go/controller/pkg/geometry"
	customlog "github.com/openpnp-go/controller/pkg/log"
)

// LocationPublisher defines the interface for publishing location updates
type LocationPublisher interface {
	PublishLocation(headID, mountableID string, location geometry.Location, timestampNs int64) error
}

// LoggingResultHandler logs command results and publishes the location reached
// by successful motion commands
type LoggingResultHandler struct {
	logger    customlog.Logger
	publisher LocationPublisher
}

// NewLoggingResultHandler creates a new logging result handler. publisher may
// be nil.
func NewLoggingResultHandler(logger customlog.Logger, publisher LocationPublisher) *LoggingResultHandler {
	return &LoggingResultHandler{
		logger:    logger,
		publisher: publisher,
	}
}

// HandleResult handles a command result
func (h *LoggingResultHandler) HandleResult(result *Result) {
	cmd := result.Command
	if result.Err != nil {
		h.logger.Errorf("%s command %s for '%s' failed: %v", cmd.Kind, cmd.ID, cmd.MountableID(), result.Err)
		return
	}

	h.logger.Debugf("%s command %s completed on lane %d in %s", cmd.Kind, cmd.ID, result.Lane, result.Duration)

	if !cmd.IsMotion() || result.Location == nil || h.publisher == nil {
		return
	}

	err := h.publisher.PublishLocation(string(cmd.HeadID()), cmd.MountableID(), *result.Location, GetCurrentTimestamp())
	if err != nil {
		h.logger.Errorf("Failed to publish location for head '%s': %v", cmd.HeadID(), err)
	}
}

// CreateHandlerFunc creates a ResultHandler function for the Director
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(result *Result) {
		if result == nil {
			h.logger.Errorf("Received nil Result")
			return
		}
		h.HandleResult(result)
	}
}
