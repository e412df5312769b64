package zeromq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openpnp-go/controller/pkg/config"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/openpnp-go/controller/pkg/processing"
)

// ConfigSource provides the active machine configuration
type ConfigSource interface {
	GetCurrentConfig() *config.Config
}

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	source ConfigSource
	logger customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(source ConfigSource, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{
		source: source,
		logger: logger,
	}
}

// HandleMessage processes a CONFIG_REQUEST message and returns a CONFIG_RESPONSE
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if msg.Type != MsgTypeConfigRequest {
		return nil, fmt.Errorf("%w: unexpected message type: %s", ErrInvalidMessage, msg.Type)
	}

	h.logger.Debugf("Processing configuration request")

	cfg := h.source.GetCurrentConfig()
	if cfg == nil {
		return nil, &StatusError{Code: 404, Err: fmt.Errorf("machine configuration not loaded")}
	}

	responseData, err := json.Marshal(newMessage(MsgTypeConfigResponse, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	h.logger.Debugf("Sending configuration response (%d bytes)", len(responseData))
	return responseData, nil
}

// commandMessage is a ZeroMQMessage whose data is a command request
type commandMessage struct {
	Type      string                    `json:"type"`
	Timestamp float64                   `json:"timestamp"`
	Data      processing.CommandRequest `json:"data"`
}

// AckResponse is the data of an ACK reply
type AckResponse struct {
	CommandID string                       `json:"command_id"`
	Status    string                       `json:"status"`
	Location  *processing.LocationResponse `json:"location,omitempty"`
}

// commandKinds maps request message types to command kinds
var commandKinds = map[string]processing.Kind{
	MsgTypeHome:        processing.KindHome,
	MsgTypeMoveTo:      processing.KindMoveTo,
	MsgTypeGetLocation: processing.KindGetLocation,
	MsgTypePick:        processing.KindPick,
	MsgTypePlace:       processing.KindPlace,
	MsgTypeActuate:     processing.KindActuate,
	MsgTypeSetEnabled:  processing.KindSetEnabled,
}

// DefaultCommandTimeout bounds how long a request waits for its command
const DefaultCommandTimeout = 30 * time.Second

// CommandHandler handles driver command messages. It resolves machine parts
// through the registry and waits for the director to run the command.
type CommandHandler struct {
	registry *machine.Registry
	director *processing.Director
	logger   customlog.Logger
	timeout  time.Duration
}

// NewCommandHandler creates a new handler for driver commands
func NewCommandHandler(registry *machine.Registry, director *processing.Director, logger customlog.Logger) *CommandHandler {
	return &CommandHandler{
		registry: registry,
		director: director,
		logger:   logger,
		timeout:  DefaultCommandTimeout,
	}
}

// HandleMessage executes the command carried by the message and returns an
// ACK or LOCATION reply
func (h *CommandHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg commandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	kind, ok := commandKinds[msg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}

	cmd, err := msg.Data.Build(kind, h.registry)
	if err != nil {
		return nil, &StatusError{Code: processing.ErrorStatus(err), Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := h.director.Execute(ctx, cmd)
	if err != nil {
		h.logger.Warnf("%s command failed: %v", msg.Type, err)
		return nil, &StatusError{Code: processing.ErrorStatus(err), Err: err}
	}

	var reply ZeroMQMessage
	if kind == processing.KindGetLocation {
		reply = newMessage(MsgTypeLocation, processing.NewLocationResponse(result))
	} else {
		reply = newMessage(MsgTypeAck, AckResponse{
			CommandID: result.Command.ID,
			Status:    "OK",
			Location:  processing.NewLocationResponse(result),
		})
	}

	responseData, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}
	return responseData, nil
}

// MessageRegistrar is implemented by services that route messages by type
type MessageRegistrar interface {
	RegisterHandler(messageType string, handler MessageHandler)
}

// RegisterCommandHandlers registers the driver command handler for every
// command message type
func RegisterCommandHandlers(service MessageRegistrar, registry *machine.Registry, director *processing.Director, logger customlog.Logger) *CommandHandler {
	handler := NewCommandHandler(registry, director, logger)
	for messageType := range commandKinds {
		service.RegisterHandler(messageType, handler)
	}

	logger.Infof("Registered %d driver command handlers", len(commandKinds))
	return handler
}
