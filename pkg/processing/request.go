package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
)

// CommandRequest is the wire form of a command as received over ZeroMQ, HTTP
// and the jog websocket. Machine parts are referenced by ID. A nil axis leaves
// that axis unchanged.
type CommandRequest struct {
	HeadID      string   `json:"head_id,omitempty"`
	MountableID string   `json:"mountable_id,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Z           *float64 `json:"z,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	On          *bool    `json:"on,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty"`
}

// DefaultSpeed is used for moves that do not name a speed
const DefaultSpeed = 1.0

// Build resolves the request's IDs through reg and returns the command of the
// given kind. ACTUATE becomes ACTUATE_BOOL when the request carries a switch
// state.
func (r *CommandRequest) Build(kind Kind, reg *machine.Registry) (*Command, error) {
	cmd := &Command{Kind: kind}

	switch kind {
	case KindHome:
		head, ok := reg.Head(r.HeadID)
		if !ok {
			return nil, fmt.Errorf("%w: head %q", machine.ErrNotFound, r.HeadID)
		}
		cmd.Head = head

	case KindMoveTo, KindGetLocation:
		m, ok := reg.Mountable(r.MountableID)
		if !ok {
			return nil, fmt.Errorf("%w: mountable %q", machine.ErrNotFound, r.MountableID)
		}
		cmd.Mountable = m
		if kind == KindMoveTo {
			target, err := r.Target()
			if err != nil {
				return nil, err
			}
			cmd.Target = target
			cmd.Speed = DefaultSpeed
			if r.Speed != nil {
				cmd.Speed = *r.Speed
			}
		}

	case KindPick, KindPlace:
		nozzle, err := reg.Nozzle(r.MountableID)
		if err != nil {
			return nil, err
		}
		cmd.Mountable = nozzle

	case KindActuate, KindActuateBool:
		actuator, err := reg.Actuator(r.MountableID)
		if err != nil {
			return nil, err
		}
		cmd.Mountable = actuator
		switch {
		case r.On != nil:
			cmd.Kind = KindActuateBool
			cmd.On = *r.On
		case r.Value != nil && kind == KindActuate:
			cmd.Value = *r.Value
		default:
			return nil, fmt.Errorf("%w: actuate requires value or on", ErrInvalidCommand)
		}

	case KindSetEnabled:
		if r.Enabled == nil {
			return nil, fmt.Errorf("%w: enabled is required", ErrInvalidCommand)
		}
		cmd.Enabled = *r.Enabled

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, kind)
	}

	return cmd, nil
}

// Target returns the move target described by the request
func (r *CommandRequest) Target() (geometry.Target, error) {
	unit, err := geometry.ParseLengthUnit(r.Unit)
	if err != nil {
		return geometry.Target{}, fmt.Errorf("%w: %v", geometry.ErrInvalidAxis, err)
	}
	target := geometry.Target{
		X:        geometry.AxisFromPtr(r.X),
		Y:        geometry.AxisFromPtr(r.Y),
		Z:        geometry.AxisFromPtr(r.Z),
		Rotation: geometry.AxisFromPtr(r.Rotation),
		Unit:     unit,
	}
	return target, target.Validate()
}

// LocationResponse reports where a mountable or head is
type LocationResponse struct {
	HeadID      string  `json:"head_id"`
	MountableID string  `json:"mountable_id,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Rotation    float64 `json:"rotation"`
	Unit        string  `json:"unit"`
}

// NewLocationResponse builds the response for a command result. It returns nil
// when the result carries no location.
func NewLocationResponse(result *Result) *LocationResponse {
	if result == nil || result.Location == nil {
		return nil
	}
	loc := result.Location
	return &LocationResponse{
		HeadID:      string(result.Command.HeadID()),
		MountableID: result.Command.MountableID(),
		X:           loc.X,
		Y:           loc.Y,
		Z:           loc.Z,
		Rotation:    loc.Rotation,
		Unit:        string(loc.Unit),
	}
}

// ErrorStatus maps a command error to an HTTP style status code. It is used
// for HTTP responses and ZeroMQ error replies alike.
func ErrorStatus(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, ErrInvalidCommand),
		errors.Is(err, geometry.ErrInvalidAxis),
		errors.Is(err, machine.ErrWrongKind):
		return 400
	case errors.Is(err, machine.ErrNotFound):
		return 404
	case errors.Is(err, driver.ErrDisabled):
		return 409
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrNotRunning), errors.Is(err, driver.ErrBusy):
		return 503
	case errors.Is(err, driver.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return 504
	case errors.Is(err, driver.ErrOperationFailed):
		return 502
	}
	return 500
}
