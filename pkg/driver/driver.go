// Package driver defines the contract between the machine model and the motion
// backend that carries out its commands, together with the per-head coordinate
// store and the reference backend built on it.
//
// Every backend keeps one absolute Location per head. A tool's absolute
// position is its head's position plus the tool's fixed offset; a move request
// for a tool is turned back into head space by removing that offset before it
// is applied. Move targets are partial: any axis left absent keeps its current
// value.
//
// Calls addressing the same head are expected to arrive one at a time. Calls
// for different heads may run concurrently.
package driver

import (
	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
)

// Operation names, used in errors and the command journal.
const (
	OpHome        = "home"
	OpLocation    = "get_location"
	OpMoveTo      = "move_to"
	OpPick        = "pick"
	OpPlace       = "place"
	OpActuate     = "actuate"
	OpActuateBool = "actuate_bool"
	OpSetEnabled  = "set_enabled"
)

// Driver is implemented by every motion backend. Any method may fail with an
// error matching ErrOperationFailed; failures are returned as-is and are never
// retried by the backend.
type Driver interface {
	// Home moves the head to its home position and zeroes its four axes.
	Home(head machine.Head) error

	// Location returns the absolute location of the mountable.
	Location(m machine.HeadMountable) (geometry.Location, error)

	// MoveTo moves the mountable to target. Absent axes are left where they
	// are. speed is a fraction of the backend's maximum and may be ignored.
	MoveTo(m machine.HeadMountable, target geometry.Target, speed float64) error

	Pick(nozzle machine.Nozzle) error
	Place(nozzle machine.Nozzle) error

	// Actuate drives an actuator with an analog value.
	Actuate(actuator machine.Actuator, value float64) error

	// ActuateBool switches an actuator on or off.
	ActuateBool(actuator machine.Actuator, on bool) error

	// SetEnabled gates whether motion and actuation are physically honoured.
	SetEnabled(enabled bool) error
}

// HeadReporter is implemented by backends that can report a head's stored
// location without going through a mountable.
type HeadReporter interface {
	HeadLocation(head machine.Head) geometry.Location
}

// StatusReporter is implemented by backends that expose their name and enable
// state.
type StatusReporter interface {
	BackendName() string
	Enabled() bool
}

// Wrapper is implemented by drivers that decorate another driver.
type Wrapper interface {
	Unwrap() Driver
}

// Find walks the wrapper chain of d and returns the first driver implementing
// T.
func Find[T any](d Driver) (T, bool) {
	for d != nil {
		if t, ok := d.(T); ok {
			return t, true
		}
		w, ok := d.(Wrapper)
		if !ok {
			break
		}
		d = w.Unwrap()
	}
	var zero T
	return zero, false
}

// Name returns the backend name of d, looking through wrappers.
func Name(d Driver) string {
	if s, ok := Find[StatusReporter](d); ok {
		return s.BackendName()
	}
	return "unknown"
}
