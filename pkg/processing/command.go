package processing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
)

var (
	ErrNotRunning     = errors.New("command director is not running")
	ErrQueueFull      = errors.New("command queue is full")
	ErrInvalidCommand = errors.New("invalid command")
)

// Kind identifies a driver command
type Kind string

// Command kinds
const (
	KindHome        Kind = "HOME"
	KindMoveTo      Kind = "MOVE_TO"
	KindGetLocation Kind = "GET_LOCATION"
	KindPick        Kind = "PICK"
	KindPlace       Kind = "PLACE"
	KindActuate     Kind = "ACTUATE"
	KindActuateBool Kind = "ACTUATE_BOOL"
	KindSetEnabled  Kind = "SET_ENABLED"
)

// Command is a single driver call waiting to be dispatched
type Command struct {
	ID        string
	Kind      Kind
	Head      machine.Head
	Mountable machine.HeadMountable
	Target    geometry.Target
	Speed     float64
	Value     float64
	On        bool
	Enabled   bool
	Timestamp int64
}

// Result is the outcome of a dispatched command
type Result struct {
	Command  *Command
	Location *geometry.Location
	Err      error
	Duration time.Duration
	Lane     int
}

// ResultHandler is a function that handles command results
type ResultHandler func(result *Result)

// GetCurrentTimestamp gets the current timestamp in nanoseconds
func GetCurrentTimestamp() int64 {
	return time.Now().UnixNano()
}

// prepare fills in defaults and checks the command can be issued.
func (c *Command) prepare() error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp == 0 {
		c.Timestamp = GetCurrentTimestamp()
	}
	if c.Head == nil && c.Mountable != nil {
		c.Head = c.Mountable.Head()
	}

	switch c.Kind {
	case KindSetEnabled:
		return nil
	case KindHome:
		if c.Head == nil {
			return fmt.Errorf("%w: %s requires a head", ErrInvalidCommand, c.Kind)
		}
		return nil
	case KindMoveTo, KindGetLocation:
		if c.Mountable == nil {
			return fmt.Errorf("%w: %s requires a mountable", ErrInvalidCommand, c.Kind)
		}
		if c.Kind == KindMoveTo {
			return c.Target.Validate()
		}
		return nil
	case KindPick, KindPlace:
		return c.requireKind(machine.KindNozzle)
	case KindActuate, KindActuateBool:
		return c.requireKind(machine.KindActuator)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
}

func (c *Command) requireKind(kind machine.Kind) error {
	if c.Mountable == nil {
		return fmt.Errorf("%w: %s requires a %s", ErrInvalidCommand, c.Kind, kind)
	}
	if c.Mountable.Kind() != kind {
		return fmt.Errorf("%w: %q is a %s, not a %s", machine.ErrWrongKind, c.Mountable.ID(), c.Mountable.Kind(), kind)
	}
	return nil
}

// run issues the command on d. Motion commands report where the addressed
// mountable (or head, for HOME) ended up.
func (c *Command) run(d driver.Driver) (*geometry.Location, error) {
	switch c.Kind {
	case KindHome:
		if err := d.Home(c.Head); err != nil {
			return nil, err
		}
		if reporter, ok := driver.Find[driver.HeadReporter](d); ok {
			loc := reporter.HeadLocation(c.Head)
			return &loc, nil
		}
		return nil, nil

	case KindMoveTo:
		if err := d.MoveTo(c.Mountable, c.Target, c.Speed); err != nil {
			return nil, err
		}
		return c.locate(d)

	case KindGetLocation:
		return c.locate(d)

	case KindPick:
		return nil, d.Pick(c.Mountable)

	case KindPlace:
		return nil, d.Place(c.Mountable)

	case KindActuate:
		return nil, d.Actuate(c.Mountable, c.Value)

	case KindActuateBool:
		return nil, d.ActuateBool(c.Mountable, c.On)

	case KindSetEnabled:
		return nil, d.SetEnabled(c.Enabled)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
}

func (c *Command) locate(d driver.Driver) (*geometry.Location, error) {
	loc, err := d.Location(c.Mountable)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// IsMotion reports whether the command changes a head's location
func (c *Command) IsMotion() bool {
	return c.Kind == KindHome || c.Kind == KindMoveTo
}

// MountableID returns the ID of the addressed mountable, or "" for head and
// machine commands
func (c *Command) MountableID() string {
	if c.Mountable == nil {
		return ""
	}
	return c.Mountable.ID()
}

// HeadID returns the ID of the addressed head, or "" for machine commands
func (c *Command) HeadID() machine.HeadID {
	if c.Head == nil {
		return ""
	}
	return c.Head.ID()
}
