// Package machine holds the parts of the machine object model the driver layer
// needs to reference: heads and the tools mounted on them.
package machine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/openpnp-go/controller/pkg/geometry"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrWrongKind = errors.New("wrong mountable kind")
)

// HeadID is the stable identity of a head. Drivers key per-head state by it.
type HeadID string

// Head is an independently addressable motion unit.
type Head interface {
	ID() HeadID
	Name() string
}

// Kind distinguishes the tools that can be mounted on a head
type Kind string

const (
	KindNozzle   Kind = "nozzle"
	KindActuator Kind = "actuator"
	KindCamera   Kind = "camera"
)

// HeadMountable is a tool rigidly attached to exactly one head at a fixed offset
// from the head's reference point.
type HeadMountable interface {
	ID() string
	Name() string
	Kind() Kind
	Head() Head
	HeadOffsets() geometry.Location
}

// Nozzle is a head mountable that picks and places parts.
type Nozzle interface {
	HeadMountable
}

// Actuator is a head mountable driven by a value or a switch state.
type Actuator interface {
	HeadMountable
}

// ReferenceHead is the plain Head implementation used by the controller.
type ReferenceHead struct {
	id   HeadID
	name string
}

// NewHead creates a head. An empty id is replaced by a random UUID.
func NewHead(id, name string) *ReferenceHead {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		name = id
	}
	return &ReferenceHead{id: HeadID(id), name: name}
}

func (h *ReferenceHead) ID() HeadID   { return h.id }
func (h *ReferenceHead) Name() string { return h.name }

// ReferenceMountable is the plain HeadMountable implementation. Its offset is
// fixed at construction.
type ReferenceMountable struct {
	id     string
	name   string
	kind   Kind
	head   Head
	offset geometry.Location
}

// NewMountable creates a mountable on head. An empty id is replaced by a
// random UUID and an offset without a unit is taken to be in millimetres.
func NewMountable(id, name string, kind Kind, head Head, offset geometry.Location) *ReferenceMountable {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		name = id
	}
	if offset.Unit == "" {
		offset.Unit = geometry.CanonicalUnit
	}
	return &ReferenceMountable{id: id, name: name, kind: kind, head: head, offset: offset}
}

// NewNozzle creates a nozzle on head.
func NewNozzle(id, name string, head Head, offset geometry.Location) *ReferenceMountable {
	return NewMountable(id, name, KindNozzle, head, offset)
}

// NewActuator creates an actuator on head.
func NewActuator(id, name string, head Head, offset geometry.Location) *ReferenceMountable {
	return NewMountable(id, name, KindActuator, head, offset)
}

func (m *ReferenceMountable) ID() string                     { return m.id }
func (m *ReferenceMountable) Name() string                   { return m.name }
func (m *ReferenceMountable) Kind() Kind                     { return m.kind }
func (m *ReferenceMountable) Head() Head                     { return m.head }
func (m *ReferenceMountable) HeadOffsets() geometry.Location { return m.offset }
