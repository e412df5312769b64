package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidAxis is returned for an axis that is present but not a finite number.
var ErrInvalidAxis = errors.New("invalid axis value")

// Axis is an optional axis value. The zero value is absent, meaning
// "leave this axis where it is".
type Axis struct {
	value   float64
	present bool
}

// Set returns a present axis with value v.
func Set(v float64) Axis {
	return Axis{value: v, present: true}
}

// Keep returns an absent axis.
func Keep() Axis {
	return Axis{}
}

// AxisFromPtr maps nil to an absent axis.
func AxisFromPtr(v *float64) Axis {
	if v == nil {
		return Keep()
	}
	return Set(*v)
}

// Get returns the value and whether the axis is present.
func (a Axis) Get() (float64, bool) {
	return a.value, a.present
}

// Present reports whether the axis carries a value.
func (a Axis) Present() bool {
	return a.present
}

// Ptr returns nil for an absent axis.
func (a Axis) Ptr() *float64 {
	if !a.present {
		return nil
	}
	v := a.value
	return &v
}

func (a Axis) String() string {
	if !a.present {
		return "-"
	}
	return fmt.Sprintf("%.4f", a.value)
}

func (a Axis) map1(fn func(float64) float64) Axis {
	if !a.present {
		return a
	}
	return Set(fn(a.value))
}

// Target is a move request. Each axis may be omitted independently.
type Target struct {
	X        Axis
	Y        Axis
	Z        Axis
	Rotation Axis
	Unit     LengthUnit
}

// LocationTarget returns a target with every axis of l present.
func LocationTarget(l Location) Target {
	return Target{
		X:        Set(l.X),
		Y:        Set(l.Y),
		Z:        Set(l.Z),
		Rotation: Set(l.Rotation),
		Unit:     l.Unit,
	}
}

// Validate rejects present axes that are NaN or infinite and unknown units.
func (t Target) Validate() error {
	for _, a := range []struct {
		name string
		axis Axis
	}{{"x", t.X}, {"y", t.Y}, {"z", t.Z}, {"rotation", t.Rotation}} {
		if v, ok := a.axis.Get(); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidAxis, a.name, v)
		}
	}
	if t.Unit != "" && !t.Unit.Valid() {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidAxis, t.Unit)
	}
	return nil
}

// Empty reports whether no axis is present.
func (t Target) Empty() bool {
	return !t.X.present && !t.Y.present && !t.Z.present && !t.Rotation.present
}

// ConvertToUnits scales the present linear axes into unit.
func (t Target) ConvertToUnits(unit LengthUnit) Target {
	from := t.Unit
	if from == "" {
		from = CanonicalUnit
	}
	conv := func(v float64) float64 { return from.Convert(v, unit) }
	return Target{
		X:        t.X.map1(conv),
		Y:        t.Y.map1(conv),
		Z:        t.Z.map1(conv),
		Rotation: t.Rotation,
		Unit:     unit,
	}
}

// Subtract removes o from every present axis. Absent axes stay absent.
func (t Target) Subtract(o Location) Target {
	unit := t.Unit
	if unit == "" {
		unit = CanonicalUnit
	}
	o = o.ConvertToUnits(unit)
	return Target{
		X:        t.X.map1(func(v float64) float64 { return v - o.X }),
		Y:        t.Y.map1(func(v float64) float64 { return v - o.Y }),
		Z:        t.Z.map1(func(v float64) float64 { return v - o.Z }),
		Rotation: t.Rotation.map1(func(v float64) float64 { return v - o.Rotation }),
		Unit:     unit,
	}
}

// Apply overwrites the axes of current that are present in t, one axis at a
// time. t must already be in current's unit.
func (t Target) Apply(current Location) Location {
	next := current
	if v, ok := t.X.Get(); ok {
		next.X = v
	}
	if v, ok := t.Y.Get(); ok {
		next.Y = v
	}
	if v, ok := t.Z.Get(); ok {
		next.Z = v
	}
	if v, ok := t.Rotation.Get(); ok {
		next.Rotation = v
	}
	return next
}

func (t Target) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s %s)", t.X, t.Y, t.Z, t.Rotation, t.Unit)
}
