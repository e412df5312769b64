package geometry

import (
	"fmt"
	"strings"
)

// LengthUnit identifies the unit the linear axes of a Location are expressed in.
type LengthUnit string

const (
	Millimeters LengthUnit = "mm"
	Centimeters LengthUnit = "cm"
	Meters      LengthUnit = "m"
	Inches      LengthUnit = "in"
	Feet        LengthUnit = "ft"
	Mils        LengthUnit = "mil"
	Microns     LengthUnit = "um"
)

// CanonicalUnit is the unit drivers normalise stored head positions to.
const CanonicalUnit = Millimeters

// millimetres per unit
var unitScale = map[LengthUnit]float64{
	Millimeters: 1,
	Centimeters: 10,
	Meters:      1000,
	Inches:      25.4,
	Feet:        304.8,
	Mils:        0.0254,
	Microns:     0.001,
}

// ParseLengthUnit parses a unit name. An empty string yields the canonical unit.
func ParseLengthUnit(s string) (LengthUnit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return CanonicalUnit, nil
	case "millimeters", "millimetres":
		return Millimeters, nil
	case "centimeters", "centimetres":
		return Centimeters, nil
	case "meters", "metres":
		return Meters, nil
	case "inches", "inch":
		return Inches, nil
	case "feet", "foot":
		return Feet, nil
	case "mils":
		return Mils, nil
	case "microns", "µm":
		return Microns, nil
	}
	u := LengthUnit(s)
	if _, ok := unitScale[u]; !ok {
		return "", fmt.Errorf("unknown length unit %q", s)
	}
	return u, nil
}

// Valid reports whether the unit is known.
func (u LengthUnit) Valid() bool {
	_, ok := unitScale[u]
	return ok
}

// Convert converts a linear value from u into target.
func (u LengthUnit) Convert(v float64, target LengthUnit) float64 {
	if u == target || u == "" || target == "" {
		return v
	}
	return v * unitScale[u] / unitScale[target]
}

// Location is a four axis coordinate. Values are passed and returned by value;
// none of the methods mutate the receiver.
type Location struct {
	X        float64    `json:"x" yaml:"x"`
	Y        float64    `json:"y" yaml:"y"`
	Z        float64    `json:"z" yaml:"z"`
	Rotation float64    `json:"rotation" yaml:"rotation"`
	Unit     LengthUnit `json:"unit" yaml:"unit"`
}

// NewLocation returns a Location in the given unit.
func NewLocation(unit LengthUnit, x, y, z, rotation float64) Location {
	return Location{X: x, Y: y, Z: z, Rotation: rotation, Unit: unit}
}

// Origin returns (0,0,0,0) in the canonical unit.
func Origin() Location {
	return Location{Unit: CanonicalUnit}
}

// ConvertToUnits scales X, Y and Z into unit. Rotation is left alone.
func (l Location) ConvertToUnits(unit LengthUnit) Location {
	if l.Unit == unit {
		return l
	}
	return Location{
		X:        l.Unit.Convert(l.X, unit),
		Y:        l.Unit.Convert(l.Y, unit),
		Z:        l.Unit.Convert(l.Z, unit),
		Rotation: l.Rotation,
		Unit:     unit,
	}
}

// Add returns l + o. o is converted to l's unit first.
func (l Location) Add(o Location) Location {
	o = o.ConvertToUnits(l.Unit)
	return Location{
		X:        l.X + o.X,
		Y:        l.Y + o.Y,
		Z:        l.Z + o.Z,
		Rotation: l.Rotation + o.Rotation,
		Unit:     l.Unit,
	}
}

// Subtract returns l - o. o is converted to l's unit first.
func (l Location) Subtract(o Location) Location {
	o = o.ConvertToUnits(l.Unit)
	return Location{
		X:        l.X - o.X,
		Y:        l.Y - o.Y,
		Z:        l.Z - o.Z,
		Rotation: l.Rotation - o.Rotation,
		Unit:     l.Unit,
	}
}

// Zeroed returns the location with all four axes reset, keeping the unit.
func (l Location) Zeroed() Location {
	return Location{Unit: l.Unit}
}

func (l Location) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f, %.4f %s)", l.X, l.Y, l.Z, l.Rotation, l.Unit)
}
