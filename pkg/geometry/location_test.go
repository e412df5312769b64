package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToUnitsLeavesRotation(t *testing.T) {
	l := NewLocation(Inches, 1, 2, 0.5, 45)

	mm := l.ConvertToUnits(Millimeters)

	assert.InDelta(t, 25.4, mm.X, 1e-9)
	assert.InDelta(t, 50.8, mm.Y, 1e-9)
	assert.InDelta(t, 12.7, mm.Z, 1e-9)
	assert.Equal(t, 45.0, mm.Rotation)
	assert.Equal(t, Millimeters, mm.Unit)
}

func TestAddConvertsArgumentToReceiverUnit(t *testing.T) {
	head := NewLocation(Millimeters, 10, 10, 0, 90)
	offset := NewLocation(Centimeters, 1, -1, 0.5, 10)

	got := head.Add(offset)

	assert.Equal(t, Millimeters, got.Unit)
	assert.InDelta(t, 20, got.X, 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9)
	assert.InDelta(t, 5, got.Z, 1e-9)
	assert.InDelta(t, 100, got.Rotation, 1e-9)
}

func TestSubtractIsInverseOfAdd(t *testing.T) {
	a := NewLocation(Millimeters, 3, -4, 7, 12)
	b := NewLocation(Millimeters, 1, 2, 0, 2)

	assert.Equal(t, a, a.Add(b).Subtract(b))
}

func TestZeroedKeepsUnit(t *testing.T) {
	l := NewLocation(Inches, 1, 2, 3, 4)
	assert.Equal(t, Location{Unit: Inches}, l.Zeroed())
}

func TestParseLengthUnit(t *testing.T) {
	cases := map[string]LengthUnit{
		"":            Millimeters,
		"mm":          Millimeters,
		"Millimeters": Millimeters,
		"in":          Inches,
		"inches":      Inches,
		"um":          Microns,
	}
	for in, want := range cases {
		got, err := ParseLengthUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLengthUnit("furlong")
	assert.Error(t, err)
}

func TestTargetApplyIsPerAxis(t *testing.T) {
	current := NewLocation(Millimeters, 9, 8, 5, 90)
	target := Target{X: Set(1), Z: Set(3), Unit: Millimeters}

	got := target.Apply(current)

	assert.Equal(t, NewLocation(Millimeters, 1, 8, 3, 90), got)
}

func TestTargetSubtractSkipsAbsentAxes(t *testing.T) {
	target := Target{Y: Set(7), Unit: Millimeters}

	got := target.Subtract(NewLocation(Millimeters, 1, 2, 3, 4))

	assert.False(t, got.X.Present())
	assert.False(t, got.Z.Present())
	assert.False(t, got.Rotation.Present())
	y, ok := got.Y.Get()
	require.True(t, ok)
	assert.Equal(t, 5.0, y)
}

func TestTargetConvertToUnits(t *testing.T) {
	target := Target{X: Set(1), Rotation: Set(30), Unit: Inches}

	got := target.ConvertToUnits(Millimeters)

	x, _ := got.X.Get()
	r, _ := got.Rotation.Get()
	assert.InDelta(t, 25.4, x, 1e-9)
	assert.Equal(t, 30.0, r)
	assert.False(t, got.Y.Present())
	assert.Equal(t, Millimeters, got.Unit)
}

func TestTargetValidateRejectsNaN(t *testing.T) {
	target := Target{X: Set(math.NaN()), Unit: Millimeters}
	assert.ErrorIs(t, target.Validate(), ErrInvalidAxis)

	target = Target{Rotation: Set(math.Inf(1))}
	assert.ErrorIs(t, target.Validate(), ErrInvalidAxis)

	target = Target{X: Set(1), Unit: "parsec"}
	assert.ErrorIs(t, target.Validate(), ErrInvalidAxis)

	assert.NoError(t, Target{Y: Set(2)}.Validate())
	assert.NoError(t, Target{}.Validate())
}

func TestAxisFromPtr(t *testing.T) {
	v := 4.5
	assert.Equal(t, Set(4.5), AxisFromPtr(&v))
	assert.Equal(t, Keep(), AxisFromPtr(nil))
	assert.Nil(t, Keep().Ptr())
	assert.Equal(t, 4.5, *Set(4.5).Ptr())
}
