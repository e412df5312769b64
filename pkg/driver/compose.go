package driver

import (
	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
)

// Compose returns the absolute location of m given its head's location.
func Compose(head geometry.Location, m machine.HeadMountable) geometry.Location {
	return head.Add(m.HeadOffsets())
}

// Decompose turns an absolute target for m into a head-space target in
// canonical units. Absent axes stay absent.
func Decompose(target geometry.Target, m machine.HeadMountable) geometry.Target {
	return target.Subtract(m.HeadOffsets()).ConvertToUnits(geometry.CanonicalUnit)
}
