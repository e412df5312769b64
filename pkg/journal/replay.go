package journal

import (
	"fmt"

	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/machine"
)

// Replay issues the commands recorded in events against d, resolving heads and
// mountables through reg. Location queries and calls that failed when they
// were recorded are skipped. It stops at the first error and returns how many
// commands were issued.
func Replay(events []Event, d driver.Driver, reg *machine.Registry) (int, error) {
	issued := 0
	for i, e := range events {
		if e.Error != "" || e.Op == driver.OpLocation {
			continue
		}
		if err := replayOne(e, d, reg); err != nil {
			return issued, fmt.Errorf("replay event %d (%s): %w", i, e.Op, err)
		}
		issued++
	}
	return issued, nil
}

func replayOne(e Event, d driver.Driver, reg *machine.Registry) error {
	switch e.Op {
	case driver.OpHome:
		head, ok := reg.Head(e.HeadID)
		if !ok {
			return fmt.Errorf("%w: head %q", machine.ErrNotFound, e.HeadID)
		}
		return d.Home(head)

	case driver.OpMoveTo:
		m, ok := reg.Mountable(e.MountableID)
		if !ok {
			return fmt.Errorf("%w: mountable %q", machine.ErrNotFound, e.MountableID)
		}
		speed := 1.0
		if e.Speed != nil {
			speed = *e.Speed
		}
		return d.MoveTo(m, e.Target(), speed)

	case driver.OpPick, driver.OpPlace:
		nozzle, err := reg.Nozzle(e.MountableID)
		if err != nil {
			return err
		}
		if e.Op == driver.OpPick {
			return d.Pick(nozzle)
		}
		return d.Place(nozzle)

	case driver.OpActuate, driver.OpActuateBool:
		actuator, err := reg.Actuator(e.MountableID)
		if err != nil {
			return err
		}
		if e.On != nil {
			return d.ActuateBool(actuator, *e.On)
		}
		if e.Value != nil {
			return d.Actuate(actuator, *e.Value)
		}
		return fmt.Errorf("actuate event without value")

	case driver.OpSetEnabled:
		if e.Enabled == nil {
			return fmt.Errorf("set_enabled event without state")
		}
		return d.SetEnabled(*e.Enabled)
	}
	return fmt.Errorf("unknown op %q", e.Op)
}
