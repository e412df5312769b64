package journal

import (
	"time"

	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/geometry"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
)

// recordingDriver forwards every call to next and journals it once it has
// returned. A journal write failure is logged and does not fail the call.
type recordingDriver struct {
	next   driver.Driver
	w      *Writer
	logger customlog.Logger
	now    func() time.Time
}

// Wrap returns a driver that records every call on next into w.
func Wrap(next driver.Driver, w *Writer, logger customlog.Logger) driver.Driver {
	return &recordingDriver{next: next, w: w, logger: logger, now: time.Now}
}

func (r *recordingDriver) Unwrap() driver.Driver { return r.next }

func (r *recordingDriver) record(e Event, err error) {
	e.Timestamp = r.now()
	e.Backend = driver.Name(r.next)
	if err != nil {
		e.Error = err.Error()
	}
	if werr := r.w.Write(e); werr != nil {
		r.logger.Warnf("Journal write for %s failed: %v", e.Op, werr)
	}
}

func forMountable(op string, m machine.HeadMountable) Event {
	return Event{Op: op, HeadID: string(m.Head().ID()), MountableID: m.ID()}
}

func (r *recordingDriver) Home(head machine.Head) error {
	err := r.next.Home(head)
	r.record(Event{Op: driver.OpHome, HeadID: string(head.ID())}, err)
	return err
}

func (r *recordingDriver) Location(m machine.HeadMountable) (geometry.Location, error) {
	loc, err := r.next.Location(m)
	e := forMountable(driver.OpLocation, m)
	if err == nil {
		e.SetLocation(loc)
	}
	r.record(e, err)
	return loc, err
}

func (r *recordingDriver) MoveTo(m machine.HeadMountable, target geometry.Target, speed float64) error {
	err := r.next.MoveTo(m, target, speed)
	e := forMountable(driver.OpMoveTo, m)
	e.SetTarget(target)
	e.Speed = &speed
	r.record(e, err)
	return err
}

func (r *recordingDriver) Pick(nozzle machine.Nozzle) error {
	err := r.next.Pick(nozzle)
	r.record(forMountable(driver.OpPick, nozzle), err)
	return err
}

func (r *recordingDriver) Place(nozzle machine.Nozzle) error {
	err := r.next.Place(nozzle)
	r.record(forMountable(driver.OpPlace, nozzle), err)
	return err
}

func (r *recordingDriver) Actuate(actuator machine.Actuator, value float64) error {
	err := r.next.Actuate(actuator, value)
	e := forMountable(driver.OpActuate, actuator)
	e.Value = &value
	r.record(e, err)
	return err
}

func (r *recordingDriver) ActuateBool(actuator machine.Actuator, on bool) error {
	err := r.next.ActuateBool(actuator, on)
	e := forMountable(driver.OpActuateBool, actuator)
	e.On = &on
	r.record(e, err)
	return err
}

func (r *recordingDriver) SetEnabled(enabled bool) error {
	err := r.next.SetEnabled(enabled)
	r.record(Event{Op: driver.OpSetEnabled, Enabled: &enabled}, err)
	return err
}
