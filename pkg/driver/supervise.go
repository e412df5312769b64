package driver

import (
	"fmt"
	"sync"
	"time"

	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
)

// Supervise returns a driver whose calls give up after timeout with an
// OperationError wrapping ErrTimeout. The driver contract has no cancellation,
// so the underlying call keeps running to completion in the background. Until
// it returns, further calls for the same head fail with ErrBusy.
// A non-positive timeout returns d unchanged.
func Supervise(d Driver, timeout time.Duration) Driver {
	if timeout <= 0 {
		return d
	}
	return &supervisedDriver{next: d, timeout: timeout, busy: make(map[machine.HeadID]bool)}
}

// machineWide keys SetEnabled, which addresses no head.
const machineWide machine.HeadID = ""

type supervisedDriver struct {
	next    Driver
	timeout time.Duration

	mu   sync.Mutex
	busy map[machine.HeadID]bool
}

func (s *supervisedDriver) Unwrap() Driver { return s.next }

func (s *supervisedDriver) acquire(head machine.HeadID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[head] {
		return false
	}
	s.busy[head] = true
	return true
}

func (s *supervisedDriver) release(head machine.HeadID) {
	s.mu.Lock()
	delete(s.busy, head)
	s.mu.Unlock()
}

func (s *supervisedDriver) run(op string, head machine.HeadID, fn func() error) error {
	if !s.acquire(head) {
		return &OperationError{
			Op:      op,
			Backend: Name(s.next),
			Err:     fmt.Errorf("%w: head %q", ErrBusy, head),
		}
	}

	done := make(chan error, 1)
	go func() {
		err := fn()
		s.release(head)
		done <- err
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return &OperationError{
			Op:      op,
			Backend: Name(s.next),
			Err:     fmt.Errorf("%w after %s", ErrTimeout, s.timeout),
		}
	}
}

func (s *supervisedDriver) Home(head machine.Head) error {
	return s.run(OpHome, head.ID(), func() error { return s.next.Home(head) })
}

func (s *supervisedDriver) Location(m machine.HeadMountable) (geometry.Location, error) {
	type result struct {
		loc geometry.Location
		err error
	}
	done := make(chan result, 1)
	err := s.run(OpLocation, m.Head().ID(), func() error {
		loc, err := s.next.Location(m)
		done <- result{loc, err}
		return err
	})
	if err != nil {
		return geometry.Location{}, err
	}
	r := <-done
	return r.loc, nil
}

func (s *supervisedDriver) MoveTo(m machine.HeadMountable, target geometry.Target, speed float64) error {
	return s.run(OpMoveTo, m.Head().ID(), func() error { return s.next.MoveTo(m, target, speed) })
}

func (s *supervisedDriver) Pick(nozzle machine.Nozzle) error {
	return s.run(OpPick, nozzle.Head().ID(), func() error { return s.next.Pick(nozzle) })
}

func (s *supervisedDriver) Place(nozzle machine.Nozzle) error {
	return s.run(OpPlace, nozzle.Head().ID(), func() error { return s.next.Place(nozzle) })
}

func (s *supervisedDriver) Actuate(actuator machine.Actuator, value float64) error {
	return s.run(OpActuate, actuator.Head().ID(), func() error { return s.next.Actuate(actuator, value) })
}

func (s *supervisedDriver) ActuateBool(actuator machine.Actuator, on bool) error {
	return s.run(OpActuateBool, actuator.Head().ID(), func() error { return s.next.ActuateBool(actuator, on) })
}

func (s *supervisedDriver) SetEnabled(enabled bool) error {
	return s.run(OpSetEnabled, machineWide, func() error { return s.next.SetEnabled(enabled) })
}
