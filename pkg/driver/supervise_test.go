package driver

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openpnp-go/controller/pkg/config"
	"github.com/openpnp-go/controller/pkg/geometry"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stallingDriver blocks every call until release is closed.
type stallingDriver struct {
	*NullDriver
	release chan struct{}
}

func (s *stallingDriver) Home(head machine.Head) error {
	<-s.release
	return s.NullDriver.Home(head)
}

func (s *stallingDriver) Location(m machine.HeadMountable) (geometry.Location, error) {
	<-s.release
	return s.NullDriver.Location(m)
}

func TestSuperviseTimesOut(t *testing.T) {
	stalled := &stallingDriver{NullDriver: NewNullDriver(), release: make(chan struct{})}
	defer close(stalled.release)
	d := Supervise(stalled, 20*time.Millisecond)

	err := d.Home(machine.NewHead("H1", ""))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, ErrTimeout)
	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpHome, opErr.Op)
	assert.Equal(t, NullBackend, opErr.Backend)

	_, err = d.Location(machine.NewNozzle("N2", "", machine.NewHead("H2", ""), geometry.Location{}))
	assert.ErrorIs(t, err, ErrTimeout)
}

// slowDriver sleeps in MoveTo and records the peak number of concurrent moves
// per head.
type slowDriver struct {
	*NullDriver
	delay    time.Duration
	inFlight map[machine.HeadID]*atomic.Int32
	peak     atomic.Int32
}

func (s *slowDriver) MoveTo(m machine.HeadMountable, target geometry.Target, speed float64) error {
	counter := s.inFlight[m.Head().ID()]
	n := counter.Add(1)
	defer counter.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)
	return s.NullDriver.MoveTo(m, target, speed)
}

func TestSuperviseRejectsCallsForBusyHead(t *testing.T) {
	slow := &slowDriver{
		NullDriver: NewNullDriver(),
		delay:      50 * time.Millisecond,
		inFlight: map[machine.HeadID]*atomic.Int32{
			"H1": new(atomic.Int32),
			"H2": new(atomic.Int32),
		},
	}
	d := Supervise(slow, 10*time.Millisecond)
	h1 := machine.NewNozzle("N1", "", machine.NewHead("H1", ""), geometry.Location{})
	h2 := machine.NewNozzle("N2", "", machine.NewHead("H2", ""), geometry.Location{})

	err := d.MoveTo(h1, geometry.Target{X: geometry.Set(1)}, 1)
	assert.ErrorIs(t, err, ErrTimeout)

	err = d.MoveTo(h1, geometry.Target{X: geometry.Set(2)}, 1)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, ErrBusy)

	// other heads are unaffected
	err = d.MoveTo(h2, geometry.Target{X: geometry.Set(3)}, 1)
	assert.ErrorIs(t, err, ErrTimeout)

	require.Eventually(t, func() bool {
		return slow.inFlight["H1"].Load() == 0 && slow.inFlight["H2"].Load() == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), slow.peak.Load())
	assert.Equal(t, 1.0, slow.HeadLocation(h1.Head()).X)

	// the head is released once the stalled call returns
	require.Eventually(t, func() bool {
		_, err := d.Location(h1)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisePassesThrough(t *testing.T) {
	base := NewNullDriver()
	d := Supervise(base, time.Second)
	head := machine.NewHead("H1", "")
	nozzle := machine.NewNozzle("N1", "", head, mm(1, 2, 0, 0))

	require.NoError(t, d.MoveTo(nozzle, geometry.LocationTarget(mm(10, 10, 5, 90)), 1))
	loc, err := d.Location(nozzle)
	require.NoError(t, err)
	assert.Equal(t, mm(10, 10, 5, 90), loc)

	reporter, ok := Find[HeadReporter](d)
	require.True(t, ok)
	assert.Equal(t, mm(9, 8, 5, 90), reporter.HeadLocation(head))
	assert.Equal(t, NullBackend, Name(d))
}

func TestSuperviseNonPositiveTimeoutIsIdentity(t *testing.T) {
	base := NewNullDriver()
	assert.Same(t, base, Supervise(base, 0))
}

func TestNewBuildsRegisteredBackend(t *testing.T) {
	logger := customlog.NewNopLogger()

	d, err := New(config.DriverConfig{Type: "null", ID: "bench", SimulateEnable: true}, logger)
	require.NoError(t, err)
	null, ok := d.(*NullDriver)
	require.True(t, ok)
	assert.Equal(t, "bench", null.ID)
	assert.True(t, null.gating)

	d, err = New(config.DriverConfig{Type: "reference", CommandTimeoutMs: 100}, logger)
	require.NoError(t, err)
	_, wrapped := d.(Wrapper)
	assert.True(t, wrapped)

	_, err = New(config.DriverConfig{Type: "grbl"}, logger)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestRegisterCustomBackend(t *testing.T) {
	Register("test-double", func(cfg config.DriverConfig, logger customlog.Logger) (Driver, error) {
		return NewNullDriver(WithIdentifier("double:" + cfg.ID)), nil
	})

	assert.Contains(t, Backends(), "test-double")
	d, err := New(config.DriverConfig{Type: "test-double", ID: "x"}, customlog.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "double:x", d.(*NullDriver).ID)
}

func TestFailKeepsExistingOperationError(t *testing.T) {
	inner := &OperationError{Op: OpPick, Backend: "b", Err: ErrCommunication}

	assert.Same(t, inner, Fail("other", OpPlace, inner))
	assert.Nil(t, Fail("b", OpPick, nil))

	wrapped := Fail("b", OpHome, ErrHomingFailed)
	assert.ErrorIs(t, wrapped, ErrOperationFailed)
	assert.ErrorIs(t, wrapped, ErrHomingFailed)
	assert.Equal(t, "driver operation failed: b home: homing failed", wrapped.Error())
}
