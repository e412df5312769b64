package driver

import (
	"sync/atomic"

	"github.com/openpnp-go/controller/pkg/config"
	"github.com/openpnp-go/controller/pkg/geometry"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
)

// NullBackend is the registered name of the reference backend.
const NullBackend = "null"

var (
	_ Driver         = (*NullDriver)(nil)
	_ HeadReporter   = (*NullDriver)(nil)
	_ StatusReporter = (*NullDriver)(nil)
)

// NullDriver is the reference backend. It keeps a virtual location per head,
// performs no I/O and logs every command at debug level. It never fails unless
// enable gating is switched on or a target carries a non-finite axis.
type NullDriver struct {
	// ID is a free-text identifier loaded from configuration. It is not used
	// by the driver.
	ID string

	store   *CoordinateStore
	logger  customlog.Logger
	gating  bool
	enabled atomic.Bool
}

// Option configures a NullDriver
type Option func(*NullDriver)

// WithLogger sets the logger commands are traced to.
func WithLogger(logger customlog.Logger) Option {
	return func(d *NullDriver) { d.logger = logger }
}

// WithIdentifier sets the free-text identifier.
func WithIdentifier(id string) Option {
	return func(d *NullDriver) { d.ID = id }
}

// WithEnableGating makes a disabled driver reject motion and actuation with
// ErrDisabled, the way hardware backends do.
func WithEnableGating() Option {
	return func(d *NullDriver) { d.gating = true }
}

// NewNullDriver creates a reference backend with an empty coordinate store.
// The driver starts enabled.
func NewNullDriver(opts ...Option) *NullDriver {
	d := &NullDriver{store: NewCoordinateStore()}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = customlog.NewNopLogger()
	}
	d.logger = d.logger.WithField("driver", NullBackend)
	d.enabled.Store(true)
	return d
}

func newNullFromConfig(cfg config.DriverConfig, logger customlog.Logger) (Driver, error) {
	opts := []Option{WithLogger(logger), WithIdentifier(cfg.ID)}
	if cfg.SimulateEnable {
		opts = append(opts, WithEnableGating())
	}
	return NewNullDriver(opts...), nil
}

// Store exposes the coordinate store, mainly for tests and diagnostics.
func (d *NullDriver) Store() *CoordinateStore {
	return d.store
}

func (d *NullDriver) BackendName() string { return NullBackend }

func (d *NullDriver) Enabled() bool { return d.enabled.Load() }

func (d *NullDriver) HeadLocation(head machine.Head) geometry.Location {
	return d.store.Get(head)
}

func (d *NullDriver) checkEnabled(op string) error {
	if d.gating && !d.enabled.Load() {
		return &OperationError{Op: op, Backend: NullBackend, Err: ErrDisabled}
	}
	return nil
}

func (d *NullDriver) Home(head machine.Head) error {
	if err := d.checkEnabled(OpHome); err != nil {
		return err
	}
	loc := d.store.Update(head, geometry.Location.Zeroed)
	d.logger.Debugf("home(%s) -> %s", head.ID(), loc)
	return nil
}

func (d *NullDriver) Location(m machine.HeadMountable) (geometry.Location, error) {
	return Compose(d.store.Get(m.Head()), m), nil
}

func (d *NullDriver) MoveTo(m machine.HeadMountable, target geometry.Target, speed float64) error {
	if err := d.checkEnabled(OpMoveTo); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return &OperationError{Op: OpMoveTo, Backend: NullBackend, Err: err}
	}

	headTarget := Decompose(target, m)
	loc := d.store.Update(m.Head(), headTarget.Apply)

	d.logger.Debugf("moveTo(%s, %s, %.2f) -> head %s at %s", m.ID(), target, speed, m.Head().ID(), loc)
	return nil
}

func (d *NullDriver) Pick(nozzle machine.Nozzle) error {
	if err := d.checkEnabled(OpPick); err != nil {
		return err
	}
	d.logger.Debugf("pick(%s)", nozzle.ID())
	return nil
}

func (d *NullDriver) Place(nozzle machine.Nozzle) error {
	if err := d.checkEnabled(OpPlace); err != nil {
		return err
	}
	d.logger.Debugf("place(%s)", nozzle.ID())
	return nil
}

func (d *NullDriver) Actuate(actuator machine.Actuator, value float64) error {
	if err := d.checkEnabled(OpActuate); err != nil {
		return err
	}
	d.logger.Debugf("actuate(%s, %f)", actuator.ID(), value)
	return nil
}

func (d *NullDriver) ActuateBool(actuator machine.Actuator, on bool) error {
	if err := d.checkEnabled(OpActuateBool); err != nil {
		return err
	}
	d.logger.Debugf("actuate(%s, %t)", actuator.ID(), on)
	return nil
}

func (d *NullDriver) SetEnabled(enabled bool) error {
	d.enabled.Store(enabled)
	d.logger.Debugf("setEnabled(%t)", enabled)
	return nil
}
