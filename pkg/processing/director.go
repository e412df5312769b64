// Package processing dispatches driver commands. Commands addressing the same
// head are executed one at a time in submission order; commands for different
// heads run in parallel on separate lanes.
package processing

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/openpnp-go/controller/pkg/driver"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
)

// Director routes commands to a lane chosen by the addressed head
type Director struct {
	logger        customlog.Logger
	driver        driver.Driver
	registry      *machine.Registry
	lanes         []*Lane
	resultHandler ResultHandler
	running       bool
	mu            sync.RWMutex
}

// DirectorOptions holds configuration options for the Director
type DirectorOptions struct {
	Lanes     int
	QueueSize int
}

// NewDirector creates a director issuing commands on d. registry, when not
// nil, receives per-mountable command statistics.
func NewDirector(
	d driver.Driver,
	logger customlog.Logger,
	registry *machine.Registry,
	options *DirectorOptions,
) *Director {
	if options == nil {
		options = &DirectorOptions{}
	}
	lanes := options.Lanes
	if lanes <= 0 {
		lanes = 1
	}
	queueSize := options.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	director := &Director{
		logger:   logger,
		driver:   d,
		registry: registry,
		lanes:    make([]*Lane, lanes),
	}
	for i := range director.lanes {
		director.lanes[i] = NewLane(i, queueSize, d, logger)
	}

	logger.Infof("Command Director initialized with %d lanes (queue size %d)", lanes, queueSize)
	return director
}

// SetResultHandler sets the result handler function for all lanes
func (d *Director) SetResultHandler(handler ResultHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resultHandler = handler
	for _, lane := range d.lanes {
		lane.SetResultHandler(handler)
	}
}

// Driver returns the driver commands are issued on
func (d *Director) Driver() driver.Driver {
	return d.driver
}

// laneFor picks the lane for a command. Machine-wide commands share lane 0.
func (d *Director) laneFor(cmd *Command) *Lane {
	if cmd.Kind == KindSetEnabled || cmd.Head == nil || len(d.lanes) == 1 {
		return d.lanes[0]
	}
	h := fnv.New32a()
	h.Write([]byte(cmd.Head.ID()))
	return d.lanes[h.Sum32()%uint32(len(d.lanes))]
}

// Submit validates cmd and enqueues it. The returned channel receives exactly
// one result once the command has run.
func (d *Director) Submit(cmd *Command) (<-chan *Result, error) {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		return nil, ErrNotRunning
	}

	if err := cmd.prepare(); err != nil {
		return nil, err
	}

	lane := d.laneFor(cmd)
	j := &job{cmd: cmd, done: make(chan *Result, 1)}
	if err := lane.enqueue(j); err != nil {
		return nil, err
	}

	if d.registry != nil && cmd.Mountable != nil {
		d.registry.UpdateStats(cmd.Mountable.ID(), cmd.Timestamp)
	}

	d.logger.Debugf("Routed %s command %s for head '%s' to %s", cmd.Kind, cmd.ID, cmd.HeadID(), lane.GetName())
	return j.done, nil
}

// Execute submits cmd and waits for its result. The error is the submission
// error or the command's own error. If ctx ends first the command still runs.
func (d *Director) Execute(ctx context.Context, cmd *Command) (*Result, error) {
	done, err := d.Submit(cmd)
	if err != nil {
		return nil, err
	}

	select {
	case result := <-done:
		return result, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start starts all lanes
func (d *Director) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	d.running = true
	d.logger.Infof("Starting Command Director")

	for _, lane := range d.lanes {
		lane.Start()
	}
}

// Stop stops accepting commands and waits for queued ones to finish
func (d *Director) Stop() {
	d.mu.Lock()
	running := d.running
	d.running = false
	d.mu.Unlock()

	if !running {
		return
	}

	d.logger.Infof("Stopping Command Director")

	for _, lane := range d.lanes {
		lane.Stop()
	}

	d.logger.Infof("Command Director stopped")
}

// IsRunning reports whether the director accepts commands
func (d *Director) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// GetLaneMetrics returns metrics for all lanes, keyed by lane name
func (d *Director) GetLaneMetrics() map[string]LaneMetrics {
	metrics := make(map[string]LaneMetrics, len(d.lanes))
	for _, lane := range d.lanes {
		metrics[lane.GetName()] = lane.GetMetrics()
	}
	return metrics
}

// LaneCount returns the number of lanes
func (d *Director) LaneCount() int {
	return len(d.lanes)
}
