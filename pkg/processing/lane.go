package processing

import (
	"fmt"
	"sync"
	"time"

	"github.com/openpnp-go/controller/pkg/driver"
	customlog "github.com/openpnp-go/controller/pkg/log"
)

// job pairs a command with the channel its result is delivered on
type job struct {
	cmd  *Command
	done chan *Result
}

// Lane executes commands one at a time, in the order they were enqueued
type Lane struct {
	index         int
	name          string
	logger        customlog.Logger
	driver        driver.Driver
	queue         chan *job
	running       bool
	wg            sync.WaitGroup
	mu            sync.RWMutex
	resultHandler ResultHandler
	queueSize     int
	metrics       LaneMetrics
	metricsMu     sync.Mutex
}

// LaneMetrics tracks metrics for a lane
type LaneMetrics struct {
	ProcessedCount    int64 `json:"processed"`
	ErrorCount        int64 `json:"errors"`
	QueuedCount       int64 `json:"queued"`
	LastProcessedTime int64 `json:"last_processed_ns"`
	ProcessingTimeAvg int64 `json:"avg_us"` // in microseconds
	ProcessingTimeMax int64 `json:"max_us"` // in microseconds
}

// NewLane creates a new lane issuing commands on d
func NewLane(index int, queueSize int, d driver.Driver, logger customlog.Logger) *Lane {
	return &Lane{
		index:     index,
		name:      fmt.Sprintf("lane-%d", index),
		logger:    logger,
		driver:    d,
		queue:     make(chan *job, queueSize),
		queueSize: queueSize,
	}
}

// SetResultHandler sets the result handler function
func (l *Lane) SetResultHandler(handler ResultHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resultHandler = handler
}

// enqueue adds a job to the queue without blocking.
func (l *Lane) enqueue(j *job) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.running {
		return ErrNotRunning
	}

	select {
	case l.queue <- j:
		l.metricsMu.Lock()
		l.metrics.QueuedCount++
		l.metricsMu.Unlock()
		return nil
	default:
		l.logger.Warnf("%s queue is full, rejecting %s command %s", l.name, j.cmd.Kind, j.cmd.ID)
		return ErrQueueFull
	}
}

// Start starts the lane worker
func (l *Lane) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}

	// Stop closes the queue, so every start gets a fresh one
	l.queue = make(chan *job, l.queueSize)
	l.running = true
	l.logger.Debugf("Starting %s", l.name)

	l.wg.Add(1)
	go l.worker(l.queue)
}

// Stop stops accepting commands, drains the queue and waits for the worker
func (l *Lane) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Debugf("%s stopped", l.name)

	l.logMetrics()
}

func (l *Lane) worker(queue <-chan *job) {
	defer l.wg.Done()

	for j := range queue {
		l.mu.RLock()
		resultHandler := l.resultHandler
		l.mu.RUnlock()

		startTime := time.Now()
		loc, err := j.cmd.run(l.driver)
		elapsed := time.Since(startTime)
		processingTime := elapsed.Microseconds()

		l.metricsMu.Lock()
		l.metrics.ProcessedCount++
		l.metrics.LastProcessedTime = time.Now().UnixNano()
		if l.metrics.ProcessingTimeAvg == 0 {
			l.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			l.metrics.ProcessingTimeAvg = (l.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > l.metrics.ProcessingTimeMax {
			l.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			l.metrics.ErrorCount++
		}
		l.metricsMu.Unlock()

		result := &Result{
			Command:  j.cmd,
			Location: loc,
			Err:      err,
			Duration: elapsed,
			Lane:     l.index,
		}

		if resultHandler != nil {
			resultHandler(result)
		}
		j.done <- result
	}
}

// GetMetrics returns a copy of the current metrics
func (l *Lane) GetMetrics() LaneMetrics {
	l.metricsMu.Lock()
	defer l.metricsMu.Unlock()

	return l.metrics
}

func (l *Lane) logMetrics() {
	metrics := l.GetMetrics()

	l.logger.Infof("%s metrics: processed=%d, errors=%d, avg_time=%dµs, max_time=%dµs",
		l.name, metrics.ProcessedCount, metrics.ErrorCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the lane name
func (l *Lane) GetName() string {
	return l.name
}

// GetQueueLength returns the current length of the queue
func (l *Lane) GetQueueLength() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.queue)
}

// GetQueueCapacity returns the capacity of the queue
func (l *Lane) GetQueueCapacity() int {
	return l.queueSize
}
