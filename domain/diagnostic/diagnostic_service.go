package diagnostic

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/openpnp-go/controller/pkg/processing"
)

// MachineMetrics is a snapshot of the driver and dispatcher state
type MachineMetrics struct {
	Timestamp  time.Time                         `json:"timestamp"`
	Backend    string                            `json:"backend"`
	Enabled    *bool                             `json:"enabled,omitempty"`
	Heads      []HeadStatus                      `json:"heads"`
	Mountables []MountableStatus                 `json:"mountables"`
	Lanes      map[string]processing.LaneMetrics `json:"lanes"`
}

// HeadStatus reports a head and, when the backend exposes it, its stored
// location
type HeadStatus struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Location *geometry.Location `json:"location,omitempty"`
}

// MountableStatus reports a mountable, its composed location and how often it
// has been commanded
type MountableStatus struct {
	ID            string             `json:"id"`
	Kind          machine.Kind       `json:"kind"`
	HeadID        string             `json:"head_id"`
	Location      *geometry.Location `json:"location,omitempty"`
	CommandCount  int64              `json:"command_count"`
	LastCommanded int64              `json:"last_commanded,omitempty"`
}

// DiagnosticService reports machine diagnostics
type DiagnosticService struct {
	registry *machine.Registry
	director *processing.Director
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(registry *machine.Registry, director *processing.Director) *DiagnosticService {
	return &DiagnosticService{
		registry: registry,
		director: director,
	}
}

// GetMetricsHandler handles API requests for machine metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}

// GetMetrics collects the current metrics. Locations are read from the
// backend's coordinate store without issuing driver calls.
func (s *DiagnosticService) GetMetrics() MachineMetrics {
	d := s.director.Driver()
	metrics := MachineMetrics{
		Timestamp: time.Now(),
		Backend:   driver.Name(d),
		Lanes:     s.director.GetLaneMetrics(),
	}
	if status, ok := driver.Find[driver.StatusReporter](d); ok {
		enabled := status.Enabled()
		metrics.Enabled = &enabled
	}

	reporter, canReport := driver.Find[driver.HeadReporter](d)

	for _, head := range s.registry.Heads() {
		hs := HeadStatus{ID: string(head.ID()), Name: head.Name()}
		if canReport {
			loc := reporter.HeadLocation(head)
			hs.Location = &loc
		}
		metrics.Heads = append(metrics.Heads, hs)
	}

	stats := s.registry.GetStats()
	for _, m := range s.registry.Mountables() {
		ms := MountableStatus{
			ID:            m.ID(),
			Kind:          m.Kind(),
			HeadID:        string(m.Head().ID()),
			CommandCount:  stats[m.ID()].CommandCount,
			LastCommanded: stats[m.ID()].LastCommanded,
		}
		if canReport {
			loc := driver.Compose(reporter.HeadLocation(m.Head()), m)
			ms.Location = &loc
		}
		metrics.Mountables = append(metrics.Mountables, ms)
	}

	return metrics
}
