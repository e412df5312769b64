package machine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/openpnp-go/controller/pkg/config"
	customlog "github.com/openpnp-go/controller/pkg/log"
)

// MountableStats holds command statistics for a mountable
type MountableStats struct {
	CommandCount  int64
	LastCommanded int64
}

// Registry maintains the heads and mountables of the machine, keyed by ID
type Registry struct {
	logger     customlog.Logger
	heads      map[HeadID]Head
	mountables map[string]HeadMountable
	stats      map[string]*MountableStats
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry(logger customlog.Logger) *Registry {
	return &Registry{
		logger:     logger,
		heads:      make(map[HeadID]Head),
		mountables: make(map[string]HeadMountable),
		stats:      make(map[string]*MountableStats),
	}
}

// LoadFromConfig replaces the registry contents with the heads and mountables
// described by cfg.
func (r *Registry) LoadFromConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	heads := make(map[HeadID]Head)
	mountables := make(map[string]HeadMountable)

	for _, hc := range cfg.Heads {
		head := NewHead(hc.ID, hc.Name)
		heads[head.ID()] = head

		add := func(list []config.MountableConfig, kind Kind) {
			for _, mc := range list {
				m := NewMountable(mc.ID, mc.Name, kind, head, cfg.MountableOffset(mc))
				mountables[m.ID()] = m
			}
		}
		add(hc.Nozzles, KindNozzle)
		add(hc.Actuators, KindActuator)
		add(hc.Cameras, KindCamera)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.heads = heads
	r.mountables = mountables
	r.stats = make(map[string]*MountableStats)

	r.logger.Infof("Loaded %d heads and %d mountables into registry", len(heads), len(mountables))
	return nil
}

// AddHead registers a head
func (r *Registry) AddHead(head Head) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heads[head.ID()] = head
}

// AddMountable registers a mountable and its head
func (r *Registry) AddMountable(m HeadMountable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heads[m.Head().ID()] = m.Head()
	r.mountables[m.ID()] = m
}

// Head returns the head with the given ID
func (r *Registry) Head(id string) (Head, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	head, exists := r.heads[HeadID(id)]
	return head, exists
}

// Mountable returns the mountable with the given ID
func (r *Registry) Mountable(id string) (HeadMountable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.mountables[id]
	return m, exists
}

// Nozzle returns the mountable with the given ID if it is a nozzle
func (r *Registry) Nozzle(id string) (Nozzle, error) {
	return r.mountableOfKind(id, KindNozzle)
}

// Actuator returns the mountable with the given ID if it is an actuator
func (r *Registry) Actuator(id string) (Actuator, error) {
	return r.mountableOfKind(id, KindActuator)
}

func (r *Registry) mountableOfKind(id string, kind Kind) (HeadMountable, error) {
	m, exists := r.Mountable(id)
	if !exists {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	if m.Kind() != kind {
		return nil, fmt.Errorf("%w: %q is a %s, not a %s", ErrWrongKind, id, m.Kind(), kind)
	}
	return m, nil
}

// Heads returns all heads sorted by ID
func (r *Registry) Heads() []Head {
	r.mu.RLock()
	defer r.mu.RUnlock()

	heads := make([]Head, 0, len(r.heads))
	for _, head := range r.heads {
		heads = append(heads, head)
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].ID() < heads[j].ID() })
	return heads
}

// Mountables returns all mountables sorted by ID
func (r *Registry) Mountables() []HeadMountable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]HeadMountable, 0, len(r.mountables))
	for _, m := range r.mountables {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	return all
}

// UpdateStats records that a command was issued for a mountable
func (r *Registry) UpdateStats(mountableID string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, exists := r.stats[mountableID]
	if !exists {
		stats = &MountableStats{}
		r.stats[mountableID] = stats
	}
	stats.CommandCount++
	stats.LastCommanded = timestamp
}

// GetStats returns a copy of the command statistics per mountable
func (r *Registry) GetStats() map[string]MountableStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]MountableStats, len(r.stats))
	for id, s := range r.stats {
		stats[id] = *s
	}
	return stats
}
