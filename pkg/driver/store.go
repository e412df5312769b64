package driver

import (
	"sync"

	"github.com/openpnp-go/controller/pkg/geometry"
	"github.com/openpnp-go/controller/pkg/machine"
)

// CoordinateStore keeps the absolute location of every head a backend has
// seen, in canonical units. An entry is created at the origin on first access
// and never removed.
type CoordinateStore struct {
	mu      sync.RWMutex
	entries map[machine.HeadID]*storeEntry
}

type storeEntry struct {
	mu  sync.Mutex
	loc geometry.Location
}

// NewCoordinateStore creates an empty store
func NewCoordinateStore() *CoordinateStore {
	return &CoordinateStore{entries: make(map[machine.HeadID]*storeEntry)}
}

func (s *CoordinateStore) entry(id machine.HeadID) *storeEntry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; ok {
		return e
	}
	e = &storeEntry{loc: geometry.Origin()}
	s.entries[id] = e
	return e
}

// Get returns the head's location, initialising it to the origin if the head
// has not been seen before.
func (s *CoordinateStore) Get(head machine.Head) geometry.Location {
	e := s.entry(head.ID())
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loc
}

// Set overwrites the head's location. Only the owning backend should call it.
func (s *CoordinateStore) Set(head machine.Head, loc geometry.Location) {
	e := s.entry(head.ID())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc = loc.ConvertToUnits(geometry.CanonicalUnit)
}

// Update replaces the head's location with fn(current) under the entry lock
// and returns the new value.
func (s *CoordinateStore) Update(head machine.Head, fn func(geometry.Location) geometry.Location) geometry.Location {
	e := s.entry(head.ID())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc = fn(e.loc).ConvertToUnits(geometry.CanonicalUnit)
	return e.loc
}

// Snapshot copies every stored location.
func (s *CoordinateStore) Snapshot() map[machine.HeadID]geometry.Location {
	s.mu.RLock()
	ids := make([]machine.HeadID, 0, len(s.entries))
	entries := make([]*storeEntry, 0, len(s.entries))
	for id, e := range s.entries {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make(map[machine.HeadID]geometry.Location, len(ids))
	for i, e := range entries {
		e.mu.Lock()
		out[ids[i]] = e.loc
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of heads seen so far.
func (s *CoordinateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
