// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/vending-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	snapshots map[generic.EntityID]generic.Snapshot
	events    map[generic.EntityID][]generic.Event
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[generic.EntityID]generic.Snapshot),
		events:    make(map[generic.EntityID][]generic.Event),
	}
}

// Create stores the first snapshot of a machine.
func (m *Memory) Create(_ context.Context, snap generic.Snapshot, ev generic.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snapshots[snap.EntityID]; ok {
		return generic.ErrDuplicateEntity
	}
	m.snapshots[snap.EntityID] = snap.Clone()
	m.events[snap.EntityID] = []generic.Event{ev}
	return nil
}

func (m *Memory) Load(_ context.Context, id generic.EntityID) (generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[id]
	if !ok {
		return generic.Snapshot{}, generic.ErrEntityNotFound
	}
	return snap.Clone(), nil
}

// Commit replaces the snapshot if the version follows the stored one.
func (m *Memory) Commit(_ context.Context, snap generic.Snapshot, ev generic.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.snapshots[snap.EntityID]
	if !ok {
		return generic.ErrEntityNotFound
	}
	if snap.Version != current.Version+1 {
		return &generic.ConflictError{
			EntityID: snap.EntityID,
			Stored:   current.Version,
			Proposed: snap.Version,
		}
	}
	m.snapshots[snap.EntityID] = snap.Clone()
	m.events[snap.EntityID] = append(m.events[snap.EntityID], ev)
	return nil
}

func (m *Memory) List(_ context.Context) ([]generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Snapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		result = append(result, snap.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityID < result[j].EntityID
	})
	return result, nil
}

func (m *Memory) Events(_ context.Context, id generic.EntityID) ([]generic.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.snapshots[id]; !ok {
		return nil, generic.ErrEntityNotFound
	}
	result := make([]generic.Event, len(m.events[id]))
	copy(result, m.events[id])
	return result, nil
}
