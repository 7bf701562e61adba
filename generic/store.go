/*
store.go - Persistence interface for machine snapshots and events

PURPOSE:
  Defines the interface between the session layer and the database.
  A machine is persisted as its latest snapshot plus an append-only log of
  the transitions that produced it.

APPEND-ONLY CONTRACT:
  - Create(): first snapshot (version 1) plus its create event
  - Commit(): next snapshot plus exactly one event, atomically
  - NO Delete() and no way to rewrite an event

OPTIMISTIC VERSIONING:
  Commit only succeeds when the proposed snapshot's version is the stored
  version + 1. Otherwise the caller worked from a stale snapshot and gets a
  *ConflictError (errors.Is ErrConcurrentModification).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - session/service.go: load -> transition -> commit loop
*/
package generic

import "context"

// =============================================================================
// STORE - Snapshot + event persistence
// =============================================================================

type Store interface {
	// Create persists the first snapshot of a new machine along with ev.
	// Returns ErrDuplicateEntity if the ID is taken.
	Create(ctx context.Context, snap Snapshot, ev Event) error

	// Load returns the latest snapshot. Returns ErrEntityNotFound if absent.
	Load(ctx context.Context, id EntityID) (Snapshot, error)

	// Commit replaces the snapshot and appends ev atomically.
	Commit(ctx context.Context, snap Snapshot, ev Event) error

	// List returns the latest snapshot of every machine, ordered by ID.
	List(ctx context.Context) ([]Snapshot, error)

	// Events returns a machine's events in version order.
	Events(ctx context.Context, id EntityID) ([]Event, error)
}
