/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Persists every machine as its latest snapshot plus the append-only log of
  events that produced it. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - machine_events is only ever INSERTed into
  - machines rows are UPDATEd only by Commit, guarded by version
  - No DELETE statements anywhere

KEY TABLES:
  machines:       Latest snapshot per machine (ledgers as JSON)
  machine_events: One row per transition, unique per (machine_id, version)

OPTIMISTIC VERSIONING:
  Commit reads the stored version, requires snap.Version == stored + 1 and
  writes the snapshot and the event in one transaction. The UPDATE is also
  conditioned on the old version so two processes sharing the file cannot
  both win.

CONCURRENCY:
  The pool is limited to one connection. SQLite serializes writers anyway,
  and ":memory:" databases exist per connection.

USAGE:
  store, err := sqlite.New("./data/vending.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := session.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/vending-engine/generic"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Latest snapshot per machine
	CREATE TABLE IF NOT EXISTS machines (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		display TEXT NOT NULL,
		ledgers_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transition log (append-only)
	CREATE TABLE IF NOT EXISTS machine_events (
		id TEXT PRIMARY KEY,
		machine_id TEXT NOT NULL REFERENCES machines(id),
		version INTEGER NOT NULL,
		type TEXT NOT NULL,
		input TEXT NOT NULL DEFAULT '',
		display TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(machine_id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_machine_events_machine
		ON machine_events(machine_id, version);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORE (generic.Store interface)
// =============================================================================

// Create inserts the first snapshot and its event.
func (s *Store) Create(ctx context.Context, snap generic.Snapshot, ev generic.Event) error {
	ledgers, err := json.Marshal(snap.Ledgers)
	if err != nil {
		return fmt.Errorf("failed to encode ledgers: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO machines (id, version, display, ledgers_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, snap.EntityID, snap.Version, snap.Display, string(ledgers), formatTime(snap.TakenAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateEntity
		}
		return fmt.Errorf("failed to insert machine: %w", err)
	}

	if err := insertEvent(ctx, sqlTx, ev); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Load returns the latest snapshot of a machine.
func (s *Store) Load(ctx context.Context, id generic.EntityID) (generic.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, version, display, ledgers_json, updated_at
		FROM machines
		WHERE id = ?
	`, id)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Snapshot{}, generic.ErrEntityNotFound
	}
	return snap, err
}

// Commit replaces the snapshot when snap.Version follows the stored one and
// appends ev, atomically.
func (s *Store) Commit(ctx context.Context, snap generic.Snapshot, ev generic.Event) error {
	ledgers, err := json.Marshal(snap.Ledgers)
	if err != nil {
		return fmt.Errorf("failed to encode ledgers: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var stored int64
	err = sqlTx.QueryRowContext(ctx, "SELECT version FROM machines WHERE id = ?", snap.EntityID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrEntityNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	if snap.Version != stored+1 {
		return &generic.ConflictError{EntityID: snap.EntityID, Stored: stored, Proposed: snap.Version}
	}

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE machines
		SET version = ?, display = ?, ledgers_json = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, snap.Version, snap.Display, string(ledgers), formatTime(snap.TakenAt), snap.EntityID, stored)
	if err != nil {
		return fmt.Errorf("failed to update machine: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n != 1 {
		return &generic.ConflictError{EntityID: snap.EntityID, Stored: stored, Proposed: snap.Version}
	}

	if err := insertEvent(ctx, sqlTx, ev); err != nil {
		if isUniqueConstraintError(err) {
			return &generic.ConflictError{EntityID: snap.EntityID, Stored: stored, Proposed: snap.Version}
		}
		return err
	}
	return sqlTx.Commit()
}

// List returns every machine's latest snapshot ordered by ID.
func (s *Store) List(ctx context.Context) ([]generic.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, display, ledgers_json, updated_at
		FROM machines
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer rows.Close()

	snaps := []generic.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Events returns a machine's events in version order.
func (s *Store) Events(ctx context.Context, id generic.EntityID) ([]generic.Event, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM machines WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check machine: %w", err)
	}
	if exists == 0 {
		return nil, generic.ErrEntityNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, machine_id, version, type, input, display, created_at
		FROM machine_events
		WHERE machine_id = ?
		ORDER BY version ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []generic.Event
	for rows.Next() {
		var (
			ev        generic.Event
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.EntityID, &ev.Version, &ev.Type, &ev.Input, &ev.Display, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.At = parseTime(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (generic.Snapshot, error) {
	var (
		snap      generic.Snapshot
		ledgers   string
		updatedAt string
	)
	if err := row.Scan(&snap.EntityID, &snap.Version, &snap.Display, &ledgers, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, err
		}
		return snap, fmt.Errorf("failed to scan machine: %w", err)
	}
	if err := json.Unmarshal([]byte(ledgers), &snap.Ledgers); err != nil {
		return snap, fmt.Errorf("%w: machine %s: %v", generic.ErrInvalidSnapshot, snap.EntityID, err)
	}
	snap.TakenAt = parseTime(updatedAt)
	return snap, nil
}

func insertEvent(ctx context.Context, sqlTx *sql.Tx, ev generic.Event) error {
	_, err := sqlTx.ExecContext(ctx, `
		INSERT INTO machine_events (id, machine_id, version, type, input, display, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.EntityID, ev.Version, ev.Type, ev.Input, ev.Display, formatTime(ev.At))
	if err != nil {
		if isUniqueConstraintError(err) {
			return err
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
