/*
Package generic provides the domain-agnostic core of the vending engine.

PURPOSE:
  This package holds the pieces that know nothing about coins, products or
  vending: an immutable quantity ledger, the records used to persist a
  machine between calls, and the persistence contract. The vending package
  builds its Bank and Machine on top of these.

KEY CONCEPTS IN THIS FILE (types.go):
  - EntityID: identifies one persisted machine
  - Counts: a ledger flattened to name -> count for storage
  - Snapshot: the full persisted state of one machine at one version
  - Event: one append-only record of a transition applied to a machine

DESIGN PRINCIPLES:
  1. Immutability: ledgers are values, every change produces a new one
  2. Derived values: balances are computed from counts, never stored
  3. Versioning: snapshots carry a version, commits are optimistic
  4. Auditability: every committed transition leaves an event behind

USAGE:
  coins := generic.NewLedger("nickel", "dime", "quarter").Add("dime")
  snap := generic.Snapshot{
      EntityID: "machine-1",
      Version:  1,
      Ledgers:  map[string]generic.Counts{"machine": {"DIME": 1}},
  }

SEE ALSO:
  - ledger.go: Ledger operations
  - store.go: Store interface
  - errors.go: sentinel errors
*/
package generic

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type EventID string

// =============================================================================
// SNAPSHOT - Persisted machine state
// =============================================================================

// Counts is a ledger keyed by item name. Missing names mean zero.
type Counts map[string]int

// Snapshot is the persisted form of one machine.
// Version starts at 1 on create and increases by exactly one per commit.
type Snapshot struct {
	EntityID EntityID
	Version  int64
	Ledgers  map[string]Counts
	Display  string
	TakenAt  time.Time
}

// Clone returns a deep copy, so stores never share maps with callers.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Ledgers = make(map[string]Counts, len(s.Ledgers))
	for name, counts := range s.Ledgers {
		c := make(Counts, len(counts))
		for k, v := range counts {
			c[k] = v
		}
		out.Ledgers[name] = c
	}
	return out
}

// =============================================================================
// EVENT - Append-only transition log
// =============================================================================

type EventType string

const (
	EventCreate         EventType = "create"
	EventInsertCoin     EventType = "insert_coin"
	EventReturnCoins    EventType = "return_coins"
	EventCheckDisplay   EventType = "check_display"
	EventVend           EventType = "vend"
	EventTakeCoinReturn EventType = "take_coin_return"
	EventRestock        EventType = "restock"
	EventLoadCoins      EventType = "load_coins"
)

// Event records one transition. Version is the snapshot version the
// transition produced; Display is the display right after it.
type Event struct {
	ID       EventID
	EntityID EntityID
	Version  int64
	Type     EventType
	Input    string
	Display  string
	At       time.Time
}
