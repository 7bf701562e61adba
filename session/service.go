/*
Package session runs vending machines on top of a generic.Store.

PURPOSE:
  The vending core is pure: a Machine transition is a function from one
  value to the next. Service turns that into a persistent, concurrent
  system. Each call loads the machine's latest snapshot, applies one
  transition, commits the new snapshot and records one event.

CONCURRENCY:
  Calls for the same machine are serialized by a mutex held across
  load -> transition -> commit. Mutexes come from a fixed stripe set keyed
  by a hash of the machine ID, so unknown IDs cost no memory. Two machines
  only contend when they share a stripe. A commit that still loses a
  version race (another process sharing the database) is retried from a
  fresh load.

EVENTS:
  create, insert_coin, return_coins, check_display, vend,
  take_coin_return, restock, load_coins. Each carries the display the
  transition left behind.

SEE ALSO:
  - vending/machine.go: transitions
  - generic/store.go: persistence contract
  - api/handlers.go: HTTP surface
*/
package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/vending"
)

const (
	// maxCommitAttempts bounds retries after a version conflict.
	maxCommitAttempts = 3
	lockStripes       = 64
)

// Session is a machine together with its identity and stored version.
type Session struct {
	ID      generic.EntityID
	Version int64
	Machine vending.Machine
}

type Service struct {
	store  generic.Store
	logger *zap.Logger

	locks [lockStripes]sync.Mutex
}

func NewService(store generic.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Create persists m as a new machine at version 1. An empty id gets a
// generated UUID.
func (s *Service) Create(ctx context.Context, id generic.EntityID, m vending.Machine) (Session, error) {
	if id == "" {
		id = generic.EntityID(uuid.NewString())
	}
	unlock := s.lock(id)
	defer unlock()

	snap := m.Snapshot(id, 1)
	if err := s.store.Create(ctx, snap, s.event(id, 1, generic.EventCreate, "", m.Display())); err != nil {
		return Session{}, fmt.Errorf("create machine %s: %w", id, err)
	}
	s.logger.Info("machine created",
		zap.String("machine_id", string(id)),
		zap.String("display", m.Display()),
	)
	return Session{ID: id, Version: 1, Machine: m}, nil
}

func (s *Service) Get(ctx context.Context, id generic.EntityID) (Session, error) {
	snap, err := s.store.Load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return fromSnapshot(snap)
}

// List returns every machine ordered by ID.
func (s *Service) List(ctx context.Context) ([]Session, error) {
	snaps, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(snaps))
	for _, snap := range snaps {
		sess, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *Service) Events(ctx context.Context, id generic.EntityID) ([]generic.Event, error) {
	return s.store.Events(ctx, id)
}

// =============================================================================
// CUSTOMER OPERATIONS
// =============================================================================

func (s *Service) InsertCoin(ctx context.Context, id generic.EntityID, coin vending.Coin) (Session, error) {
	return s.apply(ctx, id, generic.EventInsertCoin, coin.String(), func(m vending.Machine) vending.Machine {
		return m.InsertCoin(coin)
	})
}

func (s *Service) ReturnCoins(ctx context.Context, id generic.EntityID) (Session, error) {
	return s.apply(ctx, id, generic.EventReturnCoins, "", vending.Machine.ReturnCoins)
}

func (s *Service) CheckDisplay(ctx context.Context, id generic.EntityID) (Session, error) {
	return s.apply(ctx, id, generic.EventCheckDisplay, "", vending.Machine.CheckDisplay)
}

// Vend selects product. NoProduct is accepted and vends as SOLD OUT.
func (s *Service) Vend(ctx context.Context, id generic.EntityID, product vending.Product) (Session, error) {
	return s.apply(ctx, id, generic.EventVend, product.String(), func(m vending.Machine) vending.Machine {
		return m.Vend(product)
	})
}

// TakeCoinReturn empties the coin return and returns what was in it.
func (s *Service) TakeCoinReturn(ctx context.Context, id generic.EntityID) (Session, vending.Bank, error) {
	var taken vending.Bank
	sess, err := s.apply(ctx, id, generic.EventTakeCoinReturn, "", func(m vending.Machine) vending.Machine {
		next, coins := m.TakeCoinReturn()
		taken = coins
		return next
	})
	if err != nil {
		return Session{}, vending.Bank{}, err
	}
	return sess, taken, nil
}

// =============================================================================
// SERVICE OPERATIONS
// =============================================================================

// Restock adds quantity of product. Operators must name a catalog product
// and a positive quantity.
func (s *Service) Restock(ctx context.Context, id generic.EntityID, product vending.Product, quantity int) (Session, error) {
	if product == vending.NoProduct {
		return Session{}, fmt.Errorf("%w: restock needs a product", generic.ErrInvalidInput)
	}
	if quantity <= 0 {
		return Session{}, fmt.Errorf("%w: restock quantity must be positive, got %d", generic.ErrInvalidInput, quantity)
	}
	input := product.String() + "x" + strconv.Itoa(quantity)
	return s.apply(ctx, id, generic.EventRestock, input, func(m vending.Machine) vending.Machine {
		return m.Restock(product, quantity)
	})
}

// LoadCoins adds quantity coins of d to the machine bank.
func (s *Service) LoadCoins(ctx context.Context, id generic.EntityID, d vending.Denomination, quantity int) (Session, error) {
	if d == vending.Unknown {
		return Session{}, fmt.Errorf("%w: cannot load unknown coins", generic.ErrInvalidInput)
	}
	if quantity <= 0 {
		return Session{}, fmt.Errorf("%w: coin quantity must be positive, got %d", generic.ErrInvalidInput, quantity)
	}
	input := d.String() + "x" + strconv.Itoa(quantity)
	return s.apply(ctx, id, generic.EventLoadCoins, input, func(m vending.Machine) vending.Machine {
		return m.LoadCoins(d, quantity)
	})
}

// =============================================================================
// INTERNALS
// =============================================================================

// apply runs one transition under the machine's lock.
func (s *Service) apply(
	ctx context.Context,
	id generic.EntityID,
	typ generic.EventType,
	input string,
	transition func(vending.Machine) vending.Machine,
) (Session, error) {
	unlock := s.lock(id)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		var sess Session
		sess, err = s.applyOnce(ctx, id, typ, input, transition)
		if err == nil {
			return sess, nil
		}
		if !generic.IsRetryable(err) {
			return Session{}, err
		}
		s.logger.Warn("commit conflict, retrying",
			zap.String("machine_id", string(id)),
			zap.String("event", string(typ)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return Session{}, err
}

func (s *Service) applyOnce(
	ctx context.Context,
	id generic.EntityID,
	typ generic.EventType,
	input string,
	transition func(vending.Machine) vending.Machine,
) (Session, error) {
	snap, err := s.store.Load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	current, err := vending.FromSnapshot(snap)
	if err != nil {
		return Session{}, fmt.Errorf("machine %s: %w", id, err)
	}

	next := transition(current)
	version := snap.Version + 1
	ev := s.event(id, version, typ, input, next.Display())
	if err := s.store.Commit(ctx, next.Snapshot(id, version), ev); err != nil {
		return Session{}, err
	}

	s.logger.Debug("transition applied",
		zap.String("machine_id", string(id)),
		zap.String("event", string(typ)),
		zap.String("input", input),
		zap.String("display", next.Display()),
		zap.Int64("version", version),
	)
	return Session{ID: id, Version: version, Machine: next}, nil
}

func (s *Service) event(id generic.EntityID, version int64, typ generic.EventType, input, display string) generic.Event {
	return generic.Event{
		ID:       generic.EventID(uuid.NewString()),
		EntityID: id,
		Version:  version,
		Type:     typ,
		Input:    input,
		Display:  display,
		At:       time.Now().UTC(),
	}
}

// lock acquires the machine's stripe and returns its release.
func (s *Service) lock(id generic.EntityID) func() {
	l := &s.locks[stripe(id)]
	l.Lock()
	return l.Unlock
}

func stripe(id generic.EntityID) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32() % lockStripes
}

func fromSnapshot(snap generic.Snapshot) (Session, error) {
	m, err := vending.FromSnapshot(snap)
	if err != nil {
		return Session{}, fmt.Errorf("machine %s: %w", snap.EntityID, err)
	}
	return Session{ID: snap.EntityID, Version: snap.Version, Machine: m}, nil
}
