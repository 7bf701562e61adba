package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/vending-engine/factory"
	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/generic/store"
	"github.com/warp/vending-engine/session"
	"github.com/warp/vending-engine/vending"
)

var (
	quarter = vending.Coin{Size: vending.SizeLarge, Weight: vending.WeightHeavy}
	dime    = vending.Coin{Size: vending.SizeSmall, Weight: vending.WeightLight}
	slug    = vending.Coin{Size: vending.SizeSmall, Weight: vending.WeightHeavy}
)

func newService(t *testing.T) (*session.Service, context.Context) {
	t.Helper()
	return session.NewService(store.NewMemory(), zap.NewNop()), context.Background()
}

func createStocked(t *testing.T, svc *session.Service, ctx context.Context, id generic.EntityID) session.Session {
	t.Helper()
	_, m, err := factory.ParseMachine(factory.StockedJSON(string(id), 10, 10))
	require.NoError(t, err)
	sess, err := svc.Create(ctx, id, m)
	require.NoError(t, err)
	return sess
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestService_Create(t *testing.T) {
	svc, ctx := newService(t)

	sess := createStocked(t, svc, ctx, "lobby")

	assert.Equal(t, generic.EntityID("lobby"), sess.ID)
	assert.Equal(t, int64(1), sess.Version)
	assert.Equal(t, vending.DisplayInsertCoin, sess.Machine.Display())

	_, err := svc.Create(ctx, "lobby", vending.NewMachine())
	assert.ErrorIs(t, err, generic.ErrDuplicateEntity)
}

func TestService_Create_GeneratesID(t *testing.T) {
	svc, ctx := newService(t)

	a, err := svc.Create(ctx, "", vending.NewMachine())
	require.NoError(t, err)
	b, err := svc.Create(ctx, "", vending.NewMachine())
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestService_GetAndList(t *testing.T) {
	svc, ctx := newService(t)
	createStocked(t, svc, ctx, "b")
	createStocked(t, svc, ctx, "a")

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Machine.Stock(vending.Cola))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generic.EntityID("a"), list[0].ID)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
	_, err = svc.InsertCoin(ctx, "missing", quarter)
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestService_PurchaseFlow(t *testing.T) {
	svc, ctx := newService(t)
	createStocked(t, svc, ctx, "m")

	// GIVEN: three quarters inserted
	for i := 0; i < 3; i++ {
		_, err := svc.InsertCoin(ctx, "m", quarter)
		require.NoError(t, err)
	}

	// WHEN: buying candy
	sess, err := svc.Vend(ctx, "m", vending.Candy)
	require.NoError(t, err)

	// THEN: the change is in the coin return and state survived the round trip
	assert.Equal(t, vending.DisplayThankYou, sess.Machine.Display())
	assert.Equal(t, int64(5), sess.Version)

	stored, err := svc.Get(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Machine.CoinReturn().Balance())
	assert.Equal(t, 9, stored.Machine.Stock(vending.Candy))
	assert.Equal(t, vending.DisplayThankYou, stored.Machine.Display())

	// AND: taking the coin return hands back the dime
	sess, taken, err := svc.TakeCoinReturn(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, taken.Quantity(vending.Dime))
	assert.True(t, sess.Machine.CoinReturn().IsEmpty())

	sess, err = svc.CheckDisplay(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, vending.DisplayInsertCoin, sess.Machine.Display())
}

func TestService_ReturnCoins(t *testing.T) {
	svc, ctx := newService(t)
	createStocked(t, svc, ctx, "m")
	_, err := svc.InsertCoin(ctx, "m", dime)
	require.NoError(t, err)
	_, err = svc.InsertCoin(ctx, "m", slug)
	require.NoError(t, err)

	sess, err := svc.ReturnCoins(ctx, "m")

	require.NoError(t, err)
	assert.Equal(t, vending.DisplayInsertCoin, sess.Machine.Display())
	assert.Equal(t, int64(10), sess.Machine.CoinReturn().Balance())
	assert.Equal(t, 1, sess.Machine.CoinReturn().Quantity(vending.Unknown))
}

func TestService_VendAbsentProduct(t *testing.T) {
	svc, ctx := newService(t)
	createStocked(t, svc, ctx, "m")

	sess, err := svc.Vend(ctx, "m", vending.NoProduct)

	require.NoError(t, err)
	assert.Equal(t, vending.DisplaySoldOut, sess.Machine.Display())
}

func TestService_RestockAndLoadCoins(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.Create(ctx, "m", vending.NewMachine())
	require.NoError(t, err)

	_, err = svc.Restock(ctx, "m", vending.Chips, 4)
	require.NoError(t, err)
	sess, err := svc.LoadCoins(ctx, "m", vending.Nickel, 20)
	require.NoError(t, err)

	assert.Equal(t, 4, sess.Machine.Stock(vending.Chips))
	assert.Equal(t, int64(100), sess.Machine.MachineBank().Balance())

	sess, err = svc.CheckDisplay(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, vending.DisplayInsertCoin, sess.Machine.Display())
}

func TestService_OperatorInputValidation(t *testing.T) {
	svc, ctx := newService(t)
	_, err := svc.Create(ctx, "m", vending.NewMachine())
	require.NoError(t, err)

	_, err = svc.Restock(ctx, "m", vending.NoProduct, 1)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	_, err = svc.Restock(ctx, "m", vending.Cola, 0)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	_, err = svc.LoadCoins(ctx, "m", vending.Unknown, 3)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	_, err = svc.LoadCoins(ctx, "m", vending.Dime, -1)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	events, err := svc.Events(ctx, "m")
	require.NoError(t, err)
	assert.Len(t, events, 1, "rejected operations record nothing")
}

// =============================================================================
// EVENT LOG
// =============================================================================

func TestService_OneEventPerCall(t *testing.T) {
	svc, ctx := newService(t)
	createStocked(t, svc, ctx, "m")

	_, err := svc.InsertCoin(ctx, "m", quarter)
	require.NoError(t, err)
	_, err = svc.Vend(ctx, "m", vending.Cola)
	require.NoError(t, err)
	_, err = svc.CheckDisplay(ctx, "m")
	require.NoError(t, err)

	events, err := svc.Events(ctx, "m")
	require.NoError(t, err)
	require.Len(t, events, 4)

	types := []generic.EventType{
		generic.EventCreate, generic.EventInsertCoin, generic.EventVend, generic.EventCheckDisplay,
	}
	for i, ev := range events {
		assert.Equal(t, types[i], ev.Type)
		assert.Equal(t, int64(i+1), ev.Version)
		assert.NotEmpty(t, ev.ID)
	}
	assert.Equal(t, "LARGE/HEAVY", events[1].Input)
	assert.Equal(t, "COLA", events[2].Input)
	assert.Equal(t, "PRICE $1.00", events[2].Display)
	assert.Equal(t, "$0.25", events[3].Display)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestService_ConcurrentInsertsAreSerialized(t *testing.T) {
	svc, ctx := newService(t)
	createStocked(t, svc, ctx, "m")

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.InsertCoin(ctx, "m", quarter)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sess, err := svc.Get(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, int64(n*25), sess.Machine.CustomerBank().Balance())
	assert.Equal(t, int64(n+1), sess.Version)
}

// conflictOnce fails the first commit as if another process won the race.
type conflictOnce struct {
	generic.Store
	mu      sync.Mutex
	tripped bool
}

func (c *conflictOnce) Commit(ctx context.Context, snap generic.Snapshot, ev generic.Event) error {
	c.mu.Lock()
	trip := !c.tripped
	c.tripped = true
	c.mu.Unlock()
	if trip {
		return &generic.ConflictError{EntityID: snap.EntityID, Stored: snap.Version, Proposed: snap.Version}
	}
	return c.Store.Commit(ctx, snap, ev)
}

func TestService_RetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	st := &conflictOnce{Store: store.NewMemory()}
	svc := session.NewService(st, zap.NewNop())
	_, err := svc.Create(ctx, "m", vending.NewMachine())
	require.NoError(t, err)

	sess, err := svc.InsertCoin(ctx, "m", dime)

	require.NoError(t, err)
	assert.Equal(t, int64(2), sess.Version)
	assert.Equal(t, "$0.10", sess.Machine.Display())
}

// alwaysConflict never lets a commit through.
type alwaysConflict struct {
	generic.Store
}

func (alwaysConflict) Commit(_ context.Context, snap generic.Snapshot, _ generic.Event) error {
	return &generic.ConflictError{EntityID: snap.EntityID, Stored: snap.Version, Proposed: snap.Version}
}

func TestService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	svc := session.NewService(alwaysConflict{Store: store.NewMemory()}, nil)
	_, err := svc.Create(ctx, "m", vending.NewMachine())
	require.NoError(t, err)

	_, err = svc.InsertCoin(ctx, "m", dime)

	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
}
