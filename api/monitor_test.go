package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/generic/store"
	"github.com/warp/vending-engine/session"
	"github.com/warp/vending-engine/vending"
)

func TestMonitor_FlagsAndClears(t *testing.T) {
	// GIVEN: one empty machine
	ctx := context.Background()
	svc := session.NewService(store.NewMemory(), zap.NewNop())
	_, err := svc.Create(ctx, "m", vending.NewMachine())
	require.NoError(t, err)
	monitor := NewExactChangeMonitor(svc, zap.NewNop())

	// WHEN: checking
	alerts, err := monitor.RunOnce(ctx)

	// THEN: it is flagged
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, generic.EntityID("m"), alerts[0].MachineID)
	since := alerts[0].Since

	// AND: stays flagged with its original time
	alerts, err = monitor.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, since, alerts[0].Since)

	// AND: clears once the float can make change
	for _, d := range []vending.Denomination{vending.Quarter, vending.Dime, vending.Nickel} {
		_, err = svc.LoadCoins(ctx, "m", d, 5)
		require.NoError(t, err)
	}
	alerts, err = monitor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	current, checkedAt := monitor.Alerts()
	assert.Empty(t, current)
	assert.False(t, checkedAt.IsZero())
}

func TestMonitor_StartStop(t *testing.T) {
	ctx := context.Background()
	svc := session.NewService(store.NewMemory(), zap.NewNop())
	_, err := svc.Create(ctx, "m", vending.NewMachine())
	require.NoError(t, err)

	monitor := NewExactChangeMonitor(svc, zap.NewNop())
	monitor.CheckInterval = 10 * time.Millisecond
	monitor.Start()
	monitor.Start()

	assert.Eventually(t, func() bool {
		alerts, _ := monitor.Alerts()
		return len(alerts) == 1
	}, time.Second, 5*time.Millisecond)

	monitor.Stop()
	monitor.Stop()
}

func TestMonitor_Disabled(t *testing.T) {
	monitor := NewExactChangeMonitor(session.NewService(store.NewMemory(), nil), nil)
	monitor.Enabled = false

	monitor.Start()
	monitor.Stop()

	_, checkedAt := monitor.Alerts()
	assert.True(t, checkedAt.IsZero())
}
