/*
monitor.go - Exact-change monitor

PURPOSE:
  Periodically checks every machine and flags the ones whose machine bank
  can no longer make change for some product. Those machines show EXACT
  CHANGE ONLY to customers; operators see them on GET /api/alerts and in
  the logs so they can load more coins.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Keeps only the latest alert set; a machine stays flagged with its
    original Since time until a check finds it can make change again
  - Logs newly flagged and newly cleared machines once each

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled: Whether the monitor is active (default: true)

USAGE:
  monitor := NewExactChangeMonitor(svc, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - vending/machine.go: CanMakeChange
  - handlers.go: ListAlerts endpoint
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/session"
)

// Alert flags a machine that cannot make change.
type Alert struct {
	MachineID generic.EntityID
	Display   string
	Since     time.Time
}

// ExactChangeMonitor watches machines for an exhausted float.
type ExactChangeMonitor struct {
	Service       *session.Service
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	alertsMu  sync.RWMutex
	alerts    []Alert
	checkedAt time.Time
}

// NewExactChangeMonitor creates a new monitor.
func NewExactChangeMonitor(svc *session.Service, logger *zap.Logger) *ExactChangeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExactChangeMonitor{
		Service:       svc,
		CheckInterval: time.Minute,
		Enabled:       true,
		logger:        logger,
	}
}

// Start begins the monitor.
func (m *ExactChangeMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		m.logger.Info("exact-change monitor disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)

	go m.run(m.ticker, m.stop)

	m.logger.Info("exact-change monitor started", zap.Duration("interval", m.CheckInterval))
}

// Stop stops the monitor and waits for an in-flight check to finish.
func (m *ExactChangeMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.wg.Wait()
	m.ticker = nil
	m.logger.Info("exact-change monitor stopped")
}

func (m *ExactChangeMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	m.check(ctx)

	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-stop:
			return
		}
	}
}

func (m *ExactChangeMonitor) check(ctx context.Context) {
	if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("exact-change check failed", zap.Error(err))
	}
}

// RunOnce checks every machine now and replaces the alert set.
func (m *ExactChangeMonitor) RunOnce(ctx context.Context) ([]Alert, error) {
	sessions, err := m.Service.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	m.alertsMu.Lock()
	defer m.alertsMu.Unlock()

	previous := make(map[generic.EntityID]Alert, len(m.alerts))
	for _, a := range m.alerts {
		previous[a.MachineID] = a
	}

	alerts := []Alert{}
	for _, s := range sessions {
		if s.Machine.CanMakeChange() {
			if _, was := previous[s.ID]; was {
				m.logger.Info("machine can make change again", zap.String("machine_id", string(s.ID)))
			}
			continue
		}

		alert, was := previous[s.ID]
		if !was {
			alert = Alert{MachineID: s.ID, Since: now}
			m.logger.Warn("machine cannot make change",
				zap.String("machine_id", string(s.ID)),
				zap.Int64("float_cents", s.Machine.MachineBank().Balance()),
			)
		}
		alert.Display = s.Machine.Display()
		alerts = append(alerts, alert)
	}

	m.alerts = alerts
	m.checkedAt = now
	return append([]Alert(nil), alerts...), nil
}

// Alerts returns the latest alert set and when it was computed.
func (m *ExactChangeMonitor) Alerts() ([]Alert, time.Time) {
	m.alertsMu.RLock()
	defer m.alertsMu.RUnlock()
	return append([]Alert(nil), m.alerts...), m.checkedAt
}
