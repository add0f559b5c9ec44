package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/juju/clock"
)

// Reconnector re-establishes an upstream subscription. The monitor only
// decides that re-establishment is needed; the transport doing it lives
// outside the core.
type Reconnector interface {
	Reconnect(ctx context.Context, setup Setup)
}

// ReconnectorFunc adapts a function to the Reconnector interface.
type ReconnectorFunc func(ctx context.Context, setup Setup)

func (f ReconnectorFunc) Reconnect(ctx context.Context, setup Setup) { f(ctx, setup) }

// Monitor periodically evaluates the health of every active subscription
// and hands unhealthy ones to the Reconnector. Each pass is idempotent
// and safe to run on overlapping schedules.
type Monitor struct {
	registry    *Registry
	reconnector Reconnector
	interval    time.Duration
	clock       clock.Clock
	log         *slog.Logger
}

// NewMonitor creates a Monitor polling the registry every interval.
func NewMonitor(registry *Registry, reconnector Reconnector, interval time.Duration, clk clock.Clock, log *slog.Logger) *Monitor {
	if clk == nil {
		clk = clock.WallClock
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		registry:    registry,
		reconnector: reconnector,
		interval:    interval,
		clock:       clk,
		log:         log,
	}
}

// Run evaluates subscriptions until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.interval):
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single evaluation pass.
func (m *Monitor) RunOnce(ctx context.Context) {
	for _, id := range m.registry.IDs(ctx) {
		setup, ok := m.registry.Get(ctx, id)
		if !ok || !setup.Active {
			continue
		}
		if m.registry.IsHealthy(ctx, id) {
			continue
		}
		m.log.Warn("subscription unhealthy, requesting re-establishment", "subscription", id, "dataset", setup.DatasetID)
		m.reconnector.Reconnect(ctx, setup)
	}
}
