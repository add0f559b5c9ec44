package subscription

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/juju/clock"

	"github.com/theoremus-urban-solutions/siri-hub/ttlkv"
)

// healthCheckIntervalFactor is how many heartbeat intervals a subscription
// may stay silent before it is considered unhealthy.
const healthCheckIntervalFactor = 5

// defaultHeartbeatInterval is assumed when a setup declares none.
const defaultHeartbeatInterval = 5 * time.Minute

// Maps bundles the registry's backing maps. Setups and runtime counters
// live in separate maps so soft removal can keep the counters.
type Maps struct {
	Setups       ttlkv.Map[Setup]
	LastActivity ttlkv.Map[time.Time]
	ActivatedAt  ttlkv.Map[time.Time]
	HitCount     ttlkv.Map[int64]
	ByteCount    ttlkv.Map[*big.Int]
}

// Registry holds per-upstream-feed configuration and runtime counters and
// answers the liveness questions the rest of the hub asks about them.
type Registry struct {
	maps  Maps
	clock clock.Clock
	log   *slog.Logger
}

// NewRegistry creates a Registry over the given maps.
func NewRegistry(maps Maps, clk clock.Clock, log *slog.Logger) *Registry {
	if clk == nil {
		clk = clock.WallClock
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{maps: maps, clock: clk, log: log}
}

// Add registers a subscription and stamps its activation timestamp.
func (r *Registry) Add(ctx context.Context, setup Setup) {
	r.maps.Setups.Set(ctx, setup.ID, setup, 0)
	r.maps.ActivatedAt.Set(ctx, setup.ID, r.clock.Now(), 0)
	r.log.Debug("added subscription", "subscription", setup.ID, "dataset", setup.DatasetID, "type", setup.DataType)
}

// Remove deactivates a subscription. Soft removal (force=false) flips the
// active flag and keeps the runtime counters and timestamps; forced
// removal deletes the setup and every counter, irreversibly. It reports
// whether the subscription was known.
func (r *Registry) Remove(ctx context.Context, subscriptionID string, force bool) bool {
	setup, found := r.maps.Setups.Get(ctx, subscriptionID)

	if force {
		r.maps.Setups.Delete(ctx, subscriptionID)
		r.maps.ActivatedAt.Delete(ctx, subscriptionID)
		r.maps.LastActivity.Delete(ctx, subscriptionID)
		r.maps.HitCount.Delete(ctx, subscriptionID)
		r.maps.ByteCount.Delete(ctx, subscriptionID)
		r.log.Info("deleted subscription", "subscription", subscriptionID, "found", found)
	} else if found {
		setup.Active = false
		r.maps.Setups.Set(ctx, subscriptionID, setup, 0)
		r.log.Info("deactivated subscription", "subscription", subscriptionID)
	}
	return found
}

// Touch records a heartbeat: it increments the hit counter and refreshes
// the last-activity timestamp. It reports false for an unknown
// subscription.
func (r *Registry) Touch(ctx context.Context, subscriptionID string) bool {
	_, found := r.maps.Setups.Get(ctx, subscriptionID)
	r.hit(ctx, subscriptionID)
	if found {
		r.maps.LastActivity.Set(ctx, subscriptionID, r.clock.Now(), 0)
	}
	return found
}

// TouchWithServiceStart handles a heartbeat that reports when the upstream
// service started. A start time at or before our recorded activity is a
// normal heartbeat. A start time after it means the upstream has restarted
// since we last heard from it: the last-activity timestamp is backdated
// past the unhealthy threshold so the health evaluator forces
// re-establishment on its next pass.
func (r *Registry) TouchWithServiceStart(ctx context.Context, subscriptionID string, serviceStartedAt time.Time) bool {
	setup, found := r.maps.Setups.Get(ctx, subscriptionID)
	if !found || serviceStartedAt.IsZero() {
		return false
	}
	last, ok := r.maps.LastActivity.Get(ctx, subscriptionID)
	if !ok || !serviceStartedAt.After(last) {
		return r.Touch(ctx, subscriptionID)
	}

	r.log.Info("upstream service restarted, forcing re-subscription", "subscription", subscriptionID)
	backdate := time.Duration(healthCheckIntervalFactor+1) * r.heartbeatInterval(setup)
	r.maps.LastActivity.Set(ctx, subscriptionID, r.clock.Now().Add(-backdate), 0)
	return false
}

// ActivatePending flips a registered subscription to active and refreshes
// its activity and activation timestamps. It reports false for an unknown
// subscription.
func (r *Registry) ActivatePending(ctx context.Context, subscriptionID string) bool {
	setup, found := r.maps.Setups.Get(ctx, subscriptionID)
	if !found {
		r.log.Warn("pending subscription not found", "subscription", subscriptionID)
		return false
	}
	setup.Active = true
	r.maps.Setups.Set(ctx, subscriptionID, setup, 0)
	now := r.clock.Now()
	r.maps.LastActivity.Set(ctx, subscriptionID, now, 0)
	r.maps.ActivatedAt.Set(ctx, subscriptionID, now, 0)
	r.log.Info("pending subscription activated", "subscription", subscriptionID)
	return true
}

// Start handles a request to (re)start a subscription.
func (r *Registry) Start(ctx context.Context, subscriptionID string) {
	if _, found := r.maps.Setups.Get(ctx, subscriptionID); found {
		r.ActivatePending(ctx, subscriptionID)
		r.log.Info("handled request to start subscription", "subscription", subscriptionID)
	}
}

// Stop handles a request to cancel a subscription; the setup is kept,
// deactivated, with its counters.
func (r *Registry) Stop(ctx context.Context, subscriptionID string) {
	if _, found := r.maps.Setups.Get(ctx, subscriptionID); found {
		r.Remove(ctx, subscriptionID, false)
		r.log.Info("handled request to stop subscription", "subscription", subscriptionID)
	}
}

// IsActive reports whether the subscription exists and is active.
func (r *Registry) IsActive(ctx context.Context, subscriptionID string) bool {
	setup, found := r.maps.Setups.Get(ctx, subscriptionID)
	return found && setup.Active
}

// IsNew reports whether the subscription has never shown activity.
func (r *Registry) IsNew(ctx context.Context, subscriptionID string) bool {
	_, ok := r.maps.LastActivity.Get(ctx, subscriptionID)
	return !ok
}

// IsRegistered reports whether the subscription is known.
func (r *Registry) IsRegistered(ctx context.Context, subscriptionID string) bool {
	_, found := r.maps.Setups.Get(ctx, subscriptionID)
	return found
}

// IsHealthy evaluates the liveness of a subscription. A subscription with
// no recorded activity gets the benefit of the doubt: it may simply not
// have been started yet. After that, silence for more than five heartbeat
// intervals is unhealthy, and a SUBSCRIBE-mode subscription is also
// unhealthy once its lease has run out regardless of heartbeats.
func (r *Registry) IsHealthy(ctx context.Context, subscriptionID string) bool {
	last, ok := r.maps.LastActivity.Get(ctx, subscriptionID)
	if !ok {
		return true
	}

	setup, found := r.maps.Setups.Get(ctx, subscriptionID)
	if !found {
		return true
	}

	allowed := time.Duration(healthCheckIntervalFactor) * r.heartbeatInterval(setup)
	if last.Before(r.clock.Now().Add(-allowed)) {
		return false
	}

	if setup.Mode == Subscribe {
		// Only actual subscriptions have a lease; request/response
		// "subscriptions" do not expire.
		if activated, ok := r.maps.ActivatedAt.Get(ctx, subscriptionID); ok {
			if activated.Add(setup.Duration).Before(r.clock.Now()) {
				r.log.Info("subscription outlived its initial duration", "subscription", subscriptionID)
				return false
			}
		}
	}
	return true
}

// Get returns the setup for a subscription id.
func (r *Registry) Get(ctx context.Context, subscriptionID string) (Setup, bool) {
	return r.maps.Setups.Get(ctx, subscriptionID)
}

// ByInternalID returns the setup carrying the given internal id.
func (r *Registry) ByInternalID(ctx context.Context, internalID int64) (Setup, bool) {
	for _, id := range r.maps.Setups.Keys(ctx) {
		if setup, ok := r.maps.Setups.Get(ctx, id); ok && setup.InternalID == internalID {
			return setup, true
		}
	}
	return Setup{}, false
}

// IDs returns the ids of all registered subscriptions.
func (r *Registry) IDs(ctx context.Context) []string {
	return r.maps.Setups.Keys(ctx)
}

// Size returns the number of registered subscriptions.
func (r *Registry) Size(ctx context.Context) int {
	return r.maps.Setups.Len(ctx)
}

// AddBytes accumulates the size of a received delivery into the
// subscription's byte counter. The counter is arbitrary-precision and
// never wraps.
func (r *Registry) AddBytes(ctx context.Context, subscriptionID string, size int) {
	if subscriptionID == "" {
		return
	}
	r.maps.ByteCount.Update(ctx, subscriptionID, func(old *big.Int, exists bool) (*big.Int, time.Duration, ttlkv.Op) {
		if !exists || old == nil {
			old = big.NewInt(0)
		}
		return new(big.Int).Add(old, big.NewInt(int64(size))), 0, ttlkv.Put
	})
}

func (r *Registry) hit(ctx context.Context, subscriptionID string) {
	r.maps.HitCount.Update(ctx, subscriptionID, func(old int64, exists bool) (int64, time.Duration, ttlkv.Op) {
		return old + 1, 0, ttlkv.Put
	})
}

func (r *Registry) heartbeatInterval(setup Setup) time.Duration {
	if setup.HeartbeatInterval <= 0 {
		return defaultHeartbeatInterval
	}
	return setup.HeartbeatInterval
}
