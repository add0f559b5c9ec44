// Package sirihub wires the real-time transit data hub together: the four
// differential data stores, the subscription registry and health monitor,
// the push dispatcher and the HTTP surface. The App is constructed once at
// process start and passed by reference into request handling; there is no
// ambient global state.
package sirihub

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/juju/clock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/theoremus-urban-solutions/siri-hub/config"
	"github.com/theoremus-urban-solutions/siri-hub/push"
	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/store"
	"github.com/theoremus-urban-solutions/siri-hub/subscription"
	"github.com/theoremus-urban-solutions/siri-hub/ttlkv"
)

// App is the long-lived context object holding every service of the hub.
type App struct {
	Config config.AppConfig

	Situations           *store.Store[*siri.PtSituationElement]
	VehicleActivities    *store.Store[*siri.VehicleActivity]
	EstimatedTimetables  *store.Store[*siri.EstimatedVehicleJourney]
	ProductionTimetables *store.Store[*siri.ProductionTimetableDelivery]

	Registry   *subscription.Registry
	Dispatcher *push.Dispatcher

	StartedAt time.Time

	log     *slog.Logger
	clock   clock.Clock
	server  *http.Server
	nc      *nats.Conn
	closers []func()
}

// backendFactory builds the hub's TTL maps, either process-local or on a
// shared NATS JetStream KV backend depending on configuration.
type backendFactory struct {
	js     jetstream.JetStream
	prefix string
	sweep  time.Duration
	clk    clock.Clock
	log    *slog.Logger
}

func newMap[V any](ctx context.Context, f *backendFactory, name string) (ttlkv.Map[V], func(), error) {
	if f.js == nil {
		m := ttlkv.NewLocal[V](f.clk, f.sweep)
		return m, m.Close, nil
	}
	m, err := ttlkv.NewKV[V](ctx, f.js, f.prefix+"-"+name, f.clk, f.log)
	if err != nil {
		return nil, nil, fmt.Errorf("open bucket %s-%s: %w", f.prefix, name, err)
	}
	return m, func() {}, nil
}

func newStoreBackend[T any](ctx context.Context, f *backendFactory, name string) (store.Backend[T], []func(), error) {
	var closers []func()
	entries, closeEntries, err := newMap[store.Record[T]](ctx, f, name+"-records")
	if err != nil {
		return store.Backend[T]{}, nil, err
	}
	closers = append(closers, closeEntries)
	pending, closePending, err := newMap[[]string](ctx, f, name+"-changes")
	if err != nil {
		return store.Backend[T]{}, closers, err
	}
	closers = append(closers, closePending)
	lastPoll, closePolls, err := newMap[time.Time](ctx, f, name+"-requests")
	if err != nil {
		return store.Backend[T]{}, closers, err
	}
	closers = append(closers, closePolls)
	return store.Backend[T]{Entries: entries, Pending: pending, LastPoll: lastPoll}, closers, nil
}

// New assembles the hub from its configuration. Close must be called to
// release the backing maps and any NATS connection.
func New(ctx context.Context, cfg config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{
		Config:    cfg,
		StartedAt: time.Now(),
		log:       log,
		clock:     clock.WallClock,
	}

	factory := &backendFactory{
		prefix: cfg.NATS.BucketPrefix,
		sweep:  time.Duration(cfg.Store.SweepIntervalSeconds) * time.Second,
		clk:    a.clock,
		log:    log,
	}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("open jetstream: %w", err)
		}
		a.nc = nc
		factory.js = js
		log.Info("using shared key-value backend", "url", cfg.NATS.URL)
	}

	opts := store.Options{
		TrackingWindow: time.Duration(cfg.Store.TrackingPeriodMinutes) * time.Minute,
		Clock:          a.clock,
		Logger:         log,
	}
	etGrace := time.Duration(cfg.Store.ETGraceSeconds) * time.Second

	sxBackend, closers, err := newStoreBackend[*siri.PtSituationElement](ctx, factory, "sx")
	a.closers = append(a.closers, closers...)
	if err != nil {
		a.Close()
		return nil, err
	}
	vmBackend, closers, err := newStoreBackend[*siri.VehicleActivity](ctx, factory, "vm")
	a.closers = append(a.closers, closers...)
	if err != nil {
		a.Close()
		return nil, err
	}
	etBackend, closers, err := newStoreBackend[*siri.EstimatedVehicleJourney](ctx, factory, "et")
	a.closers = append(a.closers, closers...)
	if err != nil {
		a.Close()
		return nil, err
	}
	ptBackend, closers, err := newStoreBackend[*siri.ProductionTimetableDelivery](ctx, factory, "pt")
	a.closers = append(a.closers, closers...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Situations = store.New(store.Situations(), sxBackend, opts)
	a.VehicleActivities = store.New(store.VehicleActivities(), vmBackend, opts)
	a.EstimatedTimetables = store.New(store.EstimatedTimetables(etGrace), etBackend, opts)
	a.ProductionTimetables = store.New(store.ProductionTimetables(), ptBackend, opts)

	maps, closers, err := newRegistryMaps(ctx, factory)
	a.closers = append(a.closers, closers...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry = subscription.NewRegistry(maps, a.clock, log)
	for _, sc := range cfg.Subscriptions {
		a.Registry.Add(ctx, setupFromConfig(sc))
	}

	a.Dispatcher = push.NewDispatcher(0, "application/json", log)
	return a, nil
}

func newRegistryMaps(ctx context.Context, f *backendFactory) (subscription.Maps, []func(), error) {
	var maps subscription.Maps
	var closers []func()

	setups, closeSetups, err := newMap[subscription.Setup](ctx, f, "subscriptions")
	if err != nil {
		return maps, closers, err
	}
	closers = append(closers, closeSetups)
	lastActivity, closeActivity, err := newMap[time.Time](ctx, f, "last-activity")
	if err != nil {
		return maps, closers, err
	}
	closers = append(closers, closeActivity)
	activatedAt, closeActivated, err := newMap[time.Time](ctx, f, "activated")
	if err != nil {
		return maps, closers, err
	}
	closers = append(closers, closeActivated)
	hits, closeHits, err := newMap[int64](ctx, f, "hitcount")
	if err != nil {
		return maps, closers, err
	}
	closers = append(closers, closeHits)
	bytes, closeBytes, err := newMap[*big.Int](ctx, f, "bytecount")
	if err != nil {
		return maps, closers, err
	}
	closers = append(closers, closeBytes)

	maps = subscription.Maps{
		Setups:       setups,
		LastActivity: lastActivity,
		ActivatedAt:  activatedAt,
		HitCount:     hits,
		ByteCount:    bytes,
	}
	return maps, closers, nil
}

func setupFromConfig(sc config.SubscriptionConfig) subscription.Setup {
	urls := make(map[subscription.RequestType]string, len(sc.URLs))
	for requestType, url := range sc.URLs {
		urls[subscription.RequestType(requestType)] = url
	}
	return subscription.Setup{
		ID:                sc.ID,
		InternalID:        sc.InternalID,
		DatasetID:         sc.DatasetID,
		Vendor:            sc.Vendor,
		DataType:          subscription.DataType(sc.DataType),
		Mode:              subscription.Mode(sc.Mode),
		URLs:              urls,
		HeartbeatInterval: time.Duration(sc.HeartbeatSeconds) * time.Second,
		Duration:          time.Duration(sc.DurationSeconds) * time.Second,
	}
}

// Close releases the hub's resources.
func (a *App) Close() {
	for _, closer := range a.closers {
		closer()
	}
	a.closers = nil
	if a.nc != nil {
		a.nc.Close()
		a.nc = nil
	}
}

// ElementCounts returns the live record count per data category.
func (a *App) ElementCounts(ctx context.Context) map[string]int {
	return map[string]int{
		"sx": a.Situations.Size(ctx),
		"vm": a.VehicleActivities.Size(ctx),
		"et": a.EstimatedTimetables.Size(ctx),
		"pt": a.ProductionTimetables.Size(ctx),
	}
}

// RunHousekeeping sweeps expired records from all stores on the configured
// interval until ctx is cancelled. This backstop coexists with the maps'
// native per-entry expiry.
func (a *App) RunHousekeeping(ctx context.Context) {
	interval := time.Duration(a.Config.Store.CleanupIntervalSeconds) * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.clock.After(interval):
			a.Situations.Cleanup(ctx)
			a.VehicleActivities.Cleanup(ctx)
			a.EstimatedTimetables.Cleanup(ctx)
			a.ProductionTimetables.Cleanup(ctx)
		}
	}
}

// RunHealthMonitor periodically evaluates subscription health until ctx is
// cancelled. Unhealthy subscriptions are handed to reconnector.
func (a *App) RunHealthMonitor(ctx context.Context, reconnector subscription.Reconnector) {
	interval := time.Duration(a.Config.Monitor.IntervalSeconds) * time.Second
	monitor := subscription.NewMonitor(a.Registry, reconnector, interval, a.clock, a.log)
	monitor.Run(ctx)
}
