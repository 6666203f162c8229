package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/aggregator"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/bus"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/connmgr"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/obs"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/scheduler"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/source"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/store"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/exception"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/singleflight"
)

// Config is supplied whole by the caller; the engine never reads the
// environment itself.
type Config struct {
	SyncInterval   time.Duration // default 30s
	MaxRetries     int           // default 3
	BaseRetryDelay time.Duration // default 5s
	SourceTimeout  time.Duration // default 10s
	EventBuffer    int           // per-subscriber queue capacity, default 64

	// PushURL empty disables the push channel; the periodic path still runs.
	PushURL   string
	AuthToken string
	UserID    string

	// Transport overrides the websocket transport, for tests.
	Transport connmgr.Transport
}

// SyncState is a point-in-time copy of the engine's sync status.
type SyncState struct {
	Connected           bool
	LastSyncTime        time.Time
	RetryCount          int
	ConsecutiveFailures int
	SyncInterval        time.Duration
}

// Engine is one explicitly constructed synchronization engine instance.
// Collaborators wire it up themselves; there is no shared global.
type Engine struct {
	cfg   Config
	bus   *bus.Bus
	store *store.Store
	agg   *aggregator.Aggregator
	sched *scheduler.Scheduler
	conn  *connmgr.Manager

	mu      sync.Mutex
	state   SyncState
	sf      singleflight.Group
	metrics *obs.Metrics

	cancel  context.CancelFunc
	started atomic.Bool
	stopped atomic.Bool
}

// New wires an engine over an ordered adapter list. The adapter set is
// fixed; changing it requires a new engine.
func New(cfg Config, adapters []source.Adapter) (*Engine, error) {
	if len(adapters) == 0 {
		return nil, exception.ErrNoAdapters
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = scheduler.DefaultInterval
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = aggregator.DefaultSourceTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}

	e := &Engine{cfg: cfg, metrics: obs.NewMetrics()}
	e.state.SyncInterval = cfg.SyncInterval
	e.bus = bus.New(cfg.EventBuffer)
	e.store = store.New(e.bus)
	e.agg = aggregator.New(adapters, e.store, cfg.SourceTimeout)
	e.sched = scheduler.New(cfg.SyncInterval, e.syncOnce, nil)

	if cfg.PushURL != "" {
		transport := cfg.Transport
		if transport == nil {
			transport = connmgr.NewWebsocketTransport(nil)
		}
		e.conn = connmgr.New(connmgr.Config{
			URL:        cfg.PushURL,
			Token:      cfg.AuthToken,
			UserID:     cfg.UserID,
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.BaseRetryDelay,
			OnState:    e.onConnState,
		}, transport, e.store, e.bus)
	}
	return e, nil
}

// Start launches the push channel and the periodic scheduler, and triggers
// one immediate sync so callers have data before the first tick.
func (e *Engine) Start(parent context.Context) error {
	if e.stopped.Load() {
		return exception.ErrEngineStopped
	}
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel

	if e.conn != nil {
		e.conn.Start(ctx)
	}
	e.sched.Start(ctx)
	e.sched.Trigger()
	logs.Infof("sync engine started, interval: %s, sources: %d, push: %t",
		e.cfg.SyncInterval, e.agg.SourceCount(), e.conn != nil)
	return nil
}

// Shutdown tears the engine down in dependency order: push channel first,
// then in-flight fetches, then the timer, then subscriber streams, so no
// component publishes into a torn-down bus.
func (e *Engine) Shutdown() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	if e.conn != nil {
		e.conn.Stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.sched.Stop()
	e.bus.Close()
	logs.Info("sync engine stopped")
}

// Subscribe registers an event stream for the given kinds (all kinds when
// empty). Events published before Subscribe are not replayed.
func (e *Engine) Subscribe(kinds ...enum.EventKind) *bus.Subscriber {
	return e.bus.Subscribe(kinds...)
}

// Bus exposes the event bus for sinks that manage their own subscription,
// such as the archive writer.
func (e *Engine) Bus() *bus.Bus {
	return e.bus
}

// CurrentProperties returns a copy of the canonical property set.
func (e *Engine) CurrentProperties() []model.PropertyRecord {
	return e.store.Properties()
}

// CurrentMarketData returns the market snapshot for a location, if known.
func (e *Engine) CurrentMarketData(location string) (model.MarketSnapshot, bool) {
	return e.store.MarketData(location)
}

// CurrentNeighborhood returns the neighborhood snapshot by name, if known.
func (e *Engine) CurrentNeighborhood(name string) (model.NeighborhoodSnapshot, bool) {
	return e.store.Neighborhood(name)
}

// ForceSync runs one sync cycle now. Concurrent callers share a single
// cycle. The returned error is non-nil only on a total failure, which
// leaves previously synced data intact.
func (e *Engine) ForceSync(ctx context.Context) (aggregator.Result, error) {
	if e.stopped.Load() {
		return aggregator.Result{}, exception.ErrEngineStopped
	}
	result := e.syncOnce(ctx)
	return result, result.Err()
}

// NotifyConnectivityRestored signals that the network is back: wakes a
// suspended push channel and triggers one immediate out-of-band sync.
func (e *Engine) NotifyConnectivityRestored() {
	if e.stopped.Load() {
		return
	}
	if e.conn != nil {
		if err := e.conn.NotifyConnectivityRestored(); err != nil {
			logs.Infof("push channel wake skipped: %s", err)
		}
	}
	e.sched.Trigger()
}

// Metrics returns cumulative sync-cycle counters and latency stats.
func (e *Engine) Metrics() obs.Snapshot {
	return e.metrics.Snapshot()
}

// State returns a copy of the current sync state. Staleness of
// LastSyncTime is the caller's "data may be out of date" signal.
func (e *Engine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) syncOnce(ctx context.Context) aggregator.Result {
	v, _, _ := e.sf.Do("sync", func() (any, error) {
		result := e.agg.Run(ctx)
		e.recordCycle(result)
		return result, nil
	})
	return v.(aggregator.Result)
}

// recordCycle always advances LastSyncTime, total failures included: the
// attempt itself is recorded, and the consecutive-failure counter carries
// the diagnostics.
func (e *Engine) recordCycle(result aggregator.Result) {
	e.metrics.ObserveCycle(result.Added, result.Updated, result.Unchanged,
		result.FailedSources, result.TotalFailure(), result.Duration)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.LastSyncTime = time.Now()
	if result.TotalFailure() {
		e.state.ConsecutiveFailures++
	} else {
		e.state.ConsecutiveFailures = 0
	}
}

func (e *Engine) onConnState(state enum.ConnState, retryCount int) {
	e.mu.Lock()
	e.state.Connected = state == enum.ConnConnected
	e.state.RetryCount = retryCount
	e.mu.Unlock()
}
