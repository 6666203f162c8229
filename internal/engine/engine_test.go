package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/source"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/exception"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	name string

	mu      sync.Mutex
	records []model.Record
	err     error
	fetches int
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(ctx context.Context) ([]model.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++
	if a.err != nil {
		return nil, a.err
	}
	out := make([]model.Record, len(a.records))
	copy(out, a.records)
	return out, nil
}

func (a *stubAdapter) set(records []model.Record, err error) {
	a.mu.Lock()
	a.records = records
	a.err = err
	a.mu.Unlock()
}

func (a *stubAdapter) fetchCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetches
}

func listing(src, address string, price float64, fetched time.Time) model.PropertyRecord {
	return model.PropertyRecord{
		Source:  src,
		Address: address,
		City:    "Austin",
		Price:   model.PriceFromDollars(price),
		Fetched: fetched,
	}
}

func newTestEngine(t *testing.T, adapters ...source.Adapter) *Engine {
	t.Helper()
	e, err := New(Config{SyncInterval: time.Hour, SourceTimeout: time.Second}, adapters)
	require.NoError(t, err)
	return e
}

func TestNewRequiresAdapters(t *testing.T) {
	_, err := New(Config{}, nil)
	require.ErrorIs(t, err, exception.ErrNoAdapters)
}

func TestForceSyncPopulatesSnapshot(t *testing.T) {
	adapter := &stubAdapter{name: "zenlow"}
	adapter.set([]model.Record{
		listing("zenlow", "1 Oak St", 300_000, time.Now()),
		model.MarketSnapshot{Source: "zenlow", Location: "Austin", MedianPrice: model.PriceFromDollars(455_000), Fetched: time.Now()},
	}, nil)

	e := newTestEngine(t, adapter)
	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	result, err := e.ForceSync(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Added, 0) // may be 0 when the startup cycle already merged

	props := e.CurrentProperties()
	require.Len(t, props, 1)
	assert.Equal(t, "1 Oak St", props[0].Address)

	market, ok := e.CurrentMarketData("Austin")
	require.True(t, ok)
	assert.Equal(t, model.PriceFromDollars(455_000), market.MedianPrice)

	_, ok = e.CurrentMarketData("Nowhere")
	assert.False(t, ok)

	state := e.State()
	assert.False(t, state.LastSyncTime.IsZero())
	assert.Equal(t, 0, state.ConsecutiveFailures)

	metrics := e.Metrics()
	assert.GreaterOrEqual(t, metrics.Cycles, uint64(1))
	assert.Equal(t, uint64(2), metrics.RecordsAdded)
	assert.Zero(t, metrics.TotalFailures)
}

func TestTotalFailureAdvancesLastSyncWithoutEvents(t *testing.T) {
	adapter := &stubAdapter{name: "flaky"}
	adapter.set(nil, stderrors.New("unreachable"))

	e := newTestEngine(t, adapter)
	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	sub := e.Subscribe(enum.EventPropertyChanged, enum.EventMarketChanged, enum.EventNeighborhoodChanged)
	defer sub.Close()

	before := e.State().LastSyncTime
	time.Sleep(2 * time.Millisecond)

	result, err := e.ForceSync(context.Background())
	require.ErrorIs(t, err, exception.ErrTotalSyncFailure)
	assert.True(t, result.TotalFailure())

	state := e.State()
	assert.True(t, state.LastSyncTime.After(before), "the attempt itself is recorded")
	assert.GreaterOrEqual(t, state.ConsecutiveFailures, 1)

	_, ok := sub.TryNext()
	assert.False(t, ok, "no added/updated events on a total failure")
}

func TestPartialFailureResetsConsecutiveFailures(t *testing.T) {
	good := &stubAdapter{name: "steady"}
	good.set([]model.Record{listing("steady", "1 Oak St", 300_000, time.Now())}, nil)
	bad := &stubAdapter{name: "flaky"}
	bad.set(nil, stderrors.New("unreachable"))

	e := newTestEngine(t, good, bad)
	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	result, err := e.ForceSync(context.Background())
	require.NoError(t, err, "partial failure is not an error")
	assert.Equal(t, 1, result.FailedSources)
	assert.Equal(t, 0, e.State().ConsecutiveFailures)
}

func TestSubscribeReceivesChangeEvents(t *testing.T) {
	adapter := &stubAdapter{name: "zenlow"}
	e := newTestEngine(t, adapter)

	sub := e.Subscribe(enum.EventPropertyChanged)
	defer sub.Close()

	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	adapter.set([]model.Record{listing("zenlow", "1 Oak St", 300_000, time.Now())}, nil)
	_, err := e.ForceSync(context.Background())
	require.NoError(t, err)

	event, ok := sub.Next()
	require.True(t, ok)
	assert.Equal(t, enum.ChangeAdded, event.Change)
	prop, ok := event.Record.(model.PropertyRecord)
	require.True(t, ok)
	assert.Equal(t, "1 Oak St", prop.Address)
}

func TestConnectivityRestoredTriggersSync(t *testing.T) {
	adapter := &stubAdapter{name: "zenlow"}
	e := newTestEngine(t, adapter)
	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	require.Eventually(t, func() bool { return adapter.fetchCount() >= 1 }, time.Second, 5*time.Millisecond)
	baseline := adapter.fetchCount()

	e.NotifyConnectivityRestored()
	require.Eventually(t, func() bool { return adapter.fetchCount() > baseline }, time.Second, 5*time.Millisecond)
}

func TestShutdownClosesSubscribersAndRejectsSync(t *testing.T) {
	adapter := &stubAdapter{name: "zenlow"}
	e := newTestEngine(t, adapter)
	require.NoError(t, e.Start(context.Background()))

	sub := e.Subscribe()
	e.Shutdown()

	_, ok := sub.Next()
	assert.False(t, ok, "shutdown closes every subscriber stream")

	_, err := e.ForceSync(context.Background())
	require.ErrorIs(t, err, exception.ErrEngineStopped)

	// second shutdown is a no-op
	e.Shutdown()
}

func TestPeriodicCycleRunsWithoutForceSync(t *testing.T) {
	adapter := &stubAdapter{name: "zenlow"}
	adapter.set([]model.Record{listing("zenlow", "1 Oak St", 300_000, time.Now())}, nil)

	e, err := New(Config{SyncInterval: 20 * time.Millisecond, SourceTimeout: time.Second}, []source.Adapter{adapter})
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	require.Eventually(t, func() bool { return adapter.fetchCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, e.CurrentProperties(), 1)
}

func TestConcurrentForceSyncSharesOneCycle(t *testing.T) {
	adapter := &stubAdapter{name: "zenlow"}
	e := newTestEngine(t, adapter)
	require.NoError(t, e.Start(context.Background()))
	defer e.Shutdown()

	require.Eventually(t, func() bool { return adapter.fetchCount() >= 1 }, time.Second, 5*time.Millisecond)
	baseline := adapter.fetchCount()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.ForceSync(context.Background())
		}()
	}
	wg.Wait()

	assert.Less(t, adapter.fetchCount()-baseline, 8, "concurrent ForceSync calls must coalesce")
}
