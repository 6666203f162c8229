package aggregator

import (
	"context"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/source"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/store"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/exception"
	"github.com/yanun0323/logs"
)

const DefaultSourceTimeout = 10 * time.Second

// Result summarizes one sync cycle.
type Result struct {
	Added         int
	Updated       int
	Unchanged     int
	SourceCount   int
	FailedSources int
	Duration      time.Duration
}

// TotalFailure reports whether every source failed this cycle.
func (r Result) TotalFailure() bool {
	return r.SourceCount > 0 && r.FailedSources == r.SourceCount
}

// Err maps the result onto the error taxonomy: nil unless the cycle was a
// total failure. Partial failures are statistics, not errors.
func (r Result) Err() error {
	if r.TotalFailure() {
		return exception.ErrTotalSyncFailure
	}
	return nil
}

// Aggregator fans one sync cycle out to every registered source. Each fetch
// is isolated: one source failing or timing out never delays or cancels the
// others, and a failed source simply contributes zero records.
type Aggregator struct {
	adapters []source.Adapter
	store    *store.Store
	timeout  time.Duration
}

// New creates an aggregator over an ordered adapter list. The adapter set
// is fixed for the engine's lifetime.
func New(adapters []source.Adapter, s *store.Store, sourceTimeout time.Duration) *Aggregator {
	if sourceTimeout <= 0 {
		sourceTimeout = DefaultSourceTimeout
	}
	return &Aggregator{
		adapters: adapters,
		store:    s,
		timeout:  sourceTimeout,
	}
}

// SourceCount returns the number of registered adapters.
func (a *Aggregator) SourceCount() int {
	return len(a.adapters)
}

type fetchResult struct {
	index   int
	records []model.Record
	err     error
}

// Run executes one sync cycle: concurrent fetches, then a single ordered
// merge of everything that succeeded. A total failure leaves the store
// untouched; stale data beats empty data.
func (a *Aggregator) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{SourceCount: len(a.adapters)}
	if len(a.adapters) == 0 {
		logs.Errorf("sync cycle without adapters, err: %+v", exception.ErrNoAdapters)
		return result
	}

	results := make(chan fetchResult, len(a.adapters))
	for i, adapter := range a.adapters {
		go func(index int, adapter source.Adapter) {
			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			records, err := adapter.Fetch(fetchCtx)
			results <- fetchResult{index: index, records: records, err: err}
		}(i, adapter)
	}

	// collect everything, then merge in registration order so cycles are
	// deterministic regardless of which source answered first
	collected := make([][]model.Record, len(a.adapters))
	for range a.adapters {
		r := <-results
		if r.err != nil {
			result.FailedSources++
			logs.Errorf("source fetch failed, source: %s, err: %+v", a.adapters[r.index].Name(), r.err)
			continue
		}
		collected[r.index] = r.records
	}

	for _, records := range collected {
		stats := a.store.MergeAll(records)
		result.Added += stats.Added
		result.Updated += stats.Updated
		result.Unchanged += stats.Unchanged
	}

	result.Duration = time.Since(start)
	if result.TotalFailure() {
		logs.Errorf("sync cycle failed entirely, sources: %d, duration: %s", result.SourceCount, result.Duration)
	} else {
		logs.Infof("sync cycle done, added: %d, updated: %d, unchanged: %d, failed sources: %d/%d, duration: %s",
			result.Added, result.Updated, result.Unchanged, result.FailedSources, result.SourceCount, result.Duration)
	}
	return result
}
