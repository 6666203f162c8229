package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight sync-cycle counters and latency stats.
// All methods are safe on a nil receiver, so callers can wire metrics in
// optionally.
type Metrics struct {
	cycles        uint64
	totalFailures uint64
	failedSources uint64

	recordsAdded     uint64
	recordsUpdated   uint64
	recordsUnchanged uint64

	cycleLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Cycles           uint64
	TotalFailures    uint64
	FailedSources    uint64
	RecordsAdded     uint64
	RecordsUpdated   uint64
	RecordsUnchanged uint64
	CycleLatency     LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveCycle records the outcome of one sync cycle.
func (m *Metrics) ObserveCycle(added, updated, unchanged, failedSources int, total bool, d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cycles, 1)
	atomic.AddUint64(&m.recordsAdded, uint64(added))
	atomic.AddUint64(&m.recordsUpdated, uint64(updated))
	atomic.AddUint64(&m.recordsUnchanged, uint64(unchanged))
	atomic.AddUint64(&m.failedSources, uint64(failedSources))
	if total {
		atomic.AddUint64(&m.totalFailures, 1)
	}
	m.cycleLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Cycles:           atomic.LoadUint64(&m.cycles),
		TotalFailures:    atomic.LoadUint64(&m.totalFailures),
		FailedSources:    atomic.LoadUint64(&m.failedSources),
		RecordsAdded:     atomic.LoadUint64(&m.recordsAdded),
		RecordsUpdated:   atomic.LoadUint64(&m.recordsUpdated),
		RecordsUnchanged: atomic.LoadUint64(&m.recordsUnchanged),
		CycleLatency:     m.cycleLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
