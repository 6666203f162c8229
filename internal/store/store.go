package store

import (
	"sort"
	"sync"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/bus"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
)

// Outcome is the result of merging one record.
type Outcome uint8

const (
	// OutcomeAdded means the key was absent and the record was inserted.
	OutcomeAdded Outcome = iota
	// OutcomeUpdated means a newer record with a differing payload replaced
	// the stored one.
	OutcomeUpdated
	// OutcomeRefreshed means a newer record matched the stored payload;
	// only the fetch time advanced, no event fired.
	OutcomeRefreshed
	// OutcomeDiscarded means the incoming record was older than or as old
	// as the stored one and was dropped.
	OutcomeDiscarded
)

// Stats aggregates merge outcomes over one batch.
type Stats struct {
	Added     int
	Updated   int
	Unchanged int
}

// Store is the canonical keyed record set. Merges are serialized under one
// lock so the push path and the periodic path can never interleave
// destructively; readers receive copies, never live references.
type Store struct {
	mu      sync.RWMutex
	records map[model.Key]model.Record
	bus     *bus.Bus
}

// New creates an empty store publishing change events to b.
func New(b *bus.Bus) *Store {
	return &Store{
		records: make(map[model.Key]model.Record),
		bus:     b,
	}
}

// Merge applies the dedup rule for one record:
// absent key inserts, newer fetch time replaces, older or equal fetch time
// is discarded. Added and payload-changing updates emit a bus event.
// Events are published while the lock is held so subscribers see them in
// merge order; publishing never blocks, so the hold stays short.
func (s *Store) Merge(r model.Record) Outcome {
	if r == nil || !r.Kind().IsAvailable() {
		return OutcomeDiscarded
	}
	key := r.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[key]
	if !ok {
		s.records[key] = r
		s.emit(enum.ChangeAdded, r)
		return OutcomeAdded
	}
	if !existing.FetchedAt().Before(r.FetchedAt()) {
		return OutcomeDiscarded
	}
	s.records[key] = r
	if existing.EqualPayload(r) {
		return OutcomeRefreshed
	}
	s.emit(enum.ChangeUpdated, r)
	return OutcomeUpdated
}

// MergeAll merges a batch in order and returns the aggregate stats.
func (s *Store) MergeAll(records []model.Record) Stats {
	var stats Stats
	for _, r := range records {
		switch s.Merge(r) {
		case OutcomeAdded:
			stats.Added++
		case OutcomeUpdated:
			stats.Updated++
		default:
			stats.Unchanged++
		}
	}
	return stats
}

// Properties returns a sorted copy of all property records.
func (s *Store) Properties() []model.PropertyRecord {
	s.mu.RLock()
	out := make([]model.PropertyRecord, 0, len(s.records))
	for _, r := range s.records {
		if p, ok := r.(model.PropertyRecord); ok {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().ID < out[j].Key().ID
	})
	return out
}

// MarketData returns the market snapshot for a location, if present.
func (s *Store) MarketData(location string) (model.MarketSnapshot, bool) {
	key := model.MarketSnapshot{Location: location}.Key()
	s.mu.RLock()
	r, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return model.MarketSnapshot{}, false
	}
	snapshot, ok := r.(model.MarketSnapshot)
	return snapshot, ok
}

// Neighborhood returns the neighborhood snapshot by name, if present.
func (s *Store) Neighborhood(name string) (model.NeighborhoodSnapshot, bool) {
	key := model.NeighborhoodSnapshot{Name: name}.Key()
	s.mu.RLock()
	r, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return model.NeighborhoodSnapshot{}, false
	}
	snapshot, ok := r.(model.NeighborhoodSnapshot)
	return snapshot, ok
}

// Get returns the record for a key, if present.
func (s *Store) Get(key model.Key) (model.Record, bool) {
	s.mu.RLock()
	r, ok := s.records[key]
	s.mu.RUnlock()
	return r, ok
}

// Len returns the number of canonical records.
func (s *Store) Len() int {
	s.mu.RLock()
	n := len(s.records)
	s.mu.RUnlock()
	return n
}

func (s *Store) emit(change enum.ChangeKind, r model.Record) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Kind:   enum.EventKindForRecord(r.Kind()),
		Change: change,
		Record: r,
		At:     r.FetchedAt(),
	})
}
