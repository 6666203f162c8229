package bus

import (
	"sync"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
)

// Event is the unit broadcast to subscribers.
type Event struct {
	Kind      enum.EventKind
	Change    enum.ChangeKind
	Record    model.Record
	ConnState enum.ConnState
	Alert     model.PriceAlert
	At        time.Time
}

// Bus broadcasts events to any number of subscribers. Publication never
// blocks: each subscriber owns a bounded queue and loses its oldest unread
// event on overflow. There is no replay; a subscriber sees only events
// published after it registered.
type Bus struct {
	mu         sync.RWMutex
	subs       []*Subscriber
	closed     bool
	defaultCap int
}

// New creates a bus whose subscribers default to the given queue capacity.
func New(defaultCap int) *Bus {
	if defaultCap <= 0 {
		defaultCap = 64
	}
	return &Bus{defaultCap: defaultCap}
}

// Subscribe registers a subscriber for the given event kinds. No kinds
// means every kind.
func (b *Bus) Subscribe(kinds ...enum.EventKind) *Subscriber {
	return b.SubscribeBuffered(b.defaultCap, kinds...)
}

// SubscribeBuffered registers a subscriber with an explicit queue capacity.
func (b *Bus) SubscribeBuffered(capacity int, kinds ...enum.EventKind) *Subscriber {
	if capacity <= 0 {
		capacity = b.defaultCap
	}
	sub := &Subscriber{
		bus:   b,
		queue: newEventQueue(capacity),
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[enum.EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.queue.Close()
		return sub
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

// Publish delivers the event to every matching subscriber. The read lock is
// held across delivery: remove compacts the subscriber slice in place, so an
// unlocked iteration could observe a nil'd slot. Queue pushes never block,
// so the hold is brief.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.wants(e.Kind) {
			sub.queue.Push(e)
		}
	}
}

// Close closes every subscriber queue. Further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.queue.Close()
	}
}

func (b *Bus) remove(target *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == target {
			b.subs[i] = b.subs[len(b.subs)-1]
			b.subs[len(b.subs)-1] = nil
			b.subs = b.subs[:len(b.subs)-1]
			return
		}
	}
}

// Subscriber receives events in publish order through a bounded queue.
type Subscriber struct {
	bus   *Bus
	kinds map[enum.EventKind]struct{}
	queue *eventQueue
}

// Next blocks until an event is available or the subscription is closed.
func (s *Subscriber) Next() (Event, bool) {
	if s == nil || s.queue == nil {
		return Event{}, false
	}
	return s.queue.Pop()
}

// TryNext returns the next event without blocking.
func (s *Subscriber) TryNext() (Event, bool) {
	if s == nil || s.queue == nil {
		return Event{}, false
	}
	return s.queue.TryPop()
}

// Close unregisters the subscriber and drains its queue.
func (s *Subscriber) Close() {
	if s == nil || s.queue == nil {
		return
	}
	if s.bus != nil {
		s.bus.remove(s)
	}
	s.queue.Close()
}

// Len returns the number of queued events.
func (s *Subscriber) Len() int {
	if s == nil || s.queue == nil {
		return 0
	}
	return s.queue.Len()
}

func (s *Subscriber) wants(kind enum.EventKind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}
