package bus

import "sync"

// eventQueue is a bounded ring buffer. A push onto a full queue evicts the
// oldest unread event: subscribers are expected to re-query the store for
// current truth rather than rely on every event arriving.
type eventQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	buf      []Event
	head     int
	tail     int
	size     int
	closed   bool
}

func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &eventQueue{buf: make([]Event, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) Push(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.size == len(q.buf) {
		q.buf[q.head] = Event{}
		q.head = (q.head + 1) % len(q.buf)
		q.size--
	}
	q.buf[q.tail] = e
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	q.notEmpty.Signal()
	return true
}

func (q *eventQueue) Pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.size > 0 {
			return q.popLocked(), true
		}
		if q.closed {
			return Event{}, false
		}
		q.notEmpty.Wait()
	}
}

func (q *eventQueue) TryPop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return Event{}, false
	}
	return q.popLocked(), true
}

func (q *eventQueue) popLocked() Event {
	e := q.buf[q.head]
	q.buf[q.head] = Event{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return e
}

func (q *eventQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.mu.Unlock()
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	size := q.size
	q.mu.Unlock()
	return size
}
