package engine

import "sync"

// dispatchQueue is a thread-safe bounded FIFO between the tick loop and the
// sink dispatcher.
//
// The queue is bounded so a stalled sink (a webhook that stops answering)
// can never stall polling: when full, the oldest undelivered event is
// dropped and counted. The tick loop enqueues; a single dispatcher
// goroutine dequeues and delivers, which is what keeps the sink's
// never-invoked-concurrently contract.
//
// The signal channel has a buffer of one so multiple enqueues coalesce into
// a single wake-up.
type dispatchQueue struct {
	mu      sync.Mutex
	events  []Event
	max     int
	dropped int64
	closed  bool
	signal  chan struct{}
}

// defaultQueueCapacity bounds undelivered events. A tick rarely produces
// more than a handful of events, so this covers minutes of a stalled sink.
const defaultQueueCapacity = 1024

func newDispatchQueue(capacity int) *dispatchQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &dispatchQueue{
		events: make([]Event, 0, 64),
		max:    capacity,
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue, shedding the oldest event
// when full. Returns the number of events dropped by this call (0 or 1).
// Enqueuing on a closed queue is a no-op.
func (q *dispatchQueue) Enqueue(e Event) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}

	shed := 0
	if len(q.events) >= q.max {
		q.events[0] = Event{}
		q.events = q.events[1:]
		q.dropped++
		shed = 1
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return shed
}

// TryDequeue removes and returns the front event without blocking.
func (q *dispatchQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available or the
// queue has been closed.
func (q *dispatchQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty, i.e. the
// dispatcher can exit.
func (q *dispatchQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Len returns the current queue length.
func (q *dispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns the total number of shed events.
func (q *dispatchQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close marks the queue as accepting no further events and wakes the
// dispatcher so it can drain and exit. Idempotent.
func (q *dispatchQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
