package collector

import (
	"sync"

	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/ndn"
	"github.com/roach88/datacollector/internal/repo"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeRegistered carries the prefix registration result.
	EventTypeRegistered EventType = iota + 1
	// EventTypeTick starts a collection cycle.
	EventTypeTick
	// EventTypeReading carries the resolution of a reading fetch.
	EventTypeReading
	// EventTypePull carries an inbound request for a cached record.
	EventTypePull
	// EventTypeCommitted carries an announce outcome.
	EventTypeCommitted
)

func (t EventType) String() string {
	switch t {
	case EventTypeRegistered:
		return "registered"
	case EventTypeTick:
		return "tick"
	case EventTypeReading:
		return "reading"
	case EventTypePull:
		return "pull"
	case EventTypeCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the Run loop.
type Event struct {
	Type EventType

	// Cycle is the token of the cycle the event belongs to, if any.
	Cycle string

	Err      error
	Response face.Response
	Interest *ndn.Interest
	Outcome  repo.Outcome
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so face callbacks never block, even when they
// run synchronously inside the loop's own calls to the face.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16), // Pre-allocate for a few cycles of events
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// CRITICAL: Nil out the slot to allow GC to collect the Event's pointers
	// (reading Data, pull Interest). Without this, the underlying array
	// retains references until reallocated, causing memory leaks under
	// steady collection.
	q.events[0] = Event{}

	// Fix memory retention: reset slice when empty
	if len(q.events) == 1 {
		// Last element - reset to empty slice with original capacity
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed. Use with select for
// context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes any waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return // Already closed
	}

	q.closed = true
	close(q.signal) // Wakes all waiters
}
