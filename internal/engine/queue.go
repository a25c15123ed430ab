package engine

import (
	"sync"

	"github.com/roach88/movieme/internal/movie"
)

// Op names a cycle kind.
type Op string

const (
	OpStart   Op = "start"
	OpAdd     Op = "add"
	OpReset   Op = "reset"
	OpRefresh Op = "refresh"
)

// Event requests one cycle from the Run loop.
type Event struct {
	Op Op
	// Record is the record to prepend. Only read for OpAdd.
	Record movie.Record

	reply chan<- outcome
}

type outcome struct {
	cycle Cycle
	err   error
}

// AddEvent requests an add cycle for r.
func AddEvent(r movie.Record) Event {
	return Event{Op: OpAdd, Record: r}
}

// eventQueue is an unbounded, thread-safe FIFO of events.
//
// HTTP handlers and the store watcher enqueue from their own goroutines while
// Run dequeues. The signal channel lets Run wait on the queue and a context
// in the same select.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
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

	// Buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Clear the slot so the backing array does not pin the record.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes waiters.
// Returns the events that were still queued.
func (q *eventQueue) Close() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)

	pending := q.events
	q.events = nil
	return pending
}
