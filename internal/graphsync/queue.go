package graphsync

import "sync"

// eventQueue is an unbounded FIFO between source callbacks and the store
// loop. push never blocks, so a callback can not stall on a busy store.
type eventQueue struct {
	mu     sync.Mutex
	items  []event
	signal chan struct{}
	closed bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

// push enqueues ev. It reports false once the queue is closed.
func (q *eventQueue) push(ev event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return true
}

// wait blocks until events are queued or the queue is closed, then takes them
// all. ok is false after close; pending events are dropped.
func (q *eventQueue) wait() (events []event, ok bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.items = nil
			q.mu.Unlock()
			return nil, false
		}
		if len(q.items) > 0 {
			events = q.items
			q.items = nil
			q.mu.Unlock()
			return events, true
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	close(q.signal)
	q.mu.Unlock()
}
