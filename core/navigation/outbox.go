package navigation

import "sync"

// outbox queues one session's events in emission order for its delivery
// goroutine. push never blocks, so events can be queued under the session
// lock while a slow Broadcaster is still busy with earlier ones.
type outbox struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	limit  int
	wake   chan struct{}
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit, wake: make(chan struct{}, 1)}
}

// push queues ev. Position updates are dropped once limit events are
// pending; lifecycle events are always queued. It reports whether ev was
// queued.
func (o *outbox) push(ev Event) bool {
	o.mu.Lock()
	if o.closed || (ev.Kind == EventPosition && len(o.queue) >= o.limit) {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, ev)
	o.mu.Unlock()
	o.signal()
	return true
}

// close marks the outbox finished; queued events are still delivered.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// take returns the pending events, and whether the outbox is closed and
// fully drained.
func (o *outbox) take() ([]Event, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.queue
	o.queue = nil
	return batch, o.closed && len(batch) == 0
}
