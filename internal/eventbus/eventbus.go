// Package eventbus implements in-process publish/subscribe fan-out.
package eventbus

import "sync"

// DefaultBuffer is the per-subscriber channel capacity used when none is given.
const DefaultBuffer = 32

// Keyed is a type-safe publish/subscribe bus partitioned by key: events
// published under a key reach only the subscribers of that key. There is no
// buffering or replay for late subscribers, and delivery is non-blocking: a
// subscriber whose channel is full misses the event.
type Keyed[K comparable, T any] struct {
	mu     sync.RWMutex
	subs   map[K][]chan T
	buffer int
	closed bool
}

// NewKeyed creates a Keyed bus whose subscriber channels hold buffer events.
func NewKeyed[K comparable, T any](buffer int) *Keyed[K, T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Keyed[K, T]{subs: make(map[K][]chan T), buffer: buffer}
}

// Publish sends the event to every subscriber of key and returns how many
// received it.
func (b *Keyed[K, T]) Publish(key K, e T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	n := 0
	for _, ch := range b.subs[key] {
		select {
		case ch <- e:
			n++
		default:
		}
	}
	return n
}

// Subscribe registers a subscriber for key and returns its channel.
func (b *Keyed[K, T]) Subscribe(key K) <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs[key] = append(b.subs[key], ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Keyed[K, T]) Unsubscribe(key K, sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[key]
	for i, ch := range subs {
		if ch == sub {
			subs = append(subs[:i], subs[i+1:]...)
			if len(subs) == 0 {
				delete(b.subs, key)
			} else {
				b.subs[key] = subs
			}
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Subscribers returns the number of subscribers currently bound to key.
func (b *Keyed[K, T]) Subscribers(key K) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key])
}

// Close closes the bus and all subscriber channels.
func (b *Keyed[K, T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subs = nil
	b.mu.Unlock()
}
