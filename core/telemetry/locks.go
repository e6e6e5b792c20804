package telemetry

import (
	"sync"
	"sync/atomic"
)

// vehicleLock serializes the writes the simulator makes to one vehicle. gen
// counts status changes so a tick can tell whether the state it listed is
// still current.
type vehicleLock struct {
	sync.Mutex
	gen atomic.Uint64
}

type vehicleLocks struct {
	mu sync.Mutex
	m  map[string]*vehicleLock
}

func (l *vehicleLocks) get(id string) *vehicleLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*vehicleLock)
	}
	lk, ok := l.m[id]
	if !ok {
		lk = &vehicleLock{}
		l.m[id] = lk
	}
	return lk
}

// forget removes lk for id, used when id turned out not to exist.
func (l *vehicleLocks) forget(id string, lk *vehicleLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m[id] == lk {
		delete(l.m, id)
	}
}

// generations returns the current status generation of every vehicle seen
// so far. Unknown vehicles are at generation zero.
func (l *vehicleLocks) generations() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.m))
	for id, lk := range l.m {
		out[id] = lk.gen.Load()
	}
	return out
}
