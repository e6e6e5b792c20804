// Package monitoring routes unexpected errors and panics to an error tracker.
// The Sentry adapter lives in infra/monitoring; until Init is called every
// call is a no-op.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(r any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Recover captures a panic and re-panics. Use it as the first deferred call
// of goroutines whose crash must still take the process down.
func Recover() {
	if r := recover(); r != nil {
		m := get()
		m.CapturePanic(r, nil)
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Guard runs fn and converts a panic into a captured error. Periodic loops
// use it so that one bad item cannot stop the loop.
func Guard(tags map[string]string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			get().CapturePanic(r, tags)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
