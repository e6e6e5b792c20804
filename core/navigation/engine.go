package navigation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kilianp07/evnav/core/logger"
	coremetrics "github.com/kilianp07/evnav/core/metrics"
	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/monitoring"
	"github.com/kilianp07/evnav/core/playback"
	"github.com/kilianp07/evnav/core/store"
)

// errWriteBacklog marks a location write skipped because too many writes
// were already in flight.
var errWriteBacklog = errors.New("location write backlog full")

// Config tunes the Engine.
type Config struct {
	// TickInterval is the playback period, one movement point per tick.
	TickInterval time.Duration
	// MaxInflightWrites bounds the number of concurrent location writes
	// across all sessions.
	MaxInflightWrites int64
	// MaxPendingEvents bounds the location updates queued for a session's
	// broadcaster. Further updates are dropped until it catches up;
	// lifecycle events are never dropped.
	MaxPendingEvents int
	Builder          playback.Builder
}

func (c *Config) setDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.MaxInflightWrites <= 0 {
		c.MaxInflightWrites = 64
	}
	if c.MaxPendingEvents <= 0 {
		c.MaxPendingEvents = 256
	}
}

// Engine is the process-wide session registry.
type Engine struct {
	cfg       Config
	routes    store.RouteStore
	vehicles  store.VehicleStore
	out       Broadcaster
	log       logger.Logger
	metrics   coremetrics.MetricsSink
	newTicker TickerFactory
	writes    *semaphore.Weighted

	// ctx parents every session and every location write; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewEngine creates an Engine. log and sink may be nil.
func NewEngine(cfg Config, routes store.RouteStore, vehicles store.VehicleStore, out Broadcaster, log logger.Logger, sink coremetrics.MetricsSink) *Engine {
	cfg.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		routes:    routes,
		vehicles:  vehicles,
		out:       out,
		log:       logger.OrNop(log),
		metrics:   coremetrics.OrNop(sink),
		newTicker: NewWallTicker,
		writes:    semaphore.NewWeighted(cfg.MaxInflightWrites),
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*Session),
	}
}

// SetTickerFactory replaces the ticker used by sessions started afterwards.
func (e *Engine) SetTickerFactory(f TickerFactory) {
	if f == nil {
		return
	}
	e.mu.Lock()
	e.newTicker = f
	e.mu.Unlock()
}

// Start creates a session playing back routeID for userID and returns the
// number of movement points.
func (e *Engine) Start(ctx context.Context, userID, routeID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}
	// Cheap pre-check so a duplicate start does not hit the route store.
	if e.lookup(userID) != nil {
		return 0, ErrAlreadyActive
	}
	route, err := e.routes.Get(ctx, routeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrRouteNotFound, routeID)
		}
		return 0, fmt.Errorf("load route %s: %w", routeID, err)
	}
	points := e.cfg.Builder.Build(route.Geometry, route.Duration)

	sctx, cancel := context.WithCancel(e.ctx)
	s := newSession(userID, routeID, points, e.cfg.MaxPendingEvents, cancel)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return 0, ErrClosed
	}
	if _, ok := e.sessions[userID]; ok {
		e.mu.Unlock()
		cancel()
		return 0, ErrAlreadyActive
	}
	e.sessions[userID] = s
	active := len(e.sessions)
	ticker := e.newTicker(e.cfg.TickInterval)
	e.wg.Add(2)
	e.mu.Unlock()

	go e.run(sctx, s, ticker)
	go e.deliver(s)

	e.log.Infof("navigation started for %s on route %s (%d points)", userID, routeID, len(points))
	_ = e.metrics.RecordActiveSessions(active)
	return len(points), nil
}

// Pause freezes the session; ticks keep firing but do nothing.
func (e *Engine) Pause(userID string) error {
	return e.withSession(userID, func(s *Session) {
		if s.status == StatusActive {
			s.status = StatusPaused
		}
		e.emit(s, Event{Kind: EventPaused})
	})
}

// Resume continues a paused session from where it stopped.
func (e *Engine) Resume(userID string) error {
	return e.withSession(userID, func(s *Session) {
		s.status = StatusActive
		e.emit(s, Event{Kind: EventResumed})
	})
}

// Stop cancels the session's ticker and removes it from the registry.
func (e *Engine) Stop(userID string) error {
	return e.withSession(userID, func(s *Session) {
		e.finish(s, StatusStopped)
		e.emit(s, Event{Kind: EventStopped})
	})
}

// Disconnect stops the user's session, if any, after the user's subscriber
// connection dropped. It reports whether a session was stopped.
func (e *Engine) Disconnect(userID string) bool {
	err := e.Stop(userID)
	if err == nil {
		e.log.Infof("navigation for %s stopped after disconnect", userID)
	}
	return err == nil
}

// Snapshot returns the current state of userID's session.
func (e *Engine) Snapshot(userID string) (Snapshot, error) {
	var snap Snapshot
	err := e.withSession(userID, func(s *Session) { snap = s.snapshot() })
	return snap, err
}

// Sessions returns snapshots of all live sessions ordered by user.
func (e *Engine) Sessions() []Snapshot {
	e.mu.Lock()
	list := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		list = append(list, s)
	}
	e.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		s.mu.Lock()
		if !s.status.Terminal() {
			out = append(out, s.snapshot())
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Close stops every session, cancels in-flight location writes and waits
// for all session goroutines to exit.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sessions := e.sessions
	e.sessions = make(map[string]*Session)
	e.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		if !s.status.Terminal() {
			s.status = StatusStopped
			s.cancel()
			e.emit(s, Event{Kind: EventStopped})
		}
		s.mu.Unlock()
	}
	e.cancel()
	e.wg.Wait()
	_ = e.metrics.RecordActiveSessions(0)
	return nil
}

func (e *Engine) lookup(userID string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[userID]
}

// withSession runs fn with the user's live session locked. A session found
// terminal has already been removed from the map, so the lookup is retried.
func (e *Engine) withSession(userID string, fn func(*Session)) error {
	for {
		s := e.lookup(userID)
		if s == nil {
			return ErrNotFound
		}
		s.mu.Lock()
		if s.status.Terminal() {
			s.mu.Unlock()
			continue
		}
		fn(s)
		s.mu.Unlock()
		return nil
	}
}

// finish moves s to a terminal status, cancels its ticker and removes it
// from the registry. Must be called with s.mu held.
func (e *Engine) finish(s *Session, st Status) {
	s.status = st
	s.cancel()
	e.mu.Lock()
	if e.sessions[s.userID] == s {
		delete(e.sessions, s.userID)
	}
	active := len(e.sessions)
	e.mu.Unlock()
	_ = e.metrics.RecordActiveSessions(active)
}

// emit queues ev for s's channel. Must be called with s.mu held so that
// events of one session are delivered in transition order. The event that
// follows a terminal transition is the session's last one.
func (e *Engine) emit(s *Session, ev Event) {
	ev.UserID = s.userID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if !s.out.push(ev) {
		e.log.Warnf("dropping %s for %s: broadcaster is %d events behind", ev.Kind, s.userID, e.cfg.MaxPendingEvents)
	}
	if s.status.Terminal() {
		s.out.close()
	}
}

// deliver hands s's queued events to the Broadcaster until the session's
// last event went out. It never holds s.mu, so a slow Broadcaster delays
// delivery without stalling ticks or control operations.
func (e *Engine) deliver(s *Session) {
	defer e.wg.Done()
	defer monitoring.Recover()
	for range s.out.wake {
		for {
			batch, done := s.out.take()
			if done {
				return
			}
			if len(batch) == 0 {
				break
			}
			for _, ev := range batch {
				e.out.Broadcast(s.userID, ev)
				_ = e.metrics.RecordNavigationEvent(coremetrics.NavigationEvent{
					UserID:       s.userID,
					RouteID:      s.routeID,
					Kind:         string(ev.Kind),
					Position:     ev.Update.Position,
					CurrentIndex: ev.Update.CurrentIndex,
					TotalPoints:  len(s.points),
					Time:         ev.Time,
				})
			}
		}
	}
}

func (e *Engine) run(ctx context.Context, s *Session, t Ticker) {
	defer e.wg.Done()
	defer t.Stop()
	defer monitoring.Recover()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if ctx.Err() != nil {
				return
			}
			if done := e.tick(s); done {
				return
			}
		}
	}
}

// tick advances s by one movement point. It reports whether the session
// reached a terminal state.
func (e *Engine) tick(s *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return true
	}
	if s.status != StatusActive {
		return false
	}
	total := len(s.points)
	if s.index >= total {
		e.finish(s, StatusCompleted)
		e.emit(s, Event{Kind: EventCompleted, Message: CompletedMessage})
		e.log.Infof("navigation completed for %s", s.userID)
		return true
	}
	idx := s.index
	pos := s.points[idx]
	e.persist(s.userID, pos)
	e.emit(s, Event{Kind: EventPosition, Update: PositionUpdate{
		Position:               pos,
		Progress:               float64(idx) / float64(total) * 100,
		CurrentIndex:           idx,
		TotalPoints:            total,
		EstimatedTimeRemaining: total - idx,
	}})
	s.index++
	return false
}

// persist writes the vehicle location without blocking the tick. Writes run
// concurrently and may complete out of order, so the stored location can lag
// the broadcast one under load; the next tick overwrites it anyway.
func (e *Engine) persist(userID string, p model.Point) {
	if !e.writes.TryAcquire(1) {
		e.log.Warnf("skipping location write for %s: %v", userID, errWriteBacklog)
		e.recordWriteFailure(userID, errWriteBacklog)
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.writes.Release(1)
		if err := e.vehicles.SetLocation(e.ctx, userID, p); err != nil {
			if e.ctx.Err() != nil {
				return
			}
			e.log.Errorf("persist location for %s: %v", userID, err)
			e.recordWriteFailure(userID, err)
			monitoring.CaptureException(err, map[string]string{"component": "navigation", "user_id": userID})
		}
	}()
}

func (e *Engine) recordWriteFailure(userID string, err error) {
	_ = e.metrics.RecordPersistenceFailure(coremetrics.PersistenceFailureEvent{
		Component: "navigation",
		Operation: "set_location",
		Key:       userID,
		Err:       err,
		Time:      time.Now(),
	})
}
