package navigation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/store"
)

type fakeRoutes struct {
	routes map[string]model.Route
	err    error
}

func (f *fakeRoutes) Save(_ context.Context, r model.Route) (string, error) {
	f.routes[r.ID] = r
	return r.ID, nil
}

func (f *fakeRoutes) Get(_ context.Context, id string) (model.Route, error) {
	if f.err != nil {
		return model.Route{}, f.err
	}
	r, ok := f.routes[id]
	if !ok {
		return model.Route{}, store.ErrNotFound
	}
	return r, nil
}

type fakeVehicles struct {
	mu   sync.Mutex
	locs map[string][]model.Point
	err  error
}

func newFakeVehicles() *fakeVehicles {
	return &fakeVehicles{locs: make(map[string][]model.Point)}
}

func (f *fakeVehicles) Get(context.Context, string) (model.Vehicle, error) {
	return model.Vehicle{}, store.ErrNotFound
}

func (f *fakeVehicles) SetLocation(_ context.Context, id string, p model.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.locs[id] = append(f.locs[id], p)
	return nil
}

func (f *fakeVehicles) Save(context.Context, model.Vehicle) error { return nil }

func (f *fakeVehicles) ListAll(context.Context) ([]model.Vehicle, error) { return nil, nil }

func (f *fakeVehicles) UpdateStatus(context.Context, string, model.ChargingStatus) (model.Vehicle, error) {
	return model.Vehicle{}, store.ErrNotFound
}

func (f *fakeVehicles) writes(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locs[id])
}

type recorder struct {
	events chan Event
}

func newRecorder() *recorder { return &recorder{events: make(chan Event, 256)} }

func (r *recorder) Broadcast(_ string, ev Event) { r.events <- ev }

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

type manualTicker struct {
	c chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

type manualClock struct {
	tickers chan *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{tickers: make(chan *manualTicker, 16)}
}

func (c *manualClock) factory(time.Duration) Ticker {
	t := &manualTicker{c: make(chan time.Time)}
	c.tickers <- t
	return t
}

func (c *manualClock) ticker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-c.tickers:
		return tk
	case <-time.After(time.Second):
		t.Fatal("no ticker created")
		return nil
	}
}

// fire delivers one tick and reports whether the session goroutine took it.
func (m *manualTicker) fire() bool {
	select {
	case m.c <- time.Now():
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

type fixture struct {
	engine   *Engine
	routes   *fakeRoutes
	vehicles *fakeVehicles
	out      *recorder
	clock    *manualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		routes: &fakeRoutes{routes: map[string]model.Route{
			"r1": {
				ID:       "r1",
				Geometry: []model.Point{{0, 0}, {0, 10}},
				Duration: 10,
			},
			"r3": {
				ID:       "r3",
				Geometry: []model.Point{{0, 0}, {1, 1}, {2, 2}},
				Duration: 2,
			},
		}},
		vehicles: newFakeVehicles(),
		out:      newRecorder(),
		clock:    newManualClock(),
	}
	f.engine = NewEngine(Config{TickInterval: time.Second}, f.routes, f.vehicles, f.out, nil, nil)
	f.engine.SetTickerFactory(f.clock.factory)
	t.Cleanup(func() { _ = f.engine.Close() })
	return f
}

func TestStartRejectsSecondSession(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	n, err := f.engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	tk := f.clock.ticker(t)
	require.True(t, tk.fire())
	require.Equal(t, EventPosition, f.out.next(t).Kind)

	before, err := f.engine.Snapshot("u1")
	require.NoError(t, err)

	_, err = f.engine.Start(context.Background(), "u1", "r3")
	assert.ErrorIs(t, err, ErrAlreadyActive)

	after, err := f.engine.Snapshot("u1")
	require.NoError(t, err)
	assert.Equal(t, "r1", after.RouteID)
	assert.Equal(t, 1, after.CurrentIndex)
	assert.Equal(t, 10, after.TotalPoints)
	assert.Equal(t, before, after)
	f.out.none(t)
	require.NoError(t, f.engine.Close())
}

func TestStartUnknownRoute(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Start(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, ErrRouteNotFound)
	assert.Empty(t, f.engine.Sessions())

	f.routes.err = errors.New("db down")
	_, err = f.engine.Start(context.Background(), "u1", "r1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRouteNotFound)
}

func TestPlaybackEmitsEveryPointThenCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	n, err := f.engine.Start(context.Background(), "u1", "r3")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	tk := f.clock.ticker(t)

	want := []model.Point{{0, 0}, {1, 1}, {2, 2}}
	for i := 0; i < n; i++ {
		require.True(t, tk.fire())
		ev := f.out.next(t)
		require.Equal(t, EventPosition, ev.Kind)
		assert.Equal(t, "u1", ev.UserID)
		assert.Equal(t, i, ev.Update.CurrentIndex)
		assert.Equal(t, n, ev.Update.TotalPoints)
		assert.Equal(t, n-i, ev.Update.EstimatedTimeRemaining)
		assert.InDelta(t, float64(i)/float64(n)*100, ev.Update.Progress, 1e-9)
		assert.Equal(t, want[i], ev.Update.Position)
	}

	require.True(t, tk.fire())
	ev := f.out.next(t)
	assert.Equal(t, EventCompleted, ev.Kind)
	assert.Equal(t, CompletedMessage, ev.Message)

	// the session goroutine has exited and the user is free again
	assert.False(t, tk.fire())
	_, err = f.engine.Snapshot("u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Eventually(t, func() bool { return f.vehicles.writes("u1") == n }, time.Second, 10*time.Millisecond)

	require.NoError(t, f.engine.Close())
}

func TestStopHaltsPlayback(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	_, err := f.engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	tk := f.clock.ticker(t)

	for i := 0; i < 3; i++ {
		require.True(t, tk.fire())
		assert.Equal(t, i, f.out.next(t).Update.CurrentIndex)
	}
	require.NoError(t, f.engine.Stop("u1"))
	assert.Equal(t, EventStopped, f.out.next(t).Kind)

	// a tick racing with the cancellation must not produce an event
	tk.fire()
	f.out.none(t)
	assert.ErrorIs(t, f.engine.Stop("u1"), ErrNotFound)

	_, err = f.engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	require.NoError(t, f.engine.Close())
}

func TestPauseResumeKeepsIndex(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	_, err := f.engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	tk := f.clock.ticker(t)

	require.True(t, tk.fire())
	require.Equal(t, 0, f.out.next(t).Update.CurrentIndex)

	require.NoError(t, f.engine.Pause("u1"))
	assert.Equal(t, EventPaused, f.out.next(t).Kind)
	for i := 0; i < 3; i++ {
		require.True(t, tk.fire())
	}
	f.out.none(t)

	snap, err := f.engine.Snapshot("u1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, snap.Status)
	assert.Equal(t, 1, snap.CurrentIndex)

	require.NoError(t, f.engine.Resume("u1"))
	assert.Equal(t, EventResumed, f.out.next(t).Kind)
	require.True(t, tk.fire())
	assert.Equal(t, 1, f.out.next(t).Update.CurrentIndex)

	require.NoError(t, f.engine.Close())
}

func TestControlWithoutSession(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.engine.Pause("nobody"), ErrNotFound)
	assert.ErrorIs(t, f.engine.Resume("nobody"), ErrNotFound)
	assert.ErrorIs(t, f.engine.Stop("nobody"), ErrNotFound)
	assert.False(t, f.engine.Disconnect("nobody"))
}

func TestDisconnectStopsSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	f.clock.ticker(t)

	assert.True(t, f.engine.Disconnect("u1"))
	assert.Equal(t, EventStopped, f.out.next(t).Kind)
	assert.Empty(t, f.engine.Sessions())
}

func TestSessionsAreIndependent(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	_, err := f.engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	t1 := f.clock.ticker(t)
	_, err = f.engine.Start(context.Background(), "u2", "r3")
	require.NoError(t, err)
	f.clock.ticker(t)

	require.NoError(t, f.engine.Pause("u2"))
	ev := f.out.next(t)
	assert.Equal(t, "u2", ev.UserID)

	require.True(t, t1.fire())
	ev = f.out.next(t)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, EventPosition, ev.Kind)

	snaps := f.engine.Sessions()
	require.Len(t, snaps, 2)
	assert.Equal(t, "u1", snaps[0].UserID)
	assert.Equal(t, StatusActive, snaps[0].Status)
	assert.Equal(t, StatusPaused, snaps[1].Status)

	require.NoError(t, f.engine.Close())
}

func TestPersistenceFailureDoesNotStopPlayback(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	f.vehicles.err = errors.New("write failed")

	_, err := f.engine.Start(context.Background(), "u1", "r3")
	require.NoError(t, err)
	tk := f.clock.ticker(t)

	for i := 0; i < 3; i++ {
		require.True(t, tk.fire())
		assert.Equal(t, i, f.out.next(t).Update.CurrentIndex)
	}
	require.True(t, tk.fire())
	assert.Equal(t, EventCompleted, f.out.next(t).Kind)
	require.NoError(t, f.engine.Close())
}

func TestCloseStopsEverySession(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	for _, u := range []string{"u1", "u2"} {
		_, err := f.engine.Start(context.Background(), u, "r1")
		require.NoError(t, err)
		f.clock.ticker(t)
	}
	require.NoError(t, f.engine.Close())
	assert.Equal(t, EventStopped, f.out.next(t).Kind)
	assert.Equal(t, EventStopped, f.out.next(t).Kind)
	assert.Empty(t, f.engine.Sessions())

	_, err := f.engine.Start(context.Background(), "u3", "r1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, f.engine.Close())
}

func TestConcurrentStartsAdmitOne(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Start(context.Background(), "u1", "r1"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrAlreadyActive)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	require.NoError(t, f.engine.Close())
}

// gatedBroadcaster blocks every delivery until release is closed.
type gatedBroadcaster struct {
	entered chan Event
	release chan struct{}
}

func (g *gatedBroadcaster) Broadcast(_ string, ev Event) {
	g.entered <- ev
	<-g.release
}

func TestSlowBroadcasterDoesNotBlockControl(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	out := &gatedBroadcaster{entered: make(chan Event, 16), release: make(chan struct{})}
	engine := NewEngine(Config{TickInterval: time.Second}, f.routes, f.vehicles, out, nil, nil)
	engine.SetTickerFactory(f.clock.factory)

	_, err := engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	tk := f.clock.ticker(t)
	require.True(t, tk.fire())
	select {
	case ev := <-out.entered:
		require.Equal(t, EventPosition, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("position update never reached the broadcaster")
	}

	// the broadcaster is now stuck on the position update
	paused := make(chan error, 1)
	go func() { paused <- engine.Pause("u1") }()
	select {
	case err := <-paused:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		close(out.release)
		t.Fatal("pause waited for the broadcaster")
	}
	require.True(t, tk.fire())
	snap, err := engine.Snapshot("u1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, snap.Status)
	assert.Equal(t, 1, snap.CurrentIndex)

	close(out.release)
	require.NoError(t, engine.Close())
	close(out.entered)
	var kinds []EventKind
	for ev := range out.entered {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventPaused, EventStopped}, kinds)
}
