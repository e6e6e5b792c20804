package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evnav/config"
	coremon "github.com/kilianp07/evnav/core/monitoring"
)

type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captureTransport) Configure(sentry.ClientOptions) {}
func (c *captureTransport) SendEvent(e *sentry.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}
func (c *captureTransport) Flush(time.Duration) bool              { return true }
func (c *captureTransport) FlushWithContext(context.Context) bool { return true }
func (c *captureTransport) Close()                                {}

func newTestMonitor(t *testing.T, cfg config.SentryConfig) (*sentryMonitor, *captureTransport) {
	t.Helper()
	tr := &captureTransport{}
	cfg.DSN = "https://key@example.com/1"
	cfg.SetDefaults()
	opts := clientOptions(cfg)
	opts.Transport = tr
	client, err := sentry.NewClient(opts)
	require.NoError(t, err)
	scope := sentry.NewScope()
	scope.SetTag("service", "evnav")
	return &sentryMonitor{hub: sentry.NewHub(client, scope)}, tr
}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorCapturesTags(t *testing.T) {
	m, tr := newTestMonitor(t, config.SentryConfig{Environment: "test"})

	m.CaptureException(errors.New("write failed"), map[string]string{"component": "navigation"})
	m.CapturePanic("boom", map[string]string{"vehicle_id": "v1"})
	m.CaptureException(nil, nil)

	require.Len(t, tr.events, 2)
	assert.Equal(t, "navigation", tr.events[0].Tags["component"])
	assert.Equal(t, "evnav", tr.events[0].Tags["service"])
	assert.Equal(t, "test", tr.events[0].Environment)
	assert.Equal(t, "v1", tr.events[1].Tags["vehicle_id"])
	assert.Equal(t, sentry.LevelFatal, tr.events[1].Level)
}

func TestSentryMonitorDropsCancellations(t *testing.T) {
	m, tr := newTestMonitor(t, config.SentryConfig{})

	m.CaptureException(fmt.Errorf("route lookup: %w", context.Canceled), nil)
	m.CaptureException(context.DeadlineExceeded, nil)
	m.CaptureException(errors.New("disk full"), nil)

	require.Len(t, tr.events, 1)
	assert.Contains(t, tr.events[0].Exception[0].Value, "disk full")
}
