// Package monitoring adapts Sentry to the core Monitor interface.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/evnav/config"
	coremon "github.com/kilianp07/evnav/core/monitoring"
)

// NewSentryMonitor returns a Monitor reporting to cfg.DSN, or a NopMonitor
// when monitoring is disabled.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if !cfg.Enabled() {
		return coremon.NopMonitor{}, nil
	}
	client, err := sentry.NewClient(clientOptions(cfg))
	if err != nil {
		return nil, err
	}
	scope := sentry.NewScope()
	scope.SetTag("service", "evnav")
	hub := sentry.NewHub(client, scope)
	sentry.CurrentHub().BindClient(client)
	return &sentryMonitor{hub: hub}, nil
}

func clientOptions(cfg config.SentryConfig) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       dropCancellations,
	}
}

// dropCancellations discards errors caused by shutdown or by clients going
// away mid-request.
func dropCancellations(ev *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.OriginalException != nil &&
		(errors.Is(hint.OriginalException, context.Canceled) || errors.Is(hint.OriginalException, context.DeadlineExceeded)) {
		return nil
	}
	return ev
}

type sentryMonitor struct {
	hub *sentry.Hub
}

func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) CapturePanic(r any, tags map[string]string) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetTags(tags)
		s.hub.Recover(r)
	})
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
