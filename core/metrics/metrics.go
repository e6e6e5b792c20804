package metrics

import (
	"time"

	"github.com/kilianp07/evnav/core/model"
)

// NavigationEvent describes one lifecycle or position event of a session.
type NavigationEvent struct {
	UserID       string
	RouteID      string
	Kind         string
	Position     model.Point
	CurrentIndex int
	TotalPoints  int
	Time         time.Time
}

// VehicleStateEvent is a snapshot of a vehicle produced by a telemetry tick.
type VehicleStateEvent struct {
	Vehicle   model.Vehicle
	Component string
	Time      time.Time
}

// PersistenceFailureEvent records a best-effort write that did not land.
type PersistenceFailureEvent struct {
	Component string
	Operation string
	Key       string
	Err       error
	Time      time.Time
}

// TelemetryPublishEvent records the outcome of one MQTT publish.
type TelemetryPublishEvent struct {
	VehicleID string
	Topic     string
	OK        bool
	Time      time.Time
}

// MetricsSink records engine and simulator activity for observability purposes.
type MetricsSink interface {
	RecordNavigationEvent(ev NavigationEvent) error
	RecordActiveSessions(n int) error
	RecordVehicleState(ev VehicleStateEvent) error
	RecordTelemetryPublish(ev TelemetryPublishEvent) error
	RecordPersistenceFailure(ev PersistenceFailureEvent) error
}

// NopSink implements MetricsSink with no-op methods. Sinks that only care
// about a subset of events embed it.
type NopSink struct{}

func (NopSink) RecordNavigationEvent(NavigationEvent) error            { return nil }
func (NopSink) RecordActiveSessions(int) error                         { return nil }
func (NopSink) RecordVehicleState(VehicleStateEvent) error             { return nil }
func (NopSink) RecordTelemetryPublish(TelemetryPublishEvent) error     { return nil }
func (NopSink) RecordPersistenceFailure(PersistenceFailureEvent) error { return nil }

// OrNop returns s, or NopSink when s is nil.
func OrNop(s MetricsSink) MetricsSink {
	if s == nil {
		return NopSink{}
	}
	return s
}
