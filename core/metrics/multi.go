package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// each calls fn on every sink and returns the first error encountered. All
// sinks are called even when an earlier one fails.
func (m *MultiSink) each(fn func(MetricsSink) error) error {
	var first error
	for _, s := range m.Sinks {
		if err := fn(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordNavigationEvent(ev NavigationEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordNavigationEvent(ev) })
}

func (m *MultiSink) RecordActiveSessions(n int) error {
	return m.each(func(s MetricsSink) error { return s.RecordActiveSessions(n) })
}

func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordVehicleState(ev) })
}

func (m *MultiSink) RecordTelemetryPublish(ev TelemetryPublishEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordTelemetryPublish(ev) })
}

func (m *MultiSink) RecordPersistenceFailure(ev PersistenceFailureEvent) error {
	return m.each(func(s MetricsSink) error { return s.RecordPersistenceFailure(ev) })
}
