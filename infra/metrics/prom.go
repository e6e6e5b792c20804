package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evnav/core/metrics"
)

// PromSink records navigation and telemetry activity in Prometheus metrics.
type PromSink struct {
	active        prometheus.Gauge
	ticks         prometheus.Counter
	events        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	telemetryTick prometheus.Counter
	publishes     *prometheus.CounterVec
	soc           *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nav_sessions_active",
			Help: "Number of live navigation sessions",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nav_ticks_total",
			Help: "Number of navigation ticks that emitted a position",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nav_events_total",
			Help: "Navigation events broadcast, by kind",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persistence_failures_total",
			Help: "Best-effort writes that failed or were skipped",
		}, []string{"component"}),
		telemetryTick: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_ticks_total",
			Help: "Number of vehicle battery steps",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_publish_total",
			Help: "Telemetry snapshot publishes, by result",
		}, []string{"result"}),
		soc: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vehicle_soc_percent",
			Help: "Last simulated state of charge",
		}, []string{"vehicle_id"}),
	}
	var err error
	if s.active, err = register(reg, s.active); err != nil {
		return nil, err
	}
	if s.ticks, err = register(reg, s.ticks); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, s.events); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	if s.telemetryTick, err = register(reg, s.telemetryTick); err != nil {
		return nil, err
	}
	if s.publishes, err = register(reg, s.publishes); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, s.soc); err != nil {
		return nil, err
	}
	return s, nil
}

// register registers c, returning the collector already registered under the
// same descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordNavigationEvent counts the event by kind; position events also count
// as ticks.
func (s *PromSink) RecordNavigationEvent(ev coremetrics.NavigationEvent) error {
	s.events.WithLabelValues(ev.Kind).Inc()
	if ev.Kind == "location-update" {
		s.ticks.Inc()
	}
	return nil
}

// RecordActiveSessions sets the session gauge.
func (s *PromSink) RecordActiveSessions(n int) error {
	s.active.Set(float64(n))
	return nil
}

// RecordVehicleState counts a telemetry step and exports the vehicle SoC.
func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	s.telemetryTick.Inc()
	s.soc.WithLabelValues(ev.Vehicle.ID).Set(ev.Vehicle.Car.BatterySOCPercent)
	return nil
}

// RecordTelemetryPublish counts publishes by outcome.
func (s *PromSink) RecordTelemetryPublish(ev coremetrics.TelemetryPublishEvent) error {
	result := "error"
	if ev.OK {
		result = "ok"
	}
	s.publishes.WithLabelValues(result).Inc()
	return nil
}

// RecordPersistenceFailure counts failed or skipped writes per component.
func (s *PromSink) RecordPersistenceFailure(ev coremetrics.PersistenceFailureEvent) error {
	s.failures.WithLabelValues(ev.Component).Inc()
	return nil
}
