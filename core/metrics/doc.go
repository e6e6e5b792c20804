// Package metrics defines the observability sinks used by the navigation
// engine and the telemetry simulator. Sinks like the Prometheus and InfluxDB
// ones in infra/metrics record session events, vehicle snapshots and
// persistence failures and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when multiple sinks are
// configured.
package metrics
