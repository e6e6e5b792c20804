package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evnav/core/factory"
	coremetrics "github.com/kilianp07/evnav/core/metrics"
)

func init() {
	coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	// The listen address lives in metrics.prometheus_addr; the sink only
	// owns the collectors.
	coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})
	coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
