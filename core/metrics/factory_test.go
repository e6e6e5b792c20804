package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evnav/core/factory"
	metrics "github.com/kilianp07/evnav/core/metrics"
	_ "github.com/kilianp07/evnav/infra/metrics"
)

func TestBuiltinSinkTypes(t *testing.T) {
	assert.Equal(t, []string{"influx", "nop", "prometheus"}, metrics.SinkTypes())
}

func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "NOP"}})
	require.NoError(t, err)
	multi, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, multi.Sinks, 2)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#1 (statsd)")
}
