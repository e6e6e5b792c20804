package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evnav/core/metrics"
	"github.com/kilianp07/evnav/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket points are written to.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Timeout bounds the health check and every write. Defaults to 5s.
	Timeout time.Duration `json:"timeout"`
	// Positions enables one nav_position point per navigation tick.
	Positions *bool `json:"positions"`
}

func (c InfluxConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Timeout
}

// InfluxSink writes vehicle snapshots and navigation positions to an
// InfluxDB instance using the official client.
type InfluxSink struct {
	coremetrics.NopSink

	client    influxdb2.Client
	writeAPI  api.WriteAPIBlocking
	log       logger.Logger
	timeout   time.Duration
	positions bool
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: cfg.timeout()}))
	return &InfluxSink{
		client:    client,
		writeAPI:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:       logger.New("influx-sink"),
		timeout:   cfg.timeout(),
		positions: cfg.Positions == nil || *cfg.Positions,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), sink.timeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordNavigationEvent writes position updates as nav_position points.
// Lifecycle events are not stored.
func (s *InfluxSink) RecordNavigationEvent(ev coremetrics.NavigationEvent) error {
	if ev.Kind != "location-update" || !s.positions {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	p := write.NewPointWithMeasurement("nav_position").
		AddTag("user_id", ev.UserID).
		AddTag("route_id", ev.RouteID).
		AddTag("component", "navigation").
		AddField("lon", ev.Position.Lon()).
		AddField("lat", ev.Position.Lat()).
		AddField("index", ev.CurrentIndex).
		AddField("total", ev.TotalPoints).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordVehicleState writes a snapshot of a vehicle battery.
func (s *InfluxSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v := ev.Vehicle
	p := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle_id", v.ID)
	if ev.Component != "" {
		p.AddTag("component", ev.Component)
	}
	p = p.AddTag("charging_status", string(v.Car.ChargingStatus)).
		AddField("soc", round3(v.Car.BatterySOCPercent)).
		AddField("temperature_c", round3(v.Car.BatteryTemperatureC)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client resources.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
