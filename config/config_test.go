package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/evnav/core/playback"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `http:
  addr: ":8080"
  rate_limit: 120
mqtt:
  broker: "tcp://broker:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  qos: 1
store:
  backend: "postgres"
  postgres_dsn: "postgres://evnav@localhost/evnav"
redis:
  enabled: true
  addr: "redis:6379"
routing:
  api_key: "secret"
navigation:
  tick_interval_ms: 250
  interpolation: "distance"
telemetry:
  publish: true
  topic_format: "vehicles/%s/state"
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9100"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"http.addr", cfg.HTTP.Addr, ":8080"},
		{"http.rate_limit", cfg.HTTP.RateLimit, 120},
		{"broker", cfg.MQTT.Broker, "tcp://broker:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"qos", cfg.MQTT.QoS, byte(1)},
		{"store.backend", cfg.Store.Backend, StorePostgres},
		{"store.max_conns", cfg.Store.MaxConns, int32(10)},
		{"redis.addr", cfg.Redis.Addr, "redis:6379"},
		{"redis.channel_prefix", cfg.Redis.ChannelPrefix, "nav"},
		{"routing.provider", cfg.Routing.Provider, "ors"},
		{"routing.api_key", cfg.Routing.APIKey, "secret"},
		{"navigation.tick", cfg.Navigation.TickInterval(), 250 * time.Millisecond},
		{"navigation.mode", cfg.Navigation.Mode(), playback.ModeDistance},
		{"navigation.max_inflight_writes", cfg.Navigation.MaxInflightWrites, int64(64)},
		{"telemetry.topic_format", cfg.Telemetry.TopicFormat, "vehicles/%s/state"},
		{"telemetry.interval", cfg.Telemetry.Interval(), time.Second},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":3000" {
		t.Errorf("http.addr default: %s", cfg.HTTP.Addr)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("store.backend default: %s", cfg.Store.Backend)
	}
	if cfg.Navigation.TickInterval() != time.Second {
		t.Errorf("tick default: %s", cfg.Navigation.TickInterval())
	}
	if cfg.Navigation.Mode() != playback.ModeVertex {
		t.Errorf("interpolation default: %s", cfg.Navigation.Mode())
	}
	if cfg.Telemetry.TopicFormat != "user/%s/data" {
		t.Errorf("topic default: %s", cfg.Telemetry.TopicFormat)
	}
	if !cfg.Telemetry.PublishEnabled() || cfg.Telemetry.Interval() != time.Second {
		t.Errorf("telemetry defaults: publish=%v interval=%s", cfg.Telemetry.PublishEnabled(), cfg.Telemetry.Interval())
	}
	if cfg.Telemetry.Workers != 16 || cfg.Navigation.MaxPendingEvents != 256 {
		t.Errorf("worker defaults: telemetry=%d pending=%d", cfg.Telemetry.Workers, cfg.Navigation.MaxPendingEvents)
	}
	if cfg.MQTT.StatusTopic != "evnav/status" {
		t.Errorf("status topic default: %s", cfg.MQTT.StatusTopic)
	}
	if cfg.Sentry.Enabled() || cfg.Sentry.SampleRate != 1 {
		t.Errorf("sentry defaults: %+v", cfg.Sentry)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.yaml", "http:\n  addr: \":8080\"\n")
	t.Setenv("EVNAV_HTTP__ADDR", ":9999")
	t.Setenv("EVNAV_NAVIGATION__INTERPOLATION", "distance")
	t.Setenv("EVNAV_TELEMETRY__PUBLISH", "false")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("env override not applied: %s", cfg.HTTP.Addr)
	}
	if cfg.Navigation.Mode() != playback.ModeDistance {
		t.Errorf("env override not applied: %s", cfg.Navigation.Interpolation)
	}
	if cfg.Telemetry.PublishEnabled() {
		t.Errorf("telemetry.publish override not applied")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"postgres without dsn": "store:\n  backend: postgres\n",
		"unknown backend":      "store:\n  backend: mongo\n",
		"bad interpolation":    "navigation:\n  interpolation: spline\n",
		"bad topic":            "telemetry:\n  topic_format: \"static\"\n",
		"negative rate limit":  "http:\n  rate_limit: -1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "")); err == nil {
		t.Fatalf("expected error")
	}
}
