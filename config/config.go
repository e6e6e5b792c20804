package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evnav/core/metrics"
	"github.com/kilianp07/evnav/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. EVNAV_HTTP__ADDR sets http.addr.
const EnvPrefix = "EVNAV_"

type Config struct {
	HTTP       HTTPConfig       `json:"http"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Store      StoreConfig      `json:"store"`
	Redis      RedisConfig      `json:"redis"`
	Routing    RoutingConfig    `json:"routing"`
	Navigation NavigationConfig `json:"navigation"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
	Metrics    metrics.Config   `json:"metrics"`
	Sentry     SentryConfig     `json:"sentry"`
}

// Load reads the YAML or JSON file at path, applies EVNAV_ environment
// overrides, fills defaults and validates every section. An empty path loads
// the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Store.SetDefaults()
	c.Redis.SetDefaults()
	c.Routing.SetDefaults()
	c.Navigation.SetDefaults()
	c.Telemetry.SetDefaults()
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.StatusTopic == "" {
		c.MQTT.StatusTopic = "evnav/status"
	}
	c.Sentry.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"http", c.HTTP.Validate},
		{"store", c.Store.Validate},
		{"redis", c.Redis.Validate},
		{"routing", c.Routing.Validate},
		{"navigation", c.Navigation.Validate},
		{"telemetry", c.Telemetry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
