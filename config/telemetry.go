package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/evnav/core/telemetry"
)

// TelemetryConfig holds configuration for the battery simulator. The
// simulator always runs; Publish only decides whether snapshots go to the
// MQTT broker or are discarded.
type TelemetryConfig struct {
	Publish        *bool  `json:"publish"`
	IntervalMS     int    `json:"interval_ms"`
	TopicFormat    string `json:"topic_format"`
	WriteTimeoutMS int    `json:"write_timeout_ms"`
	// Workers bounds the vehicles stepped concurrently within one tick.
	Workers int `json:"workers"`
}

func (c *TelemetryConfig) SetDefaults() {
	if c.Publish == nil {
		on := true
		c.Publish = &on
	}
	if c.IntervalMS <= 0 {
		c.IntervalMS = 1000
	}
	if c.TopicFormat == "" {
		c.TopicFormat = telemetry.DefaultTopicFormat
	}
	if c.WriteTimeoutMS <= 0 {
		c.WriteTimeoutMS = 2000
	}
	if c.Workers <= 0 {
		c.Workers = 16
	}
}

func (c TelemetryConfig) Validate() error {
	if strings.Count(c.TopicFormat, "%s") != 1 {
		return fmt.Errorf("topic_format must contain exactly one %%s")
	}
	return nil
}

func (c TelemetryConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

func (c TelemetryConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// PublishEnabled reports whether snapshots are published over MQTT.
func (c TelemetryConfig) PublishEnabled() bool {
	return c.Publish == nil || *c.Publish
}
