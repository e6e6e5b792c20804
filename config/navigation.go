package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evnav/core/playback"
)

// NavigationConfig tunes the navigation engine.
type NavigationConfig struct {
	TickIntervalMS    int    `json:"tick_interval_ms"`
	MaxInflightWrites int64  `json:"max_inflight_writes"`
	Interpolation     string `json:"interpolation"`
	// SubscriberBuffer is the number of events a slow subscriber may lag
	// behind before it starts missing events.
	SubscriberBuffer int `json:"subscriber_buffer"`
	// MaxPendingEvents is the number of location updates a session may queue
	// for a slow broadcaster before updates are dropped.
	MaxPendingEvents int `json:"max_pending_events"`
}

func (c *NavigationConfig) SetDefaults() {
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = 1000
	}
	if c.MaxInflightWrites <= 0 {
		c.MaxInflightWrites = 64
	}
	if c.Interpolation == "" {
		c.Interpolation = string(playback.ModeVertex)
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 32
	}
	if c.MaxPendingEvents <= 0 {
		c.MaxPendingEvents = 256
	}
}

func (c NavigationConfig) Validate() error {
	if _, err := playback.ParseMode(c.Interpolation); err != nil {
		return fmt.Errorf("interpolation: %w", err)
	}
	return nil
}

func (c NavigationConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// Mode returns the parsed interpolation mode.
func (c NavigationConfig) Mode() playback.Mode {
	m, _ := playback.ParseMode(c.Interpolation)
	return m
}
