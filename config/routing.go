package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evnav/auth"
)

// RoutingConfig configures the directions provider.
type RoutingConfig struct {
	Provider       string `json:"provider"`
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	Profile        string `json:"profile"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RatePerMinute caps outgoing directions requests.
	RatePerMinute int `json:"rate_per_minute"`
	RateBurst     int `json:"rate_burst"`
	// Auth holds OAuth2 client credentials for a self-hosted provider.
	Auth auth.Conf `json:"auth"`
}

func (c *RoutingConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "ors"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openrouteservice.org"
	}
	if c.Profile == "" {
		c.Profile = "driving-car"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = 40
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 5
	}
}

func (c RoutingConfig) Validate() error {
	if c.Provider != "ors" {
		return fmt.Errorf("unknown provider %s", c.Provider)
	}
	return nil
}

func (c RoutingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
