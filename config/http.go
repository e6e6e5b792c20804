package config

import "fmt"

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// RateLimit is the number of requests allowed per client IP and minute.
	// Zero disables limiting.
	RateLimit              int      `json:"rate_limit"`
	AllowedOrigins         []string `json:"allowed_origins"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = 5
	}
}

func (c HTTPConfig) Validate() error {
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0")
	}
	return nil
}
