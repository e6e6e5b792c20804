package config

// SentryConfig enables error monitoring. An empty DSN disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	ServerName       string  `json:"server_name"`
	SampleRate       float64 `json:"sample_rate"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Debug            bool    `json:"debug"`
}

func (c *SentryConfig) SetDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 1
	}
}

// Enabled reports whether events are sent anywhere.
func (c SentryConfig) Enabled() bool { return c.DSN != "" }
