package config

import (
	"fmt"
	"time"
)

// RedisConfig enables the Redis relay that shares navigation events between
// API instances.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// ChannelPrefix namespaces the pub/sub channels: <prefix>:<userId>:events.
	ChannelPrefix string `json:"channel_prefix"`
	// PublishTimeoutMS bounds one event publish before falling back to
	// local delivery.
	PublishTimeoutMS int `json:"publish_timeout_ms"`
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.ChannelPrefix == "" {
		c.ChannelPrefix = "nav"
	}
	if c.PublishTimeoutMS <= 0 {
		c.PublishTimeoutMS = 500
	}
}

func (c RedisConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

func (c RedisConfig) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutMS) * time.Millisecond
}
