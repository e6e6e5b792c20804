package config

import "fmt"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// StoreConfig selects the persistence backend for stations, routes and
// vehicles.
type StoreConfig struct {
	Backend string `json:"backend"`
	// SeedFile is a YAML or JSON document loaded into the memory backend.
	SeedFile    string `json:"seed_file"`
	PostgresDSN string `json:"postgres_dsn"`
	MaxConns    int32  `json:"max_conns"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = StoreMemory
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
}

func (c StoreConfig) Validate() error {
	switch c.Backend {
	case StoreMemory:
		return nil
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}
