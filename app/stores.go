package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/evnav/config"
	"github.com/kilianp07/evnav/core/store"
	"github.com/kilianp07/evnav/infra/logger"
	"github.com/kilianp07/evnav/infra/store/memory"
	"github.com/kilianp07/evnav/infra/store/postgres"
)

// Stores groups the persistence ports of the configured backend.
type Stores struct {
	Stations store.StationStore
	Routes   store.RouteStore
	Vehicles store.VehicleStore

	close func()
}

// Close releases the backend connections.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores opens the backend selected by cfg and loads the seed file into
// it when one is configured.
func OpenStores(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	log := logger.New("store")
	var seed memory.Seed
	if cfg.SeedFile != "" {
		var err error
		if seed, err = memory.LoadSeed(cfg.SeedFile); err != nil {
			return nil, fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
		log.Infof("loaded %d stations and %d vehicles from %s", len(seed.Stations), len(seed.Vehicles), cfg.SeedFile)
	}

	switch cfg.Backend {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		pg := postgres.New(pool)
		for _, st := range seed.Stations {
			if err := pg.Stations.Insert(ctx, st); err != nil {
				pool.Close()
				return nil, err
			}
		}
		for _, v := range seed.Vehicles {
			if err := pg.Vehicles.Upsert(ctx, v); err != nil {
				pool.Close()
				return nil, err
			}
		}
		log.Infof("using postgres backend")
		return &Stores{Stations: pg.Stations, Routes: pg.Routes, Vehicles: pg.Vehicles, close: pool.Close}, nil
	default:
		mem := memory.New(seed)
		log.Infof("using in-memory backend")
		return &Stores{Stations: mem.Stations, Routes: mem.Routes, Vehicles: mem.Vehicles}, nil
	}
}
