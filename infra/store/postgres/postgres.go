// Package postgres implements the store ports on PostgreSQL with PostGIS.
// Locations are stored as geography(Point, 4326); route geometries as JSONB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/evnav/core/store"
)

// Querier is the subset of pgx used by the stores. Both *pgxpool.Pool and
// pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the tables used by the stores.
const Schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS stations (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT '',
	address  TEXT NOT NULL DEFAULT '',
	location GEOGRAPHY(Point, 4326) NOT NULL
);
CREATE INDEX IF NOT EXISTS stations_location_idx ON stations USING GIST (location);

CREATE TABLE IF NOT EXISTS routes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	geometry   JSONB NOT NULL,
	duration_s DOUBLE PRECISION NOT NULL,
	distance_m DOUBLE PRECISION NOT NULL,
	steps      JSONB,
	bbox       JSONB,
	raw        JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vehicles (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL DEFAULT '',
	location              GEOGRAPHY(Point, 4326),
	make                  TEXT NOT NULL DEFAULT '',
	model                 TEXT NOT NULL DEFAULT '',
	battery_size_kwh      DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_soc_percent   DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_temperature_c DOUBLE PRECISION NOT NULL DEFAULT 0,
	charging_status       TEXT NOT NULL DEFAULT 'idle',
	range_km              DOUBLE PRECISION NOT NULL DEFAULT 0
);
`

// Connect opens a pool on dsn and pings it.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

// Store bundles the three stores sharing one Querier.
type Store struct {
	Stations *StationStore
	Routes   *RouteStore
	Vehicles *VehicleStore
}

// New returns the stores backed by db.
func New(db Querier) *Store {
	return &Store{
		Stations: &StationStore{db: db},
		Routes:   &RouteStore{db: db},
		Vehicles: &VehicleStore{db: db},
	}
}

func wrap(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %w", store.ErrPersistence, op, err)
}
