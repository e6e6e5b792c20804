// Package store declares the persistence ports consumed by the navigation
// engine, the telemetry simulator and the HTTP API. Implementations live in
// infra/store.
package store

import (
	"context"
	"errors"

	"github.com/kilianp07/evnav/core/model"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps failures of the underlying storage engine.
	ErrPersistence = errors.New("persistence error")
)

// StationStore answers proximity queries over charging stations.
type StationStore interface {
	// FindNear returns at most limit stations within maxDistanceMeters of p,
	// closest first. A limit <= 0 means no limit.
	FindNear(ctx context.Context, p model.Point, maxDistanceMeters float64, limit int) ([]model.Station, error)
}

// RouteStore persists routes fetched from the routing provider.
type RouteStore interface {
	Save(ctx context.Context, r model.Route) (string, error)
	Get(ctx context.Context, id string) (model.Route, error)
}

// VehicleStore persists users and their cars.
//
// Writers are partitioned by field: SetLocation only touches the location and
// Save only touches the battery fields, so the navigation engine and the
// telemetry simulator never overwrite each other.
type VehicleStore interface {
	Get(ctx context.Context, id string) (model.Vehicle, error)
	SetLocation(ctx context.Context, id string, p model.Point) error
	// Save persists the battery state (SoC, temperature, charging status) of v.
	Save(ctx context.Context, v model.Vehicle) error
	ListAll(ctx context.Context) ([]model.Vehicle, error)
	UpdateStatus(ctx context.Context, id string, st model.ChargingStatus) (model.Vehicle, error)
}
