// Package memory provides in-process implementations of the store ports,
// used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/store"
	"github.com/kilianp07/evnav/internal/geo"
)

// Store bundles the three in-memory stores built from one Seed.
type Store struct {
	Stations *StationStore
	Routes   *RouteStore
	Vehicles *VehicleStore
}

// New returns a Store filled with seed.
func New(seed Seed) *Store {
	s := &Store{
		Stations: NewStationStore(seed.Stations...),
		Routes:   NewRouteStore(),
		Vehicles: NewVehicleStore(seed.Vehicles...),
	}
	for _, r := range seed.Routes {
		if r.ID == "" {
			continue
		}
		s.Routes.routes[r.ID] = r
	}
	return s
}

// StationStore answers proximity queries with a linear haversine scan.
type StationStore struct {
	mu       sync.RWMutex
	stations []model.Station
}

var _ store.StationStore = (*StationStore)(nil)

// NewStationStore creates a StationStore holding stations.
func NewStationStore(stations ...model.Station) *StationStore {
	return &StationStore{stations: append([]model.Station(nil), stations...)}
}

// Add inserts a station.
func (s *StationStore) Add(st model.Station) {
	s.mu.Lock()
	s.stations = append(s.stations, st)
	s.mu.Unlock()
}

// FindNear returns the stations within maxDistanceMeters of p, closest first.
func (s *StationStore) FindNear(_ context.Context, p model.Point, maxDistanceMeters float64, limit int) ([]model.Station, error) {
	type hit struct {
		st   model.Station
		dist float64
	}
	s.mu.RLock()
	hits := make([]hit, 0, len(s.stations))
	for _, st := range s.stations {
		if d := geo.HaversineMeters(p, st.Location); d <= maxDistanceMeters {
			hits = append(hits, hit{st, d})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.Station, len(hits))
	for i, h := range hits {
		out[i] = h.st
	}
	return out, nil
}

// RouteStore keeps routes by id.
type RouteStore struct {
	mu     sync.RWMutex
	routes map[string]model.Route
	now    func() time.Time
}

var _ store.RouteStore = (*RouteStore)(nil)

// NewRouteStore creates an empty RouteStore.
func NewRouteStore() *RouteStore {
	return &RouteStore{routes: make(map[string]model.Route), now: time.Now}
}

// Save stores r, assigning an id when it has none.
func (s *RouteStore) Save(_ context.Context, r model.Route) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	r.Geometry = append([]model.Point(nil), r.Geometry...)
	s.mu.Lock()
	s.routes[r.ID] = r
	s.mu.Unlock()
	return r.ID, nil
}

// Get returns the route with the given id.
func (s *RouteStore) Get(_ context.Context, id string) (model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return model.Route{}, store.ErrNotFound
	}
	return r, nil
}

// VehicleStore keeps vehicles by id.
type VehicleStore struct {
	mu       sync.RWMutex
	vehicles map[string]model.Vehicle
}

var _ store.VehicleStore = (*VehicleStore)(nil)

// NewVehicleStore creates a VehicleStore holding vehicles.
func NewVehicleStore(vehicles ...model.Vehicle) *VehicleStore {
	s := &VehicleStore{vehicles: make(map[string]model.Vehicle, len(vehicles))}
	for _, v := range vehicles {
		s.vehicles[v.ID] = v
	}
	return s
}

// Put inserts or replaces a whole vehicle document.
func (s *VehicleStore) Put(v model.Vehicle) {
	s.mu.Lock()
	s.vehicles[v.ID] = v
	s.mu.Unlock()
}

// Get returns the vehicle with the given id.
func (s *VehicleStore) Get(_ context.Context, id string) (model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, store.ErrNotFound
	}
	return v, nil
}

// SetLocation updates only the location of a vehicle.
func (s *VehicleStore) SetLocation(_ context.Context, id string, p model.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return store.ErrNotFound
	}
	v.Location = p
	s.vehicles[id] = v
	return nil
}

// Save updates only the battery fields of a vehicle.
func (s *VehicleStore) Save(_ context.Context, in model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[in.ID]
	if !ok {
		return store.ErrNotFound
	}
	v.Car.BatterySOCPercent = in.Car.BatterySOCPercent
	v.Car.BatteryTemperatureC = in.Car.BatteryTemperatureC
	v.Car.ChargingStatus = in.Car.ChargingStatus
	s.vehicles[in.ID] = v
	return nil
}

// ListAll returns every vehicle sorted by id.
func (s *VehicleStore) ListAll(context.Context) ([]model.Vehicle, error) {
	s.mu.RLock()
	out := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateStatus sets the charging status of a vehicle and returns the result.
func (s *VehicleStore) UpdateStatus(_ context.Context, id string, st model.ChargingStatus) (model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, store.ErrNotFound
	}
	v.Car.ChargingStatus = st
	s.vehicles[id] = v
	return v, nil
}
