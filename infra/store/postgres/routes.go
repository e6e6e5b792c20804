package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/store"
)

// RouteStore keeps routes as JSONB documents.
type RouteStore struct {
	db Querier
}

var _ store.RouteStore = (*RouteStore)(nil)

// Save inserts r, assigning an id when it has none.
func (s *RouteStore) Save(ctx context.Context, r model.Route) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	geom, err := json.Marshal(r.Geometry)
	if err != nil {
		return "", err
	}
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return "", err
	}
	bbox, err := json.Marshal(r.BBox)
	if err != nil {
		return "", err
	}
	var raw []byte
	if len(r.Raw) > 0 {
		raw = r.Raw
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO routes (id, user_id, geometry, duration_s, distance_m, steps, bbox, raw, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, r.ID, r.UserID, geom, r.Duration, r.Distance, steps, bbox, raw, r.CreatedAt)
	if err != nil {
		return "", wrap("save route", err)
	}
	return r.ID, nil
}

// Get loads a route by id.
func (s *RouteStore) Get(ctx context.Context, id string) (model.Route, error) {
	var (
		r                 model.Route
		geom, steps, bbox []byte
		raw               []byte
	)
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, geometry, duration_s, distance_m, steps, bbox, raw, created_at
		FROM routes WHERE id=$1
	`, id)
	if err := row.Scan(&r.ID, &r.UserID, &geom, &r.Duration, &r.Distance, &steps, &bbox, &raw, &r.CreatedAt); err != nil {
		return model.Route{}, wrap("get route", err)
	}
	if err := json.Unmarshal(geom, &r.Geometry); err != nil {
		return model.Route{}, wrap("decode geometry", err)
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &r.Steps); err != nil {
			return model.Route{}, wrap("decode steps", err)
		}
	}
	if len(bbox) > 0 {
		if err := json.Unmarshal(bbox, &r.BBox); err != nil {
			return model.Route{}, wrap("decode bbox", err)
		}
	}
	if len(raw) > 0 {
		r.Raw = json.RawMessage(raw)
	}
	return r, nil
}
