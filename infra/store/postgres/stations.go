package postgres

import (
	"context"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/store"
)

// StationStore answers proximity queries with ST_DWithin.
type StationStore struct {
	db Querier
}

var _ store.StationStore = (*StationStore)(nil)

// FindNear returns the stations within maxDistanceMeters of p, closest first.
func (s *StationStore) FindNear(ctx context.Context, p model.Point, maxDistanceMeters float64, limit int) ([]model.Station, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, address, ST_X(location::geometry), ST_Y(location::geometry)
		FROM stations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography)
		LIMIT $4
	`, p.Lon(), p.Lat(), maxDistanceMeters, lim)
	if err != nil {
		return nil, wrap("find stations", err)
	}
	defer rows.Close()

	out := []model.Station{}
	for rows.Next() {
		var st model.Station
		var lon, lat float64
		if err := rows.Scan(&st.ID, &st.Name, &st.Address, &lon, &lat); err != nil {
			return nil, wrap("scan station", err)
		}
		st.Location = model.NewPoint(lon, lat)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("find stations", err)
	}
	return out, nil
}

// Insert upserts a station.
func (s *StationStore) Insert(ctx context.Context, st model.Station) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO stations (id, name, address, location)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, address=EXCLUDED.address, location=EXCLUDED.location
	`, st.ID, st.Name, st.Address, st.Location.Lon(), st.Location.Lat())
	if err != nil {
		return wrap("insert station", err)
	}
	return nil
}
