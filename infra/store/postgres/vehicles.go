package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/store"
)

// VehicleStore keeps vehicles in a single table. Location and battery
// columns are written by separate statements.
type VehicleStore struct {
	db Querier
}

var _ store.VehicleStore = (*VehicleStore)(nil)

const vehicleColumns = `id, name, COALESCE(ST_X(location::geometry),0), COALESCE(ST_Y(location::geometry),0),
	make, model, battery_size_kwh, battery_soc_percent, battery_temperature_c, charging_status, range_km`

func scanVehicle(row pgx.Row) (model.Vehicle, error) {
	var (
		v        model.Vehicle
		lon, lat float64
		status   string
	)
	err := row.Scan(&v.ID, &v.Name, &lon, &lat,
		&v.Car.Make, &v.Car.Model, &v.Car.BatterySizeKWh, &v.Car.BatterySOCPercent,
		&v.Car.BatteryTemperatureC, &status, &v.Car.RangeKm)
	if err != nil {
		return model.Vehicle{}, err
	}
	v.Location = model.NewPoint(lon, lat)
	v.Car.ChargingStatus = model.ChargingStatus(status)
	return v, nil
}

// Get loads a vehicle by id.
func (s *VehicleStore) Get(ctx context.Context, id string) (model.Vehicle, error) {
	v, err := scanVehicle(s.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id=$1`, id))
	if err != nil {
		return model.Vehicle{}, wrap("get vehicle", err)
	}
	return v, nil
}

// SetLocation writes only the location column.
func (s *VehicleStore) SetLocation(ctx context.Context, id string, p model.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE vehicles SET location = ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography
		WHERE id=$1
	`, id, p.Lon(), p.Lat())
	if err != nil {
		return wrap("set location", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Save writes only the battery columns of v.
func (s *VehicleStore) Save(ctx context.Context, v model.Vehicle) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE vehicles
		SET battery_soc_percent=$2, battery_temperature_c=$3, charging_status=$4
		WHERE id=$1
	`, v.ID, v.Car.BatterySOCPercent, v.Car.BatteryTemperatureC, string(v.Car.ChargingStatus))
	if err != nil {
		return wrap("save battery", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListAll returns every vehicle ordered by id.
func (s *VehicleStore) ListAll(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.db.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, wrap("list vehicles", err)
	}
	defer rows.Close()

	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, wrap("scan vehicle", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list vehicles", err)
	}
	return out, nil
}

// UpdateStatus sets the charging status and returns the updated vehicle.
func (s *VehicleStore) UpdateStatus(ctx context.Context, id string, st model.ChargingStatus) (model.Vehicle, error) {
	v, err := scanVehicle(s.db.QueryRow(ctx, `
		UPDATE vehicles SET charging_status=$2 WHERE id=$1
		RETURNING `+vehicleColumns, id, string(st)))
	if err != nil {
		return model.Vehicle{}, wrap("update status", err)
	}
	return v, nil
}

// Upsert inserts or replaces a whole vehicle document.
func (s *VehicleStore) Upsert(ctx context.Context, v model.Vehicle) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicles (id, name, location, make, model, battery_size_kwh,
			battery_soc_percent, battery_temperature_c, charging_status, range_km)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3,$4), 4326)::geography, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, location=EXCLUDED.location, make=EXCLUDED.make, model=EXCLUDED.model,
			battery_size_kwh=EXCLUDED.battery_size_kwh, battery_soc_percent=EXCLUDED.battery_soc_percent,
			battery_temperature_c=EXCLUDED.battery_temperature_c, charging_status=EXCLUDED.charging_status,
			range_km=EXCLUDED.range_km
	`, v.ID, v.Name, v.Location.Lon(), v.Location.Lat(), v.Car.Make, v.Car.Model, v.Car.BatterySizeKWh,
		v.Car.BatterySOCPercent, v.Car.BatteryTemperatureC, string(v.Car.ChargingStatus), v.Car.RangeKm)
	if err != nil {
		return wrap("upsert vehicle", err)
	}
	return nil
}
