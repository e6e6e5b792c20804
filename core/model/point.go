package model

import (
	"encoding/json"
	"fmt"
)

// Point is a geographic position stored as [longitude, latitude], the order
// used by GeoJSON and by every routing provider we talk to.
type Point [2]float64

// NewPoint builds a Point from longitude and latitude.
func NewPoint(lon, lat float64) Point { return Point{lon, lat} }

// Lon returns the longitude.
func (p Point) Lon() float64 { return p[0] }

// Lat returns the latitude.
func (p Point) Lat() float64 { return p[1] }

// Validate reports whether the point lies within WGS84 bounds.
func (p Point) Validate() error {
	if p.Lon() < -180 || p.Lon() > 180 {
		return fmt.Errorf("longitude %f out of range", p.Lon())
	}
	if p.Lat() < -90 || p.Lat() > 90 {
		return fmt.Errorf("latitude %f out of range", p.Lat())
	}
	return nil
}

// UnmarshalJSON accepts [lon, lat] as well as the {"coordinates": [lon, lat]}
// GeoJSON point form stored on user documents.
func (p *Point) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) < 2 {
			return fmt.Errorf("point needs 2 coordinates, got %d", len(arr))
		}
		*p = Point{arr[0], arr[1]}
		return nil
	}
	var obj struct {
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if len(obj.Coordinates) < 2 {
		return fmt.Errorf("point needs 2 coordinates, got %d", len(obj.Coordinates))
	}
	*p = Point{obj.Coordinates[0], obj.Coordinates[1]}
	return nil
}
