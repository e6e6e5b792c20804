// Package geo holds small spherical geometry helpers.
package geo

import (
	"math"

	"github.com/kilianp07/evnav/core/model"
)

const earthRadiusM = 6371008.8

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b model.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Lerp linearly interpolates longitude and latitude between a and b.
func Lerp(a, b model.Point, t float64) model.Point {
	return model.Point{
		a.Lon() + (b.Lon()-a.Lon())*t,
		a.Lat() + (b.Lat()-a.Lat())*t,
	}
}
