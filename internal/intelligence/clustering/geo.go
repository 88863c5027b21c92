// internal/intelligence/clustering/geo.go
package clustering

import (
	"math"

	"iluma-intelligence/internal/models"
)

const (
	// EarthRadiusMeters is the IUGG mean earth radius.
	EarthRadiusMeters = 6371008.8

	metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180
)

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

type tileKey struct {
	row, col int
}

// tileOf places c on a lat/lng grid whose cells are sideDeg degrees wide.
func tileOf(c models.Coordinates, sideDeg float64) tileKey {
	return tileKey{
		row: int(math.Floor((c.Lat + 90) / sideDeg)),
		col: int(math.Floor((c.Lng + 180) / sideDeg)),
	}
}

// tileSideDegrees is the grid cell size for a radius: never smaller than the
// radius expressed in latitude degrees.
func tileSideDegrees(radiusMeters float64) float64 {
	side := 4 * radiusMeters / metersPerDegreeLat
	if side < 0.05 {
		side = 0.05
	}
	if side > 180 {
		side = 180
	}
	return side
}
