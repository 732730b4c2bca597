// Package geo provides great-circle math over WGS84 lat/lng points.
package geo

import (
	"math"

	"paroletrack/internal/model"
)

const earthRadiusM = 6371000.0

// DistanceMeters returns the haversine surface distance between two
// points. Callers must supply lat in [-90,90] and lng in [-180,180];
// the spherical approximation stays within ~0.5% of the geodesic
// distance, which is sufficient for radius checks at geofence scale.
func DistanceMeters(a, b model.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}
