// Package geo provides small spherical-geometry helpers shared by the hotspot
// engine and the realtime location-subscription matching.
package geo

import "math"

const earthRadiusKm = 6371

// ValidCoordinate reports whether the pair is a usable WGS84 position.
func ValidCoordinate(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PointInBounds reports whether (lon, lat) falls inside the inclusive
// rectangle. Boxes crossing the antimeridian are not supported.
func PointInBounds(lon, lat, minLat, maxLat, minLon, maxLon float64) bool {
	return lon >= minLon && lon <= maxLon && lat >= minLat && lat <= maxLat
}

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180)
}
