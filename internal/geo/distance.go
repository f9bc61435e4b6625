// Package geo resolves FSA coordinates and assigns records to their nearest
// DBS treatment center.
package geo

import "math"

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance in kilometers between two
// coordinates using the haversine formula. This is the only distance
// implementation in the module; every caller goes through it.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Clamp to guard against floating-point drift past 1.0 near antipodes.
	if a > 1 {
		a = 1
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
