package geospatial

import (
	"math"

	"github.com/medsnear/medsnear/internal/core/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between a and b.
func HaversineKm(a, b domain.GeoPoint) float64 {
	return haversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a just past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// kmPerDegreeLat is the length of one degree of latitude on the sphere used
// by Haversine.
const kmPerDegreeLat = earthRadiusKm * math.Pi / 180

// BoundsAround returns the box enclosing every point within radiusKm of
// center, clamped to valid coordinates. It over-covers near the poles.
func BoundsAround(center domain.GeoPoint, radiusKm float64) domain.Bounds {
	latDelta := radiusKm / kmPerDegreeLat
	lonDelta := 180.0
	if cos := math.Cos(toRad(center.Lat)); cos > 1e-9 {
		lonDelta = math.Min(radiusKm/(kmPerDegreeLat*cos), 180)
	}

	return domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MinLon: math.Max(center.Lon-lonDelta, -180),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MaxLon: math.Min(center.Lon+lonDelta, 180),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
