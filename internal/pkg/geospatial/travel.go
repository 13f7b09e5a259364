package geospatial

import (
	"math"

	"github.com/medsnear/medsnear/internal/core/domain"
)

// Heuristic product constants. Changing them changes what customers see.
const (
	// RoadDistanceFactor turns a great-circle distance into an approximate
	// driving distance.
	RoadDistanceFactor = 1.64

	// AverageUrbanSpeedKmh is the assumed driving speed inside a city.
	AverageUrbanSpeedKmh = 25.0
)

// Unknown is the travel time reported when either end has no location.
var Unknown = math.Inf(1)

// MinutesForDistance converts a straight-line distance in km to estimated
// driving minutes. The result is never below one minute.
func MinutesForDistance(km float64) float64 {
	drivingKm := km * RoadDistanceFactor
	minutes := math.Round(drivingKm / AverageUrbanSpeedKmh * 60)
	return math.Max(1, minutes)
}

// TravelMinutes estimates driving minutes from one point to another.
// A nil endpoint yields Unknown (+Inf).
func TravelMinutes(from, to *domain.GeoPoint) float64 {
	if from == nil || to == nil {
		return Unknown
	}
	return MinutesForDistance(HaversineKm(*from, *to))
}
