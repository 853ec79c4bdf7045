package eta

import (
	"github.com/example/carpool-matching/internal/geo"
	"github.com/example/carpool-matching/internal/models"
)

// DefaultSpeedKph is the assumed average driving speed used to turn detour
// distance into time.
const DefaultSpeedKph = 30.0

// DetourMeters estimates the extra distance a driver covers by going
// departure -> pickup -> dropoff -> destination instead of straight from
// departure to destination. Only the offer's endpoints are used, not its
// route, and the result is not clamped: it can be negative.
func DetourMeters(offer *models.RideOffer, pickup, dropoff models.Coord) float64 {
	direct := geo.Distance(offer.Departure, offer.Destination)
	toPickup := geo.Distance(offer.Departure, pickup)
	betweenStops := geo.Distance(pickup, dropoff)
	toDest := geo.Distance(dropoff, offer.Destination)
	return toPickup + betweenStops + toDest - direct
}

// MetersToMinutes converts a distance to driving minutes at speedKph.
// A non-positive speed falls back to DefaultSpeedKph.
func MetersToMinutes(meters, speedKph float64) float64 {
	if speedKph <= 0 {
		speedKph = DefaultSpeedKph
	}
	metersPerMinute := speedKph * 1000 / 60
	return meters / metersPerMinute
}

// DetourMinutes is DetourMeters expressed as driving time at speedKph.
func DetourMinutes(offer *models.RideOffer, pickup, dropoff models.Coord, speedKph float64) float64 {
	return MetersToMinutes(DetourMeters(offer, pickup, dropoff), speedKph)
}
