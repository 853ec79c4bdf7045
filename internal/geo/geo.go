package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/example/carpool-matching/internal/models"
)

const earthRadiusMeters = 6371000.0

// NotFound is returned by NearestWaypointIndex when no waypoint qualifies.
const NotFound = -1

// Distance is the haversine distance between a and b in meters.
func Distance(a, b models.Coord) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Cell encodes c as a geohash of the given precision. Used where a coarse
// location is enough (logs, events).
func Cell(c models.Coord, precision uint) string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lon, precision)
}
