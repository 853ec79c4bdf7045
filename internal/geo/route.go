package geo

import (
	"math"

	"github.com/example/carpool-matching/internal/models"
)

// NearestDistanceToPath returns the distance from p to the closest waypoint
// of path. Segments between waypoints are not interpolated, so accuracy
// depends on how dense the route is. An empty path yields +Inf.
func NearestDistanceToPath(p models.Coord, path []models.Coord) float64 {
	best := math.Inf(1)
	for _, w := range path {
		if d := Distance(p, w); d < best {
			best = d
		}
	}
	return best
}

// NearestWaypointIndex returns the index of the waypoint closest to p. Ties
// go to the earliest waypoint. Returns NotFound for an empty path.
func NearestWaypointIndex(p models.Coord, path []models.Coord) int {
	idx := NotFound
	best := math.Inf(1)
	for i, w := range path {
		if d := Distance(p, w); d < best {
			best = d
			idx = i
		}
	}
	return idx
}

// IsForwardOrder reports whether pickup strictly precedes dropoff along a
// route. Equal indices are not a valid ride.
func IsForwardOrder(pickupIndex, dropoffIndex int) bool {
	if pickupIndex == NotFound || dropoffIndex == NotFound {
		return false
	}
	return pickupIndex < dropoffIndex
}
