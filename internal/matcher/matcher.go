package matcher

import (
	"sort"
	"time"

	"github.com/example/carpool-matching/internal/eta"
	"github.com/example/carpool-matching/internal/geo"
	"github.com/example/carpool-matching/internal/models"
)

// Reason names the filter an offer failed.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoSeats        Reason = "no_seats"
	ReasonOutsideWindow  Reason = "outside_window"
	ReasonWalkTooFar     Reason = "walk_too_far"
	ReasonWrongDirection Reason = "wrong_direction"
	ReasonDetourTooLong  Reason = "detour_too_long"
)

const (
	// one detour minute costs as much as two km of combined walking
	detourWeightPerMinute = 2.0
	walkWeightPerKm       = 1.0
)

// Policy holds the tunable bounds of the matching filters.
type Policy struct {
	// NowWindow is the departure tolerance for riders leaving immediately.
	NowWindow time.Duration
	// ScheduledWindow is the departure tolerance for scheduled rides.
	ScheduledWindow time.Duration
	// MaxDetourMinutes caps every offer regardless of what it advertises.
	MaxDetourMinutes float64
	// SpeedKph converts detour distance into minutes.
	SpeedKph float64
}

// DefaultPolicy returns the production bounds: 5 and 15 minute windows, a
// 5 minute detour ceiling and 30 km/h.
func DefaultPolicy() Policy {
	return Policy{
		NowWindow:        5 * time.Minute,
		ScheduledWindow:  15 * time.Minute,
		MaxDetourMinutes: 5,
		SpeedKph:         eta.DefaultSpeedKph,
	}
}

// FindMatches ranks offers against req with the default policy. A zero now
// means wall clock.
func FindMatches(offers []models.RideOffer, req models.RideRequest, now time.Time) []models.MatchResult {
	return DefaultPolicy().FindMatches(offers, req, now)
}

// FindMatches returns every offer that passes all filters, best score first.
// Malformed offers (empty route, non-finite coordinates) are dropped by the
// filters and never influence other offers.
func (p Policy) FindMatches(offers []models.RideOffer, req models.RideRequest, now time.Time) []models.MatchResult {
	res, _ := p.match(offers, req, now)
	return res
}

// Evaluate runs the filters for a single offer. On rejection the returned
// reason is non-empty and the result must be ignored.
func (p Policy) Evaluate(offer *models.RideOffer, req models.RideRequest, now time.Time) (models.MatchResult, Reason) {
	if offer.FreeSeats <= 0 {
		return models.MatchResult{}, ReasonNoSeats
	}

	ref := req.DepartureTime
	if ref.IsZero() {
		ref = now
	}
	tol := p.ScheduledWindow
	if req.RideNow {
		tol = p.NowWindow
	}
	if offer.DepartureTime.Before(ref.Add(-tol)) || offer.DepartureTime.After(ref.Add(tol)) {
		return models.MatchResult{}, ReasonOutsideWindow
	}

	pickupDist := geo.NearestDistanceToPath(req.From, offer.Route)
	dropoffDist := geo.NearestDistanceToPath(req.To, offer.Route)
	// negated so NaN rejects
	if !(pickupDist <= req.MaxWalkMeters) || !(dropoffDist <= req.MaxWalkMeters) {
		return models.MatchResult{}, ReasonWalkTooFar
	}

	pickupIdx := geo.NearestWaypointIndex(req.From, offer.Route)
	dropoffIdx := geo.NearestWaypointIndex(req.To, offer.Route)
	if !geo.IsForwardOrder(pickupIdx, dropoffIdx) {
		return models.MatchResult{}, ReasonWrongDirection
	}

	detour := eta.DetourMinutes(offer, req.From, req.To, p.SpeedKph)
	limit := min(offer.MaxDetourMinutes, p.MaxDetourMinutes)
	if !(detour <= limit) {
		return models.MatchResult{}, ReasonDetourTooLong
	}

	return models.MatchResult{
		Offer:         offer,
		Score:         detour*detourWeightPerMinute + (pickupDist+dropoffDist)/1000*walkWeightPerKm,
		DetourMinutes: detour,
		PickupMeters:  pickupDist,
		DropoffMeters: dropoffDist,
		PickupIndex:   pickupIdx,
		DropoffIndex:  dropoffIdx,
	}, ReasonNone
}

func (p Policy) match(offers []models.RideOffer, req models.RideRequest, now time.Time) ([]models.MatchResult, map[Reason]int) {
	if now.IsZero() {
		now = time.Now()
	}
	out := make([]models.MatchResult, 0, len(offers))
	rejected := make(map[Reason]int)
	for i := range offers {
		r, reason := p.Evaluate(&offers[i], req, now)
		if reason != ReasonNone {
			rejected[reason]++
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out, rejected
}
