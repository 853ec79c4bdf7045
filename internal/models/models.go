package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RideOffer is a driver's published trip. Route runs from Departure to
// Destination in travel order and is never reordered.
type RideOffer struct {
	ID               string    `json:"id"`
	Departure        Coord     `json:"departure"`
	Destination      Coord     `json:"destination"`
	DepartureTime    time.Time `json:"departure_time"`
	MaxDetourMinutes float64   `json:"max_detour_minutes"`
	FreeSeats        int       `json:"free_seats"`
	Route            []Coord   `json:"route"`
}

// RideRequest is a rider's trip intent. RideNow narrows the departure window.
type RideRequest struct {
	From          Coord     `json:"from"`
	To            Coord     `json:"to"`
	DepartureTime time.Time `json:"departure_time"`
	MaxWalkMeters float64   `json:"max_walk_meters"`
	RideNow       bool      `json:"ride_now"`
}

// MatchResult pairs an offer with its score; lower is better. Offer points
// into the caller's slice.
type MatchResult struct {
	Offer         *RideOffer `json:"offer"`
	Score         float64    `json:"score"`
	DetourMinutes float64    `json:"detour_minutes"`
	PickupMeters  float64    `json:"pickup_meters"`
	DropoffMeters float64    `json:"dropoff_meters"`
	PickupIndex   int        `json:"pickup_index"`
	DropoffIndex  int        `json:"dropoff_index"`
}

// MatchQuery is the body of one matching call. A nil Now means wall clock.
type MatchQuery struct {
	Offers  []RideOffer `json:"offers"`
	Request RideRequest `json:"request"`
	Now     *time.Time  `json:"now,omitempty"`
}

type MatchResponse struct {
	RequestID string        `json:"request_id"`
	Now       time.Time     `json:"now"`
	Matches   []MatchResult `json:"matches"`
}

type ProposedOffer struct {
	OfferID       string  `json:"offer_id"`
	Rank          int     `json:"rank"`
	Score         float64 `json:"score"`
	DetourMinutes float64 `json:"detour_minutes"`
}

// MatchEvent announces the offers proposed to a rider. Locations are
// geohash cells, never raw coordinates.
type MatchEvent struct {
	RequestID       string          `json:"request_id"`
	At              time.Time       `json:"at"`
	OriginCell      string          `json:"origin_cell"`
	DestinationCell string          `json:"destination_cell"`
	Matches         []ProposedOffer `json:"matches"`
}

type MatchRecord struct {
	RequestID     string
	OfferID       string
	Rank          int
	Score         float64
	DetourMinutes float64
	CreatedAt     time.Time
}

// Records flattens an event into one audit row per proposed offer.
func (e MatchEvent) Records() []MatchRecord {
	out := make([]MatchRecord, 0, len(e.Matches))
	for _, m := range e.Matches {
		out = append(out, MatchRecord{
			RequestID:     e.RequestID,
			OfferID:       m.OfferID,
			Rank:          m.Rank,
			Score:         m.Score,
			DetourMinutes: m.DetourMinutes,
			CreatedAt:     e.At,
		})
	}
	return out
}
