package matcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/carpool-matching/internal/geo"
	"github.com/example/carpool-matching/internal/models"
	"github.com/example/carpool-matching/internal/observability"
)

// cellPrecision keeps logged and published locations at roughly 1km.
const cellPrecision = 6

type Cache interface {
	Get(ctx context.Context, key string) ([]models.MatchResult, bool, error)
	Set(ctx context.Context, key string, results []models.MatchResult) error
}

type Publisher interface {
	PublishMatches(ctx context.Context, ev models.MatchEvent) error
}

// Service wraps the pure matcher with caching, metrics and event
// publication. Cache and Publisher are optional.
type Service struct {
	Policy    Policy
	Cache     Cache
	Publisher Publisher
	Logger    *slog.Logger
	Clock     func() time.Time
}

func (s *Service) Match(ctx context.Context, q models.MatchQuery) (models.MatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return models.MatchResponse{}, err
	}
	start := time.Now()
	defer func() { observability.MatchLatency.Observe(time.Since(start).Seconds()) }()
	observability.MatchCallsTotal.Inc()

	now := s.now()
	if q.Now != nil && !q.Now.IsZero() {
		now = *q.Now
	}
	resp := models.MatchResponse{RequestID: uuid.NewString(), Now: now}
	log := s.logger().With(
		"request_id", resp.RequestID,
		"offers", len(q.Offers),
		"origin_cell", geo.Cell(q.Request.From, cellPrecision),
		"ride_now", q.Request.RideNow,
	)

	var (
		key     string
		matches []models.MatchResult
		hit     bool
	)
	if s.Cache != nil {
		key = CacheKey(q.Offers, q.Request, now)
	}
	if key != "" {
		cached, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			log.Warn("match cache get failed", "error", err)
		}
		if ok && relink(cached, q.Offers) {
			observability.CacheHitsTotal.Inc()
			matches, hit = cached, true
		} else {
			observability.CacheMissesTotal.Inc()
		}
	}

	if hit {
		log.Debug("match served from cache", "matches", len(matches))
	} else {
		var rejected map[Reason]int
		matches, rejected = s.Policy.match(q.Offers, q.Request, now)
		for reason, n := range rejected {
			observability.OffersRejectedTotal.WithLabelValues(string(reason)).Add(float64(n))
		}
		log.Info("match computed", "matches", len(matches), "rejected", rejected)
		if key != "" {
			if err := s.Cache.Set(ctx, key, matches); err != nil {
				log.Warn("match cache set failed", "error", err)
			}
		}
	}

	observability.MatchesReturned.Observe(float64(len(matches)))
	if len(matches) > 0 {
		observability.MatchesTotal.Inc()
	}
	resp.Matches = matches
	if s.Publisher != nil && len(matches) > 0 {
		if err := s.Publisher.PublishMatches(ctx, newEvent(resp, q.Request)); err != nil {
			observability.PublishErrorsTotal.Inc()
			log.Warn("match event publish failed", "error", err)
		}
	}
	return resp, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// CacheKey identifies a matching call. now only takes part when the request
// has no departure time, since otherwise it does not affect the result. It
// returns "" for inputs that cannot be encoded (NaN or Inf values), which are
// never cached.
func CacheKey(offers []models.RideOffer, req models.RideRequest, now time.Time) string {
	var ref time.Time
	if req.DepartureTime.IsZero() {
		ref = now.UTC()
	}
	b, err := json.Marshal(struct {
		Offers  []models.RideOffer `json:"o"`
		Request models.RideRequest `json:"r"`
		Now     time.Time          `json:"n"`
	}{offers, req, ref})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// relink points cached results back at the caller's offers. It reports false
// when an offer id is missing, in which case the entry is treated as a miss.
func relink(results []models.MatchResult, offers []models.RideOffer) bool {
	byID := make(map[string]*models.RideOffer, len(offers))
	for i := range offers {
		byID[offers[i].ID] = &offers[i]
	}
	for i := range results {
		if results[i].Offer == nil {
			return false
		}
		o, ok := byID[results[i].Offer.ID]
		if !ok {
			return false
		}
		results[i].Offer = o
	}
	return true
}

func newEvent(resp models.MatchResponse, req models.RideRequest) models.MatchEvent {
	ev := models.MatchEvent{
		RequestID:       resp.RequestID,
		At:              resp.Now,
		OriginCell:      geo.Cell(req.From, cellPrecision),
		DestinationCell: geo.Cell(req.To, cellPrecision),
		Matches:         make([]models.ProposedOffer, 0, len(resp.Matches)),
	}
	for i, m := range resp.Matches {
		ev.Matches = append(ev.Matches, models.ProposedOffer{
			OfferID:       m.Offer.ID,
			Rank:          i + 1,
			Score:         m.Score,
			DetourMinutes: m.DetourMinutes,
		})
	}
	return ev
}
