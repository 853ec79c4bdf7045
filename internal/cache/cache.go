package cache

import (
	"context"
	"sync"
	"time"

	"github.com/example/carpool-matching/internal/models"
)

// Memory is a tiny in-process cache of ranked results with a fixed TTL.
type Memory struct {
	mu    sync.RWMutex
	store map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

type entry struct {
	v  []models.MatchResult
	ts time.Time
}

// NewMemory creates a cache with the provided TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{store: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached results if present and not expired.
func (c *Memory) Get(_ context.Context, key string) ([]models.MatchResult, bool, error) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return detach(e.v), true, nil
}

func (c *Memory) Set(_ context.Context, key string, results []models.MatchResult) error {
	c.mu.Lock()
	c.store[key] = entry{v: detach(results), ts: c.now()}
	c.mu.Unlock()
	return nil
}

// detach copies results and replaces each offer with an id-only stub so the
// cache never aliases caller-owned offers.
func detach(results []models.MatchResult) []models.MatchResult {
	out := make([]models.MatchResult, len(results))
	copy(out, results)
	for i := range out {
		if out[i].Offer != nil {
			out[i].Offer = &models.RideOffer{ID: out[i].Offer.ID}
		}
	}
	return out
}
