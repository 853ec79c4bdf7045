package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/example/carpool-matching/internal/models"
)

// MatchLog records which offers were proposed for each matching call.
type MatchLog interface {
	SaveMatches(ctx context.Context, recs []models.MatchRecord) error
	ListByRequest(ctx context.Context, requestID string) ([]models.MatchRecord, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]models.MatchRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]models.MatchRecord)}
}

// SaveMatches upserts by (request id, offer id), like the postgres store.
func (m *MemoryStore) SaveMatches(_ context.Context, recs []models.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		existing := m.records[r.RequestID]
		replaced := false
		for i := range existing {
			if existing[i].OfferID == r.OfferID {
				existing[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, r)
		}
		m.records[r.RequestID] = existing
	}
	return nil
}

func (m *MemoryStore) ListByRequest(_ context.Context, requestID string) ([]models.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.MatchRecord(nil), m.records[requestID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// Recorder publishes match events straight into a MatchLog. It stands in for
// the kafka producer when no broker is configured.
type Recorder struct {
	Log MatchLog
}

func (r *Recorder) PublishMatches(ctx context.Context, ev models.MatchEvent) error {
	return r.Log.SaveMatches(ctx, ev.Records())
}
