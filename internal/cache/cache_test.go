package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool-matching/internal/models"
)

func sampleResults() ([]models.RideOffer, []models.MatchResult) {
	offers := []models.RideOffer{
		{ID: "a", FreeSeats: 2, Route: []models.Coord{{Lat: 1, Lon: 2}}},
		{ID: "b", FreeSeats: 1},
	}
	return offers, []models.MatchResult{
		{Offer: &offers[1], Score: 0.5, DetourMinutes: 0.1, PickupIndex: 0, DropoffIndex: 2},
		{Offer: &offers[0], Score: 1.5, DetourMinutes: 0.6, PickupIndex: 1, DropoffIndex: 3},
	}
}

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	offers, results := sampleResults()
	require.NoError(t, c.Set(ctx, "k", results))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Offer.ID)
	assert.Equal(t, 0.5, got[0].Score)
	assert.NotSame(t, &offers[1], got[0].Offer, "cache must not alias caller offers")
	assert.Nil(t, got[1].Offer.Route)
}

func TestMemoryExpires(t *testing.T) {
	c := NewMemory(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	_, results := sampleResults()
	require.NoError(t, c.Set(ctx, "k", results))

	now = now.Add(2 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.store)
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisRoundTrip(t *testing.T) {
	mr, client := setupMiniredis(t)
	c := NewRedis(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, results := sampleResults()
	require.NoError(t, c.Set(ctx, "k", results))
	assert.True(t, mr.Exists("match:k"))
	assert.Equal(t, time.Minute, mr.TTL("match:k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Offer.ID)
	assert.Equal(t, "a", got[1].Offer.ID)
	assert.Equal(t, 3, got[1].DropoffIndex)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCorruptValue(t *testing.T) {
	mr, client := setupMiniredis(t)
	c := NewRedis(client, time.Minute)
	require.NoError(t, mr.Set("match:bad", "not json"))
	_, ok, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}
