package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool-matching/internal/matcher"
	"github.com/example/carpool-matching/internal/models"
)

var now = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(ready map[string]Check) *Server {
	svc := &matcher.Service{Policy: matcher.DefaultPolicy(), Logger: quietLogger(), Clock: func() time.Time { return now }}
	return NewServer(svc, quietLogger(), ready)
}

func sampleQuery() models.MatchQuery {
	route := []models.Coord{{Lat: 48.8566, Lon: 2.3522}, {Lat: 48.8568, Lon: 2.38}, {Lat: 48.8566, Lon: 2.4}}
	full := models.RideOffer{ID: "full", Departure: route[0], Destination: route[2], DepartureTime: now.Add(5 * time.Minute), MaxDetourMinutes: 5, FreeSeats: 0, Route: route}
	open := full
	open.ID = "open"
	open.FreeSeats = 2
	return models.MatchQuery{
		Offers: []models.RideOffer{full, open},
		Request: models.RideRequest{
			From:          models.Coord{Lat: 48.8567, Lon: 2.355},
			To:            models.Coord{Lat: 48.8566, Lon: 2.398},
			DepartureTime: now.Add(3 * time.Minute),
			MaxWalkMeters: 500,
			RideNow:       true,
		},
	}
}

func TestHandleMatch(t *testing.T) {
	srv := newTestServer(nil)
	body, _ := json.Marshal(sampleQuery())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp models.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "open", resp.Matches[0].Offer.ID)
	assert.True(t, resp.Now.Equal(now))
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandleMatchExplicitNow(t *testing.T) {
	srv := newTestServer(nil)
	q := sampleQuery()
	later := now.Add(time.Hour)
	q.Now = &later
	body, _ := json.Marshal(q)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/matches", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Now.Equal(later))
	// the request carries its own departure time, so the window is unaffected
	assert.Len(t, resp.Matches, 1)
}

func TestHandleMatchBadJSON(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/matches", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMatchEmptyOffers(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/matches", strings.NewReader(`{"offers":[],"request":{}}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"matches":[]`)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(map[string]Check{
		"redis": func(context.Context) error { return errors.New("down") },
	})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")

	ok := newTestServer(map[string]Check{"redis": func(context.Context) error { return nil }})
	rec = httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	srv := NewServer(panicMatcher{}, quietLogger(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/matches", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicMatcher struct{}

func (panicMatcher) Match(context.Context, models.MatchQuery) (models.MatchResponse, error) {
	panic("boom")
}

func TestWebSocketMatches(t *testing.T) {
	ts := httptest.NewServer(newTestServer(nil))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/matches"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var errFrame map[string]string
	require.NoError(t, conn.ReadJSON(&errFrame))
	assert.Contains(t, errFrame["error"], "invalid match query")

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(sampleQuery()))
		var resp models.MatchResponse
		require.NoError(t, conn.ReadJSON(&resp))
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, "open", resp.Matches[0].Offer.ID)
	}
}
