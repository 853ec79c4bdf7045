package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/carpool-matching/internal/models"
)

// Matcher is the matching entry point the handlers call.
type Matcher interface {
	Match(ctx context.Context, q models.MatchQuery) (models.MatchResponse, error)
}

// Check reports whether a dependency is ready to serve.
type Check func(ctx context.Context) error

type Server struct {
	Matcher Matcher
	Ready   map[string]Check
	logger  *slog.Logger
	mux     *mux.Router
}

func NewServer(m Matcher, logger *slog.Logger, ready map[string]Check) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Matcher: m, Ready: ready, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/matches", s.handleMatch).Methods("POST")
	s.mux.HandleFunc("/ws/matches", s.handleWS).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var q models.MatchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, "invalid match query: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := s.Matcher.Match(r.Context(), q)
	if err != nil {
		s.logger.Warn("match failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		http.Error(w, "match unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, check := range s.Ready {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			http.Error(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

var upgrader = websocket.Upgrader{}

type wsError struct {
	Error string `json:"error"`
}

// handleWS answers each MatchQuery frame with a MatchResponse frame. Frames
// are independent; nothing is kept between them.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the error response
		return
	}
	defer conn.Close()
	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("ws read error", "error", err)
			}
			return
		}
		var q models.MatchQuery
		if err := json.Unmarshal(data, &q); err != nil {
			if err := conn.WriteJSON(wsError{Error: "invalid match query: " + err.Error()}); err != nil {
				return
			}
			continue
		}
		resp, err := s.Matcher.Match(ctx, q)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if err := conn.WriteJSON(wsError{Error: "match unavailable"}); err != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("ws write error", "error", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
