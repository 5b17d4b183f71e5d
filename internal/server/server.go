// Package server exposes sessions over a websocket and game statistics over
// a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/george-m2/cobra/internal/config"
	"github.com/george-m2/cobra/internal/session"
	"github.com/george-m2/cobra/internal/storage"
)

const defaultGamesLimit = 20

// SessionFactory starts a session for a new client.
type SessionFactory func() (*session.Session, error)

// Store is the read side of the game database.
type Store interface {
	LoadStats() (*storage.GameStats, error)
	ListGames(limit int) ([]storage.GameRecord, error)
	GetGame(id string) (*storage.GameRecord, error)
	LoadSettings() (config.Settings, bool, error)
}

// Server routes HTTP requests. Store may be nil, in which case the
// statistics endpoints answer 503.
type Server struct {
	router     chi.Router
	newSession SessionFactory
	store      Store
	logger     zerolog.Logger
	upgrader   websocket.Upgrader

	// OnShutdown is called when a client sends SHUTDOWN.
	OnShutdown func()
}

// New builds the router.
func New(newSession SessionFactory, store Store, logger zerolog.Logger) *Server {
	s := &Server{
		newSession: newSession,
		store:      store,
		logger:     logger.With().Str("component", "server").Logger(),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/games", s.handleGames)
	r.Get("/api/games/{id}", s.handleGame)
	r.Get("/api/settings", s.handleSettings)
	r.Get("/ws", s.serveWS)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type statsResponse struct {
	*storage.GameStats
	Accuracy      float64 `json:"accuracy"`
	EngineWinRate float64 `json:"engine_win_rate"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage disabled"})
		return
	}
	stats, err := s.store.LoadStats()
	if err != nil {
		s.logger.Error().Err(err).Msg("loading stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loading stats failed"})
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		GameStats:     stats,
		Accuracy:      stats.Accuracy(),
		EngineWinRate: stats.EngineWinRate(),
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage disabled"})
		return
	}
	limit := defaultGamesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	games, err := s.store.ListGames(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing games")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing games failed"})
		return
	}
	if games == nil {
		games = []storage.GameRecord{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage disabled"})
		return
	}
	rec, err := s.store.GetGame(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
	case err != nil:
		s.logger.Error().Err(err).Msg("loading game")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loading game failed"})
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

// handleSettings returns the settings last saved by a session.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage disabled"})
		return
	}
	st, found, err := s.store.LoadSettings()
	switch {
	case err != nil:
		s.logger.Error().Err(err).Msg("loading settings")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loading settings failed"})
	case !found:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no saved settings"})
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

// serveWS runs one session per connection. Every text frame is a message
// and gets exactly one JSON reply frame.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := s.logger.With().Str("remote", r.RemoteAddr).Logger()
	sess, err := s.newSession()
	if err != nil {
		log.Error().Err(err).Msg("starting session")
		_ = conn.WriteJSON(session.Reply{Error: err.Error()})
		return
	}
	defer sess.Close()
	log.Info().Msg("client connected")

	// The connection outlives the request context once hijacked.
	ctx := context.Background()
	for {
		kind, message, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("client disconnected")
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply, err := sess.Handle(ctx, string(message))
		if err != nil {
			log.Debug().Err(err).Msg("message rejected")
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn().Err(err).Msg("writing reply")
			return
		}

		if sess.Done() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			if sess.ShutdownRequested() && s.OnShutdown != nil {
				s.OnShutdown()
			}
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
