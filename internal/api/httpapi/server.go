// Package httpapi exposes the track source HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/app/queue"
	"github.com/osa030/tunechat/internal/domain/track"
	"github.com/osa030/tunechat/internal/infra/config"
	"github.com/osa030/tunechat/internal/infra/tracksource"
)

// ListenerCookie carries the listener ID between requests.
const ListenerCookie = "tunechat_listener"

// Queue is the recommendation cursor service.
type Queue interface {
	Next(ctx context.Context, listenerID string) (*track.Track, bool, error)
	Reset(ctx context.Context, listenerID string) error
}

// Server handles the track source API.
type Server struct {
	queue     Queue
	messages  config.MessagesConfig
	proxy     config.ProxyConfig
	upstream  *http.Client
	cookieTTL time.Duration
}

// NewServer creates the API server.
func NewServer(q Queue, messages config.MessagesConfig, proxy config.ProxyConfig, cookieTTL time.Duration) *Server {
	return &Server{
		queue:     q,
		messages:  messages,
		proxy:     proxy,
		upstream:  &http.Client{},
		cookieTTL: cookieTTL,
	}
}

// Router returns the API routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/next_song", s.handleNextSong).Methods(http.MethodGet)
	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/proxy_audio", s.handleProxyAudio).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) handleNextSong(w http.ResponseWriter, r *http.Request) {
	listenerID := s.listenerID(w, r)

	t, ok, err := s.queue.Next(r.Context(), listenerID)
	switch {
	case errors.Is(err, queue.ErrNoSongs):
		writeJSON(w, http.StatusBadRequest, tracksource.NextSongResponse{Response: s.messages.NoSongs})
		return
	case err != nil:
		zlog.Error().Err(err).Msgf("httpapi: next_song failed for listener %s", listenerID)
		writeJSON(w, http.StatusBadGateway, tracksource.NextSongResponse{
			Response: s.messages.SourceError,
			Error:    err.Error(),
		})
		return
	case !ok:
		writeJSON(w, http.StatusOK, tracksource.NextSongResponse{Response: s.messages.Exhausted})
		return
	}

	writeJSON(w, http.StatusOK, tracksource.NextSongResponse{
		Response: fmt.Sprintf(s.messages.NextSong, t.SongName, t.ArtistName),
		Song:     tracksource.FromTrack(t),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	listenerID := s.listenerID(w, r)
	if err := s.queue.Reset(r.Context(), listenerID); err != nil {
		zlog.Error().Err(err).Msgf("httpapi: reset failed for listener %s", listenerID)
		writeJSON(w, http.StatusInternalServerError, tracksource.NextSongResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tracksource.NextSongResponse{Response: s.messages.Reset})
}

// listenerID returns the caller's listener ID, issuing a cookie when the
// request carries neither the header nor the cookie.
func (s *Server) listenerID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(tracksource.ListenerHeader)); id != "" {
		return id
	}
	if c, err := r.Cookie(ListenerCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ListenerCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	zlog.Debug().Msgf("httpapi: new listener %s", id)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("httpapi: failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zlog.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("httpapi: request")
	})
}
