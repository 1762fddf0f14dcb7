// Package status serves a read-only HTTP view of the live sessions.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"jukebox/audio"
)

// SnapshotSource lists live sessions; audio.Player is one.
type SnapshotSource interface {
	Snapshots() []audio.Snapshot
}

type Server struct {
	source SnapshotSource
	logger *zap.Logger
	http   *http.Server
}

func NewServer(addr string, source SnapshotSource, logger *zap.Logger) *Server {
	s := &Server{source: source, logger: logger}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/health", s.HandleHealth)
	r.Get("/sessions", s.HandleSessions)
	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "jukebox",
		"sessions": len(s.source.Snapshots()),
	})
}

type trackView struct {
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Duration    string `json:"duration"`
	URL         string `json:"url,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

type sessionView struct {
	GuildID    string     `json:"guild_id"`
	SessionID  string     `json:"session_id"`
	State      string     `json:"state"`
	NowPlaying *trackView `json:"now_playing,omitempty"`
	Position   int        `json:"position"`
	Length     int        `json:"length"`
	HasNext    bool       `json:"has_next"`
}

func (s *Server) HandleSessions(w http.ResponseWriter, r *http.Request) {
	snaps := s.source.Snapshots()
	out := make([]sessionView, 0, len(snaps))
	for _, snap := range snaps {
		v := sessionView{
			GuildID:   snap.GuildID,
			SessionID: snap.SessionID,
			State:     snap.State.String(),
			Position:  snap.Position,
			Length:    snap.Length,
			HasNext:   snap.HasNext,
		}
		if t := snap.NowPlaying; t != nil {
			v.NowPlaying = &trackView{
				Title:       t.Title,
				Artist:      t.Artist,
				Duration:    t.FormattedDuration(),
				URL:         t.URL,
				RequestedBy: t.RequestedBy,
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
