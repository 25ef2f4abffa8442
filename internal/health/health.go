// Package health serves the minimal liveness HTTP endpoint.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ofertabot/internal/poller"
)

// livenessBody is the static confirmation string platform probes expect.
const livenessBody = "El bot de ofertas está activo."

type Config struct {
	Enabled bool
	Addr    string
}

// StatusProvider is the poller slice the health server reads from.
type StatusProvider interface {
	Status() poller.Status
}

type Server struct {
	cfg    Config
	log    zerolog.Logger
	status StatusProvider
	srv    *http.Server
}

func New(cfg Config, status StatusProvider, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{cfg: cfg, log: log, status: status}
}

// Handler builds the route table. Split out so tests can hit it without a
// listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(livenessBody))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			OK     bool          `json:"ok"`
			Status poller.Status `json:"status"`
		}{OK: true, Status: s.status.Status()}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func (s *Server) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("health endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("health endpoint failed")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(sctx)
	s.srv = nil
}
