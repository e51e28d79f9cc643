package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"financeflow/internal/config"
	"financeflow/internal/domain/model"
	"financeflow/internal/usecase"
)

// QueueAdmin is the queue surface exposed to operators.
type QueueAdmin interface {
	Stats(ctx context.Context) (model.QueueStats, error)
	ListFailed(ctx context.Context, limit int) ([]*model.QueuedJob, error)
	RetryFailed(ctx context.Context, id string) error
}

type Deps struct {
	Ingest usecase.IngestUseCase
	Health usecase.HealthUseCase
	Cron   usecase.CronUseCase
	Queue  QueueAdmin

	WebhookSecret string
	CronGuard     *Guard
	AdminGuard    *Guard

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

type Server struct {
	deps Deps
	cfg  config.HTTPConfig
	log  *zerolog.Logger
	srv  *http.Server
}

func NewServer(cfg config.HTTPConfig, deps Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	s := &Server{deps: deps, cfg: cfg, log: &l}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Router builds the chi route tree. Handlers are nil-safe for optional deps.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID, Recover(s.log), RequestLog(s.log))
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.With(Timeout(s.requestTimeout())).Post("/telegram/webhook", s.handleTelegramWebhook)
		r.Get("/health", s.handleHealth)

		if s.deps.Cron != nil && s.deps.CronGuard != nil {
			r.With(s.deps.CronGuard.Middleware("cron")).Get("/cron/{job}", s.handleCron)
		}
		if s.deps.Queue != nil && s.deps.AdminGuard != nil {
			r.Route("/admin/queue", func(r chi.Router) {
				r.Use(s.deps.AdminGuard.Middleware("admin_queue"))
				r.Get("/", s.handleQueueStats)
				r.Get("/failed", s.handleListFailed)
				r.Post("/failed/{id}/retry", s.handleRetryFailed)
			})
		}
	})
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.WriteTimeout > time.Second {
		return s.cfg.WriteTimeout - time.Second
	}
	return 10 * time.Second
}

// Start serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func errorBody(msg string) apiError { return apiError{OK: false, Error: msg} }

var okBody = map[string]bool{"ok": true}
