package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"financeflow/internal/domain"
	"financeflow/internal/infra/logging"
	"financeflow/internal/usecase"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": usecase.HealthHealthy})
		return
	}
	rep := s.deps.Health.Check(r.Context())
	status := http.StatusOK
	if rep.Status == usecase.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")
	run, err := s.deps.Cron.Run(r.Context(), job)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusNotFound, errorBody("unknown job"))
	case err != nil:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("job", job).Msg("cron run failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": "job failed",
			"run":   run,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "run": run})
	}
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Queue.Stats(r.Context())
	if err != nil {
		s.internalError(w, r, err, "queue stats failed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListFailed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid limit"))
			return
		}
		limit = n
	}
	jobs, err := s.deps.Queue.ListFailed(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err, "list failed jobs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.Queue.RetryFailed(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("job not found"))
	case err != nil:
		s.internalError(w, r, err, "retry failed job failed")
	default:
		l := logging.With(r.Context(), s.log)
		l.Info().Str("job_id", id).Msg("failed job requeued")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	l := logging.With(r.Context(), s.log)
	l.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
