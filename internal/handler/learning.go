package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/guitar-ai/internal/service"
)

// LearningHandler exposes the learning loop's state.
type LearningHandler struct {
	svc    *service.LearningService
	logger *slog.Logger
}

func NewLearningHandler(svc *service.LearningService, logger *slog.Logger) *LearningHandler {
	return &LearningHandler{svc: svc, logger: logger}
}

// HandleContext shows what a generation would be given right now.
//
// HTTP: GET /api/learning/context?type=guitar&q=Fender+Stratocaster
func (h *LearningHandler) HandleContext(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	snap, err := h.svc.Context(r.Context(), p, q.Get("type"), q.Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, snap)
}

// HTTP: GET /api/learning/dashboard
func (h *LearningHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.svc.Dashboard(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	d.RecentCorrections = nonNil(d.RecentCorrections)
	d.RecentExamples = nonNil(d.RecentExamples)
	d.RecentGenerations = nonNil(d.RecentGenerations)
	writeData(w, http.StatusOK, d)
}

// HTTP: GET /api/learning/stats
func (h *LearningHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	st, err := h.svc.Stats(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, st)
}

// Pinger is anything that can report whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealth answers liveness probes.
//
// HTTP: GET /healthz
//
// 200 when the database answers within two seconds, 503 otherwise. The
// body never carries the underlying error.
func HandleHealth(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, Envelope{Error: "database unavailable", Code: "unavailable"})
			return
		}
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
