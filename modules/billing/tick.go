package billing

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/botframe/billingcore/pkg/automation"
)

// TickRunner is the slice of the automation engine the endpoint needs.
type TickRunner interface {
	Tick(ctx context.Context) (int, error)
}

// TickService exposes the scheduler-facing tick endpoint. An external
// cron hits it with a bearer shared secret; the engine's single-flight
// guard turns overlapping schedules into 409s.
type TickService struct {
	token  string
	engine TickRunner
	log    *slog.Logger
}

// NewTickService creates the automation tick endpoint.
func NewTickService(token string, engine TickRunner, log *slog.Logger) *TickService {
	if token == "" {
		panic("billing module: tick token is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &TickService{token: token, engine: engine, log: log}
}

func (s *TickService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/tick", s.tick)
	return r
}

func (s *TickService) tick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	auth := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	executed, err := s.engine.Tick(ctx)
	switch {
	case err == nil:
		s.log.InfoContext(ctx, "automation tick finished", slog.Int("executed", executed))
		respondJSON(w, http.StatusOK, map[string]int{"executed": executed})

	case errors.Is(err, automation.ErrTickInProgress):
		respondJSON(w, http.StatusConflict, map[string]string{"error": "a tick is already running"})

	default:
		s.log.ErrorContext(ctx, "automation tick failed", slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
