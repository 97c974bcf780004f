package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botframe/billingcore/pkg/billing"
)

// AccountResolver extracts the authenticated account from the request.
// The host application plugs its session or token layer in here; the
// billing module never inspects credentials itself.
type AccountResolver func(r *http.Request) (uuid.UUID, error)

// ManageService exposes the account-facing cancel/resume surface.
type ManageService struct {
	svc     *billing.Service
	account AccountResolver
	log     *slog.Logger
}

// NewManageService creates the subscription management endpoint.
func NewManageService(svc *billing.Service, account AccountResolver, log *slog.Logger) *ManageService {
	if account == nil {
		panic("billing module: AccountResolver is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ManageService{svc: svc, account: account, log: log}
}

func (s *ManageService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/manage", s.manage)
	return r
}

type manageRequest struct {
	Action string `json:"action"`
}

type manageResponse struct {
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

// manage validates the requested action, pushes it to the provider
// first, and reports the resulting local state. An upstream failure
// leaves the subscription untouched and surfaces as 502.
func (s *ManageService) manage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := s.account(r)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req manageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	var action billing.ManageAction
	switch req.Action {
	case string(billing.ActionCancel):
		action = billing.ActionCancel
	case string(billing.ActionResume):
		action = billing.ActionResume
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown action"})
		return
	}

	sub, err := s.svc.Manage(ctx, accountID, action)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, manageResponse{
			Status:    string(sub.Status),
			ExpiresAt: sub.ExpiresAt.Format(time.RFC3339),
		})

	case errors.Is(err, billing.ErrSubscriptionNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no subscription"})

	case errors.Is(err, billing.ErrNoProviderRelation):
		respondJSON(w, http.StatusConflict, map[string]string{"error": "subscription has no billing provider attached"})

	case errors.Is(err, billing.ErrProviderUnavailable):
		s.log.ErrorContext(ctx, "provider API rejected manage action",
			slog.String("account_id", accountID.String()),
			slog.String("action", req.Action),
			slog.Any("error", err))
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "billing provider unavailable, nothing was changed"})

	default:
		s.log.ErrorContext(ctx, "manage action failed",
			slog.String("account_id", accountID.String()),
			slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
