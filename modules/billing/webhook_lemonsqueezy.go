package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/metrics"
)

func countLemon(outcome string) {
	metrics.WebhooksReceived.WithLabelValues(string(billing.ProviderLemonSqueezy), outcome).Inc()
}

// maxLemonBody bounds the webhook body read; real payloads are a few KB.
const maxLemonBody = 1 << 20

// LemonWebhook ingests lemonsqueezy JSON webhooks. Authenticity rides
// in the X-Signature header as a hex HMAC-SHA256 over the raw body.
type LemonWebhook struct {
	secret string
	svc    *billing.Service
	log    *slog.Logger
}

// NewLemonWebhook creates the lemonsqueezy webhook endpoint.
func NewLemonWebhook(signingSecret string, svc *billing.Service, log *slog.Logger) *LemonWebhook {
	if log == nil {
		log = slog.Default()
	}
	return &LemonWebhook{secret: signingSecret, svc: svc, log: log}
}

func (h *LemonWebhook) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.receive)
	return r
}

func (h *LemonWebhook) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxLemonBody))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	// The signature covers the exact raw bytes; verification happens
	// before the body is parsed or trusted in any way.
	if err := billing.VerifyLemonSignature(h.secret, body, r.Header.Get("X-Signature")); err != nil {
		h.log.WarnContext(ctx, "lemonsqueezy signature rejected",
			slog.String("ip", r.RemoteAddr),
			slog.Any("error", err))
		countLemon("rejected")
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	ev, err := billing.ParseLemonEvent(body)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownEventKind) {
			// Unhandled event names (subscription_updated and friends)
			// are acknowledged, not errored.
			countLemon("dropped")
			respondReceived(w)
			return
		}
		h.log.WarnContext(ctx, "malformed lemonsqueezy webhook", slog.Any("error", err))
		countLemon("rejected")
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	res, err := h.svc.Ingest(ctx, ev)
	switch {
	case err == nil:
		if res.Duplicate {
			h.log.InfoContext(ctx, "lemonsqueezy redelivery acknowledged",
				slog.String("event_id", ev.EventID))
			countLemon("duplicate")
		} else {
			countLemon("applied")
			metrics.EventsApplied.WithLabelValues(string(ev.Provider), string(ev.Kind)).Inc()
		}
		respondReceived(w)

	case errors.Is(err, billing.ErrAccountNotFound),
		errors.Is(err, billing.ErrMissingCorrelation),
		errors.Is(err, billing.ErrUnknownPlanRef),
		errors.Is(err, billing.ErrNoSubscription):
		// Acknowledged: this provider retries non-2xx aggressively and
		// a dropped event is reconciled manually from the log line.
		h.log.ErrorContext(ctx, "lemonsqueezy event dropped",
			slog.String("event_name", string(ev.Kind)),
			slog.String("event_id", ev.EventID),
			slog.String("order_id", ev.OrderID),
			slog.String("subscription_id", ev.SubID),
			slog.Any("error", err))
		countLemon("dropped")
		respondReceived(w)

	default:
		h.log.ErrorContext(ctx, "lemonsqueezy event processing failed",
			slog.String("event_id", ev.EventID),
			slog.Any("error", err))
		countLemon("error")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func respondReceived(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
