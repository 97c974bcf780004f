package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/clientip"
	"github.com/botframe/billingcore/pkg/metrics"
)

func countPaygate(outcome string) {
	metrics.WebhooksReceived.WithLabelValues(string(billing.ProviderPaygate), outcome).Inc()
}

// PaygateWebhook ingests form-encoded IPN notifications. The provider
// documents a literal "OK" body as the only acknowledgement it accepts
// and keys its status code handling on 400/403/404, so the responses
// here are plain text, not JSON.
type PaygateWebhook struct {
	verifier *billing.PaygateVerifier
	svc      *billing.Service
	log      *slog.Logger
}

// NewPaygateWebhook creates the paygate IPN endpoint.
func NewPaygateWebhook(verifier *billing.PaygateVerifier, svc *billing.Service, log *slog.Logger) *PaygateWebhook {
	if log == nil {
		log = slog.Default()
	}
	return &PaygateWebhook{verifier: verifier, svc: svc, log: log}
}

func (h *PaygateWebhook) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(clientip.Middleware)
	r.Post("/", h.receive)
	return r
}

func (h *PaygateWebhook) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ip := clientip.GetIPFromContext(ctx)
	if !h.verifier.AllowIP(ip) {
		h.log.WarnContext(ctx, "paygate IPN from disallowed address",
			slog.String("ip", ip))
		countPaygate("rejected")
		http.Error(w, "FORBIDDEN", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		countPaygate("rejected")
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}
	form := r.PostForm

	if err := h.verifier.Verify(form); err != nil {
		if errors.Is(err, billing.ErrMissingSecret) {
			h.log.ErrorContext(ctx, "paygate IPN secret not configured")
			http.Error(w, "ERROR", http.StatusInternalServerError)
			return
		}
		// Raw identifying fields are kept for forensic replay.
		h.log.WarnContext(ctx, "paygate IPN proof rejected",
			slog.String("ip", ip),
			slog.String("ipn_type", form.Get("ipn_type")),
			slog.String("order_id", form.Get("order_id")),
			slog.Any("error", err))
		countPaygate("rejected")
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}

	ev, err := billing.ParsePaygateEvent(form)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownEventKind) {
			// Notification types outside the vocabulary are acknowledged
			// so the provider does not retry them forever.
			h.log.InfoContext(ctx, "paygate IPN type ignored",
				slog.String("ipn_type", form.Get("ipn_type")))
			countPaygate("dropped")
			respondOK(w)
			return
		}
		h.log.WarnContext(ctx, "malformed paygate IPN",
			slog.String("order_id", form.Get("order_id")),
			slog.Any("error", err))
		countPaygate("rejected")
		http.Error(w, "BAD REQUEST", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Ingest(ctx, ev)
	switch {
	case err == nil:
		if res.Duplicate {
			h.log.InfoContext(ctx, "paygate IPN redelivery acknowledged",
				slog.String("event_id", ev.EventID))
			countPaygate("duplicate")
		} else {
			countPaygate("applied")
			metrics.EventsApplied.WithLabelValues(string(ev.Provider), string(ev.Kind)).Inc()
		}
		respondOK(w)

	case errors.Is(err, billing.ErrAccountNotFound):
		// This provider's retry logic keys on 404 to mark the
		// notification undeliverable instead of retrying it.
		h.log.ErrorContext(ctx, "paygate IPN does not resolve to an account",
			slog.String("order_id", ev.OrderID),
			slog.String("subscription_id", ev.SubID))
		countPaygate("dropped")
		http.Error(w, "NOT FOUND", http.StatusNotFound)

	case errors.Is(err, billing.ErrMissingCorrelation),
		errors.Is(err, billing.ErrUnknownPlanRef),
		errors.Is(err, billing.ErrNoSubscription):
		// Business-level failures are logged for manual reconciliation
		// and acknowledged to stop the retry storm.
		h.log.ErrorContext(ctx, "paygate IPN dropped",
			slog.String("ipn_type", form.Get("ipn_type")),
			slog.String("order_id", ev.OrderID),
			slog.Any("error", err))
		countPaygate("dropped")
		respondOK(w)

	default:
		h.log.ErrorContext(ctx, "paygate IPN processing failed",
			slog.String("event_id", ev.EventID),
			slog.Any("error", err))
		countPaygate("error")
		http.Error(w, "ERROR", http.StatusInternalServerError)
	}
}

func respondOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK")) //nolint:errcheck
}
