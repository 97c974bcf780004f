package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/botframe/billingcore/pkg/plan"
)

// LemonSqueezyConfig holds provider B (JSON webhook) configuration.
type LemonSqueezyConfig struct {
	WebhookSecret string `env:"LEMONSQUEEZY_WEBHOOK_SECRET,required"`
	APIKey        string `env:"LEMONSQUEEZY_API_KEY"`
	APIBaseURL    string `env:"LEMONSQUEEZY_API_URL" envDefault:"https://api.lemonsqueezy.com/v1"`
}

// VerifyLemonSignature checks the header-carried HMAC-SHA256 signature
// over the exact raw request body. A missing secret is a hard rejection
// independent of payload content.
func VerifyLemonSignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if signature == "" {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

type lemonPayload struct {
	Meta struct {
		EventName  string            `json:"event_name"`
		EventID    string            `json:"event_id"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			OrderID        json.Number `json:"order_id"`
			SubscriptionID json.Number `json:"subscription_id"`
			CustomerID     json.Number `json:"customer_id"`
			VariantID      json.Number `json:"variant_id"`
			Status         string      `json:"status"`
			RenewsAt       *time.Time  `json:"renews_at"`
			FirstOrderItem struct {
				VariantID json.Number `json:"variant_id"`
			} `json:"first_order_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseLemonEvent converts a verified lemonsqueezy webhook body into a
// normalized Event. The meta.event_name discriminator selects the kind;
// data.attributes carries the correlation identifiers.
func ParseLemonEvent(body []byte) (Event, error) {
	var p lemonPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Meta.EventName == "" {
		return Event{}, fmt.Errorf("%w: missing meta.event_name", ErrMalformedPayload)
	}

	attrs := p.Data.Attributes
	variant := attrs.VariantID.String()
	if variant == "" || variant == "0" {
		variant = attrs.FirstOrderItem.VariantID.String()
	}

	ev := Event{
		Provider:   ProviderLemonSqueezy,
		EventID:    p.Meta.EventID,
		CustomerID: attrs.CustomerID.String(),
		PlanRef:    variant,
		RenewsAt:   nil,
		OccurredAt: time.Now().UTC(),
	}
	if attrs.RenewsAt != nil {
		utc := attrs.RenewsAt.UTC()
		ev.RenewsAt = &utc
	}
	if per, ok := plan.PeriodForRef(variant); ok {
		ev.Period = per
	}

	// data.id is the subscription ID for subscription_* events and the
	// order ID for order_* events.
	switch p.Data.Type {
	case "subscriptions":
		ev.SubID = p.Data.ID
		ev.OrderID = attrs.OrderID.String()
	case "orders":
		ev.OrderID = p.Data.ID
		ev.SubID = attrs.SubscriptionID.String()
	default:
		ev.SubID = attrs.SubscriptionID.String()
		ev.OrderID = attrs.OrderID.String()
	}
	normalizeZeroIDs(&ev)

	if ref, ok := p.Meta.CustomData["account_id"]; ok && ref != "" {
		id, err := uuid.Parse(ref)
		if err != nil {
			return Event{}, fmt.Errorf("%w: bad account_id %q", ErrMalformedPayload, ref)
		}
		ev.AccountID = id
	}

	switch p.Meta.EventName {
	case "order_created":
		if size, ok := plan.PackSize(variant); ok {
			ev.Kind = EventQuotaPurchase
			ev.QuotaTopUp = size
			ev.PurchaseID = ev.OrderID
		} else {
			ev.Kind = EventCharged
		}
	case "subscription_created":
		ev.Kind = EventCharged
	case "subscription_payment_success", "subscription_resumed":
		ev.Kind = EventRenewed
	case "subscription_payment_failed":
		ev.Kind = EventPaymentFailed
		// "unpaid" means LemonSqueezy exhausted its dunning retries.
		ev.Terminal = attrs.Status == "unpaid"
	case "subscription_cancelled":
		ev.Kind = EventCancelled
	case "subscription_paused":
		ev.Kind = EventSuspended
	case "subscription_expired":
		ev.Kind = EventTerminated
	case "order_refunded":
		ev.Kind = EventRefunded
	default:
		return Event{}, fmt.Errorf("%w: event_name %q", ErrUnknownEventKind, p.Meta.EventName)
	}

	return ev, nil
}

// json.Number renders absent numeric fields as "" and explicit zeros as
// "0"; neither is a usable correlation identifier.
func normalizeZeroIDs(ev *Event) {
	if ev.OrderID == "0" {
		ev.OrderID = ""
	}
	if ev.SubID == "0" {
		ev.SubID = ""
	}
	if ev.CustomerID == "0" {
		ev.CustomerID = ""
	}
}
