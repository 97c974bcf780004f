package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/botframe/billingcore/pkg/plan"
)

// PaygateConfig holds provider A (form-encoded IPN) configuration.
type PaygateConfig struct {
	IPNSecret  string   `env:"PAYGATE_IPN_SECRET,required"`
	APIKey     string   `env:"PAYGATE_API_KEY"`
	APIBaseURL string   `env:"PAYGATE_API_URL" envDefault:"https://api.paygate.example.com/v2"`
	AllowedIPs []string `env:"PAYGATE_ALLOWED_IPS" envSeparator:","`
}

// paygate IPN type codes.
const (
	paygateCharge     = "CHARGE"
	paygateRebill     = "REBILL"
	paygateCancel     = "CANCEL"
	paygateChargeFail = "CHARGE_FAIL"
	paygateSuspend    = "SUSPEND"
	paygateTerminate  = "TERMINATE"
	paygateRefund     = "REFUND"
	paygatePack       = "PACK"
)

// PaygateVerifier validates paygate IPN requests. The provider presents
// two independent proofs: a keyed hash over the identifying fields
// (order_id, ipn_type, product_code) and an HMAC-SHA256 signature over a
// canonical serialization of the whole payload. Both must pass. Requests
// from addresses outside the allow-list are rejected before any proof is
// checked.
type PaygateVerifier struct {
	secret  string
	allowed map[string]struct{}
}

// NewPaygateVerifier creates a verifier from config. An empty allow-list
// disables the IP check (local development); an empty secret does not
// disable verification but fails every request, per the fail-closed
// contract.
func NewPaygateVerifier(cfg PaygateConfig) *PaygateVerifier {
	v := &PaygateVerifier{secret: cfg.IPNSecret}
	if len(cfg.AllowedIPs) > 0 {
		v.allowed = make(map[string]struct{}, len(cfg.AllowedIPs))
		for _, ip := range cfg.AllowedIPs {
			if ip = strings.TrimSpace(ip); ip != "" {
				v.allowed[ip] = struct{}{}
			}
		}
	}
	return v
}

// AllowIP reports whether the source address passes the allow-list.
func (v *PaygateVerifier) AllowIP(ip string) bool {
	if v.allowed == nil {
		return true
	}
	_, ok := v.allowed[ip]
	return ok
}

// Verify checks both proofs against the presented form values.
// Any mismatch or missing secret is a hard rejection regardless of
// payload content.
func (v *PaygateVerifier) Verify(form url.Values) error {
	if v.secret == "" {
		return ErrMissingSecret
	}

	presentedHash := form.Get("hash")
	presentedSign := form.Get("sign")
	if presentedHash == "" || presentedSign == "" {
		return ErrSignatureMismatch
	}

	wantHash := paygateFieldHash(v.secret, form)
	wantSign := paygateCanonicalSign(v.secret, form)

	// Evaluate both compares so a failure reveals nothing about which
	// proof was wrong.
	hashOK := hmac.Equal([]byte(wantHash), []byte(presentedHash))
	signOK := hmac.Equal([]byte(wantSign), []byte(presentedSign))
	if !hashOK || !signOK {
		return ErrSignatureMismatch
	}
	return nil
}

// SignPaygateForm computes and sets both proofs on the form. Used by
// tests and by the sandbox replay tool to produce valid payloads.
func SignPaygateForm(secret string, form url.Values) {
	form.Set("hash", paygateFieldHash(secret, form))
	form.Set("sign", paygateCanonicalSign(secret, form))
}

// paygateFieldHash is the keyed hash over the identifying fields.
func paygateFieldHash(secret string, form url.Values) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(form.Get("order_id") + "|" + form.Get("ipn_type") + "|" + form.Get("product_code")))
	return hex.EncodeToString(mac.Sum(nil))
}

// paygateCanonicalSign signs the canonical string: all fields except the
// proofs themselves, sorted by key, serialized as key=value joined by "|".
func paygateCanonicalSign(secret string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		if k == "hash" || k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+form.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParsePaygateEvent converts a verified IPN form into a normalized Event.
func ParsePaygateEvent(form url.Values) (Event, error) {
	ipnType := form.Get("ipn_type")
	if ipnType == "" {
		return Event{}, fmt.Errorf("%w: missing ipn_type", ErrMalformedPayload)
	}

	ev := Event{
		Provider:   ProviderPaygate,
		EventID:    form.Get("notification_id"),
		OrderID:    form.Get("order_id"),
		SubID:      form.Get("subscription_id"),
		CustomerID: form.Get("customer_id"),
		PlanRef:    form.Get("product_code"),
		OccurredAt: time.Now().UTC(),
	}

	// account_ref is the checkout custom field carrying our account ID.
	if ref := form.Get("account_ref"); ref != "" {
		id, err := uuid.Parse(ref)
		if err != nil {
			return Event{}, fmt.Errorf("%w: bad account_ref %q", ErrMalformedPayload, ref)
		}
		ev.AccountID = id
	}

	switch form.Get("billing_period") {
	case "monthly":
		ev.Period = plan.PeriodMonthly
	case "yearly":
		ev.Period = plan.PeriodYearly
	}

	if raw := form.Get("renewal_date"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			utc := ts.UTC()
			ev.RenewsAt = &utc
		}
	}

	switch ipnType {
	case paygateCharge:
		ev.Kind = EventCharged
	case paygateRebill:
		ev.Kind = EventRenewed
	case paygateCancel:
		ev.Kind = EventCancelled
	case paygateChargeFail:
		ev.Kind = EventPaymentFailed
		ev.Terminal = form.Get("final") == "1"
	case paygateSuspend:
		ev.Kind = EventSuspended
	case paygateTerminate:
		ev.Kind = EventTerminated
	case paygateRefund:
		ev.Kind = EventRefunded
	case paygatePack:
		size, ok := plan.PackSize(form.Get("product_code"))
		if !ok {
			return Event{}, fmt.Errorf("%w: unknown pack code %q", ErrMalformedPayload, form.Get("product_code"))
		}
		ev.Kind = EventQuotaPurchase
		ev.QuotaTopUp = size
		ev.PurchaseID = ev.OrderID
	default:
		return Event{}, fmt.Errorf("%w: ipn_type %q", ErrUnknownEventKind, ipnType)
	}

	return ev, nil
}
