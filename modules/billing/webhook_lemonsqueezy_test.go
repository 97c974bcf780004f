package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modbilling "github.com/botframe/billingcore/modules/billing"
	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/plan"
)

func lemonSign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newLemonServer(t *testing.T, store *billing.MemoryStore) http.Handler {
	t.Helper()

	svc := billing.NewService(store, store, store, billing.WithLogger(quietLogger()))
	return modbilling.Router(modbilling.RouterOptions{
		LemonSqueezy: modbilling.NewLemonWebhook(testLemonKey, svc, quietLogger()),
	})
}

func postLemon(t *testing.T, h http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/lemonsqueezy/", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// seedLemonSubscription stores a subscription correlated with
// lemonsqueezy subscription id 9001.
func seedLemonSubscription(t *testing.T, store *billing.MemoryStore) uuid.UUID {
	t.Helper()

	accountID := uuid.New()
	sub := billing.NewTrial(accountID, time.Now().UTC())
	sub.PlanID = plan.IDStarter
	sub.Status = billing.StatusActive
	sub.QuotaLimit = 500
	sub.Provider = billing.ProviderLemonSqueezy
	sub.SubID = "9001"
	sub.CustomerID = "314"
	require.NoError(t, store.Save(context.Background(), sub))
	return accountID
}

func lemonBody(eventName, eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": %q, "event_id": %q},
		"data": {
			"type": "subscriptions",
			"id": "9001",
			"attributes": {
				"customer_id": 314,
				"order_id": 555,
				"variant_id": 473221,
				"status": "active",
				"renews_at": "2026-09-28T00:00:00Z"
			}
		}
	}`, eventName, eventID))
}

func TestLemonWebhook_PaymentSuccessApplied(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedLemonSubscription(t, store)
	h := newLemonServer(t, store)

	body := lemonBody("subscription_payment_success", "evt-1")
	rec := postLemon(t, h, body, lemonSign(testLemonKey, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["received"])

	sub, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, plan.IDPro, sub.PlanID, "renewal refreshed the plan from the variant")
	assert.Zero(t, sub.QuotaUsed, "renewal resets the counter")
}

func TestLemonWebhook_BadSignatureRejected(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedLemonSubscription(t, store)
	h := newLemonServer(t, store)

	body := lemonBody("subscription_payment_success", "evt-1")
	sig := []byte(lemonSign(testLemonKey, body))
	sig[0] ^= 1 // one nibble off

	rec := postLemon(t, h, body, string(sig))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLemonWebhook_MissingSecretIsHardReject(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedLemonSubscription(t, store)
	svc := billing.NewService(store, store, store, billing.WithLogger(quietLogger()))
	h := modbilling.Router(modbilling.RouterOptions{
		LemonSqueezy: modbilling.NewLemonWebhook("", svc, quietLogger()),
	})

	body := lemonBody("subscription_payment_success", "evt-1")
	rec := postLemon(t, h, body, lemonSign("whatever", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLemonWebhook_UnresolvableAcknowledged(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	h := newLemonServer(t, store)

	body := lemonBody("subscription_payment_success", "evt-1")
	rec := postLemon(t, h, body, lemonSign(testLemonKey, body))

	assert.Equal(t, http.StatusOK, rec.Code, "unknown accounts are swallowed, not retried")
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["received"])
}

func TestLemonWebhook_UnhandledEventNameAcknowledged(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedLemonSubscription(t, store)
	h := newLemonServer(t, store)

	body := lemonBody("subscription_updated", "evt-2")
	rec := postLemon(t, h, body, lemonSign(testLemonKey, body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLemonWebhook_MalformedBodyRejected(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	h := newLemonServer(t, store)

	body := []byte("{not json")
	rec := postLemon(t, h, body, lemonSign(testLemonKey, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLemonWebhook_RedeliveryDoesNotMutate(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedLemonSubscription(t, store)
	h := newLemonServer(t, store)

	body := lemonBody("subscription_cancelled", "evt-3")
	first := postLemon(t, h, body, lemonSign(testLemonKey, body))
	require.Equal(t, http.StatusOK, first.Code)

	before, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, billing.StatusCancelled, before.Status)

	second := postLemon(t, h, body, lemonSign(testLemonKey, body))
	assert.Equal(t, http.StatusOK, second.Code)

	after, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, *before, *after)
}
