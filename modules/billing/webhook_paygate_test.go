package billing_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
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

const (
	testIPNSecret  = "ipn-secret"
	testLemonKey   = "lemon-secret"
	testRemoteAddr = "192.0.2.1" // httptest.NewRequest default
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// seedSubscription puts an active starter subscription correlated with
// paygate order ord-77 into the store and returns its account ID.
func seedSubscription(t *testing.T, store *billing.MemoryStore) uuid.UUID {
	t.Helper()

	accountID := uuid.New()
	sub := billing.NewTrial(accountID, time.Now().UTC())
	sub.PlanID = plan.IDStarter
	sub.Status = billing.StatusActive
	sub.QuotaLimit = 500
	sub.Provider = billing.ProviderPaygate
	sub.OrderID = "ord-77"
	sub.SubID = "sub-77"
	sub.CustomerID = "cus-77"
	require.NoError(t, store.Save(context.Background(), sub))
	return accountID
}

func newPaygateServer(t *testing.T, store *billing.MemoryStore, allowedIPs ...string) http.Handler {
	t.Helper()

	svc := billing.NewService(store, store, store, billing.WithLogger(quietLogger()))
	verifier := billing.NewPaygateVerifier(billing.PaygateConfig{
		IPNSecret:  testIPNSecret,
		AllowedIPs: allowedIPs,
	})
	return modbilling.Router(modbilling.RouterOptions{
		Paygate: modbilling.NewPaygateWebhook(verifier, svc, quietLogger()),
	})
}

func postIPN(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paygate/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signedForm(ipnType string) url.Values {
	form := url.Values{}
	form.Set("ipn_type", ipnType)
	form.Set("notification_id", "ntf-1")
	form.Set("order_id", "ord-77")
	form.Set("subscription_id", "sub-77")
	form.Set("customer_id", "cus-77")
	form.Set("product_code", "BF-PRO-Y")
	form.Set("billing_period", "yearly")
	billing.SignPaygateForm(testIPNSecret, form)
	return form
}

func TestPaygateWebhook_ChargeAccepted(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedSubscription(t, store)
	h := newPaygateServer(t, store)

	rec := postIPN(t, h, signedForm("CHARGE"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	sub, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, plan.IDPro, sub.PlanID)
	assert.Equal(t, billing.StatusActive, sub.Status)
}

func TestPaygateWebhook_BadProofRejected(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedSubscription(t, store)
	h := newPaygateServer(t, store)

	form := signedForm("CHARGE")
	form.Set("order_id", "ord-tampered")

	rec := postIPN(t, h, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaygateWebhook_DisallowedIP(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedSubscription(t, store)
	h := newPaygateServer(t, store, "203.0.113.9")

	rec := postIPN(t, h, signedForm("CHARGE"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaygateWebhook_AllowListedIP(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedSubscription(t, store)
	h := newPaygateServer(t, store, testRemoteAddr)

	rec := postIPN(t, h, signedForm("CHARGE"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaygateWebhook_UnknownAccountIs404(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	h := newPaygateServer(t, store)

	rec := postIPN(t, h, signedForm("CHARGE"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaygateWebhook_UnknownIPNTypeAcknowledged(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	seedSubscription(t, store)
	h := newPaygateServer(t, store)

	rec := postIPN(t, h, signedForm("LOYALTY_POINTS"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestPaygateWebhook_RedeliveryAcknowledged(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedSubscription(t, store)
	h := newPaygateServer(t, store)

	first := postIPN(t, h, signedForm("CHARGE"))
	require.Equal(t, http.StatusOK, first.Code)

	before, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)

	second := postIPN(t, h, signedForm("CHARGE"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "OK", second.Body.String())

	after, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, *before, *after, "redelivery must not mutate state")
}

func TestPaygateWebhook_GetRejected(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	h := newPaygateServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/paygate/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
