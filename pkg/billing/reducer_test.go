package billing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/plan"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activeSub(p billing.Provider) *billing.Subscription {
	return &billing.Subscription{
		AccountID:  uuid.New(),
		PlanID:     plan.IDStarter,
		Status:     billing.StatusActive,
		QuotaUsed:  120,
		QuotaLimit: 500,
		Period:     plan.PeriodMonthly,
		ExpiresAt:  testNow.AddDate(0, 0, 20),
		Provider:   p,
		OrderID:    "ord-1",
		SubID:      "sub-1",
		CustomerID: "cus-1",
		CreatedAt:  testNow.AddDate(0, -1, 0),
		UpdatedAt:  testNow.AddDate(0, 0, -5),
	}
}

func TestApply_Charged(t *testing.T) {
	t.Parallel()

	t.Run("pro yearly sets quota, resets usage, extends a year", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{
			Provider: billing.ProviderPaygate,
			Kind:     billing.EventCharged,
			OrderID:  "ord-2",
			SubID:    "sub-2",
			PlanRef:  "BF-PRO-Y",
			Period:   plan.PeriodYearly,
		}

		next, effects, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, next.Status)
		assert.Equal(t, plan.IDPro, next.PlanID)
		assert.Equal(t, int64(0), next.QuotaUsed)
		assert.Equal(t, int64(3000), next.QuotaLimit)
		assert.Equal(t, testNow.AddDate(0, 0, 365), next.ExpiresAt)
		assert.Equal(t, "ord-2", next.OrderID)
		assert.Contains(t, effects, billing.EffectQuotaReset)
	})

	t.Run("unknown plan reference is rejected", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventCharged, PlanRef: "SKU-404"}

		_, _, err := billing.Apply(sub, ev, testNow)
		assert.ErrorIs(t, err, billing.ErrUnknownPlanRef)
	})

	t.Run("nil subscription is an error, never an implicit create", func(t *testing.T) {
		t.Parallel()
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventCharged, PlanRef: "BF-PRO-M"}
		_, _, err := billing.Apply(nil, ev, testNow)
		assert.ErrorIs(t, err, billing.ErrNoSubscription)
	})
}

func TestApply_Renewed(t *testing.T) {
	t.Parallel()

	t.Run("uses provider renewal timestamp when given", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderLemonSqueezy)
		renews := testNow.AddDate(0, 1, 3)
		ev := billing.Event{
			Provider: billing.ProviderLemonSqueezy,
			Kind:     billing.EventRenewed,
			SubID:    "sub-1",
			PlanRef:  "473211",
			RenewsAt: &renews,
		}

		next, _, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, renews, next.ExpiresAt)
		assert.Equal(t, int64(0), next.QuotaUsed)
		assert.Equal(t, billing.StatusActive, next.Status)
	})

	t.Run("falls back to now plus period", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventRenewed, SubID: "sub-1"}

		next, _, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, testNow.AddDate(0, 0, 30), next.ExpiresAt)
	})

	t.Run("keeps current plan when reference does not resolve", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventRenewed, SubID: "sub-1", PlanRef: "SKU-404"}

		next, _, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, plan.IDStarter, next.PlanID)
		assert.Equal(t, int64(500), next.QuotaLimit)
	})
}

func TestApply_Cancelled(t *testing.T) {
	t.Parallel()

	// Grace-period semantics: only the status flips, entitlement stays.
	sub := activeSub(billing.ProviderPaygate)
	ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventCancelled, SubID: "sub-1"}

	next, effects, err := billing.Apply(sub, ev, testNow)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, next.Status)
	assert.Equal(t, sub.ExpiresAt, next.ExpiresAt)
	assert.Equal(t, sub.PlanID, next.PlanID)
	assert.Equal(t, sub.QuotaLimit, next.QuotaLimit)
	assert.Equal(t, sub.QuotaUsed, next.QuotaUsed)
	assert.Empty(t, effects)
	assert.True(t, next.IsEntitled(testNow))
}

func TestApply_PaymentFailed(t *testing.T) {
	t.Parallel()

	t.Run("soft failure leaves the record untouched", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventPaymentFailed, SubID: "sub-1"}

		next, _, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, next.Status)
		assert.Equal(t, sub.ExpiresAt, next.ExpiresAt)
	})

	t.Run("terminal failure moves to past_due without shortening expiry", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventPaymentFailed, SubID: "sub-1", Terminal: true}

		next, _, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusPastDue, next.Status)
		assert.Equal(t, sub.ExpiresAt, next.ExpiresAt)
	})
}

func TestApply_TerminatedAndRefunded(t *testing.T) {
	t.Parallel()

	t.Run("terminated clears correlation", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventTerminated, SubID: "sub-1"}

		next, effects, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusExpired, next.Status)
		assert.Empty(t, next.OrderID)
		assert.Empty(t, next.SubID)
		assert.Empty(t, string(next.Provider))
		assert.Contains(t, effects, billing.EffectCorrelationCleared)
	})

	t.Run("refunded resets to the trial floor", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderLemonSqueezy)
		ev := billing.Event{Provider: billing.ProviderLemonSqueezy, Kind: billing.EventRefunded, OrderID: "ord-1"}

		next, _, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusExpired, next.Status)
		assert.Equal(t, plan.IDTrial, next.PlanID)
		assert.Equal(t, plan.Quota(plan.IDTrial), next.QuotaLimit)
		assert.Empty(t, string(next.Provider))
	})

	t.Run("events after termination are ignored, not errored", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		terminated, _, err := billing.Apply(sub, billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventTerminated, SubID: "sub-1"}, testNow)
		require.NoError(t, err)

		// A late renewal for the now-cleared identifier must be a no-op.
		next, effects, err := billing.Apply(&terminated, billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventRenewed, SubID: "sub-1"}, testNow.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Equal(t, terminated.Status, next.Status)
		assert.Equal(t, terminated.ExpiresAt, next.ExpiresAt)
	})
}

func TestApply_QuotaPurchase(t *testing.T) {
	t.Parallel()

	t.Run("increments the limit", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventQuotaPurchase, OrderID: "ord-9", QuotaTopUp: 500, PurchaseID: "ord-9"}

		next, effects, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), next.QuotaLimit)
		assert.Equal(t, sub.QuotaUsed, next.QuotaUsed)
		assert.Contains(t, effects, billing.EffectQuotaGranted)
	})

	t.Run("no-op on unlimited plans", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(billing.ProviderPaygate)
		sub.QuotaLimit = plan.Unlimited
		ev := billing.Event{Provider: billing.ProviderPaygate, Kind: billing.EventQuotaPurchase, OrderID: "ord-9", QuotaTopUp: 500}

		next, effects, err := billing.Apply(sub, ev, testNow)
		require.NoError(t, err)
		assert.Equal(t, plan.Unlimited, next.QuotaLimit)
		assert.Empty(t, effects)
	})
}

// Applying the same event twice must yield the same record as applying
// it once, for every event kind except the guarded top-up.
func TestApply_Idempotence(t *testing.T) {
	t.Parallel()

	renews := testNow.AddDate(0, 1, 0)
	events := map[string]billing.Event{
		"charged": {Provider: billing.ProviderPaygate, Kind: billing.EventCharged, OrderID: "o", SubID: "s", PlanRef: "BF-PRO-M", Period: plan.PeriodMonthly},
		"renewed": {Provider: billing.ProviderPaygate, Kind: billing.EventRenewed, SubID: "sub-1", PlanRef: "BF-STARTER-M", RenewsAt: &renews},
		"cancelled": {Provider: billing.ProviderPaygate, Kind: billing.EventCancelled, SubID: "sub-1"},
		"payment_failed_soft": {Provider: billing.ProviderPaygate, Kind: billing.EventPaymentFailed, SubID: "sub-1"},
		"payment_failed_terminal": {Provider: billing.ProviderPaygate, Kind: billing.EventPaymentFailed, SubID: "sub-1", Terminal: true},
		"suspended": {Provider: billing.ProviderPaygate, Kind: billing.EventSuspended, SubID: "sub-1"},
		"terminated": {Provider: billing.ProviderPaygate, Kind: billing.EventTerminated, SubID: "sub-1"},
		"refunded": {Provider: billing.ProviderPaygate, Kind: billing.EventRefunded, OrderID: "ord-1"},
	}

	for name, ev := range events {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			sub := activeSub(billing.ProviderPaygate)

			once, _, err := billing.Apply(sub, ev, testNow)
			require.NoError(t, err)
			twice, _, err := billing.Apply(&once, ev, testNow)
			require.NoError(t, err)

			assert.Equal(t, once, twice)
		})
	}
}
