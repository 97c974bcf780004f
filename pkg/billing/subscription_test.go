package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/plan"
)

func TestNewTrial(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	sub := billing.NewTrial(id, testNow)

	assert.Equal(t, id, sub.AccountID)
	assert.Equal(t, plan.IDTrial, sub.PlanID)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, int64(50), sub.QuotaLimit)
	assert.Equal(t, testNow.AddDate(0, 0, 14), sub.ExpiresAt)
	assert.Empty(t, string(sub.Provider))
}

func TestSubscription_IsEntitled(t *testing.T) {
	t.Parallel()

	sub := activeSub(billing.ProviderPaygate)

	assert.True(t, sub.IsEntitled(testNow))
	assert.False(t, sub.IsEntitled(sub.ExpiresAt.Add(time.Minute)))

	// Cancellation keeps entitlement until expiry.
	sub.Status = billing.StatusCancelled
	assert.True(t, sub.IsEntitled(testNow))

	// Suspension revokes it immediately.
	sub.Status = billing.StatusSuspended
	assert.False(t, sub.IsEntitled(testNow))
}

func TestSubscription_QuotaRemainingPercent(t *testing.T) {
	t.Parallel()

	sub := activeSub(billing.ProviderPaygate) // 120 used of 500
	assert.Equal(t, 76, sub.QuotaRemainingPercent())

	sub.QuotaUsed = 500
	assert.Equal(t, 0, sub.QuotaRemainingPercent())

	sub.QuotaUsed = 600 // soft invariant violated upstream; clamp, don't go negative
	assert.Equal(t, 0, sub.QuotaRemainingPercent())

	sub.QuotaLimit = plan.Unlimited
	assert.Equal(t, -1, sub.QuotaRemainingPercent())
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("find by any correlation identifier", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemoryStore()
		sub := activeSub(billing.ProviderPaygate)
		require.NoError(t, store.Save(ctx, sub))

		for _, id := range []string{"ord-1", "sub-1", "cus-1"} {
			got, err := store.FindByCorrelation(ctx, billing.ProviderPaygate, id)
			require.NoError(t, err)
			assert.Equal(t, sub.AccountID, got.AccountID)
		}

		_, err := store.FindByCorrelation(ctx, billing.ProviderLemonSqueezy, "sub-1")
		assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
	})

	t.Run("event log records each key once", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemoryStore()

		fresh, err := store.Record(ctx, billing.ProviderPaygate, "ntf-1")
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = store.Record(ctx, billing.ProviderPaygate, "ntf-1")
		require.NoError(t, err)
		assert.False(t, fresh)

		// Same ID under another provider is a distinct key.
		fresh, err = store.Record(ctx, billing.ProviderLemonSqueezy, "ntf-1")
		require.NoError(t, err)
		assert.True(t, fresh)
	})
}
