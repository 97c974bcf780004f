package automation

import (
	"time"

	"github.com/botframe/billingcore/pkg/plan"
)

// expiryWindow is the half-width of the match window for
// *_expiring triggers: expiry must fall within ±12 hours of
// now + days_before. A tick that runs at least twice a day can
// therefore never miss an account, and the 24-hour execution
// dedup keeps it from firing twice.
const expiryWindow = 12 * time.Hour

// Matches evaluates the definition's trigger predicate against one
// account snapshot at the given instant.
func (d Definition) Matches(acc Account, now time.Time) bool {
	switch d.Trigger {
	case TriggerTrialExpiring:
		if acc.PlanID != plan.IDTrial {
			return false
		}
		return inExpiryWindow(acc.ExpiresAt, now, d.TriggerParams.DaysBefore)

	case TriggerSubscriptionExpiring:
		if acc.PlanID == plan.IDTrial {
			return false
		}
		return inExpiryWindow(acc.ExpiresAt, now, d.TriggerParams.DaysBefore)

	case TriggerTrialExpired:
		if acc.PlanID != plan.IDTrial {
			return false
		}
		return acc.ExpiresAt.Before(now) && acc.ExpiresAt.After(now.Add(-24*time.Hour))

	case TriggerMessagesLow:
		if acc.QuotaLimit <= 0 {
			return false // unlimited or unset, never "low"
		}
		left := acc.QuotaLimit - acc.QuotaUsed
		if left < 0 {
			left = 0
		}
		// Cross-multiplied so integer division cannot round the share
		// down below the threshold.
		return left*100 <= int64(d.TriggerParams.Percentage)*acc.QuotaLimit

	case TriggerUserInactive:
		if acc.LastActivityAt.IsZero() {
			return false
		}
		cutoff := now.AddDate(0, 0, -d.TriggerParams.DaysInactive)
		return acc.LastActivityAt.Before(cutoff)
	}

	return false
}

func inExpiryWindow(expiresAt, now time.Time, daysBefore int) bool {
	center := now.AddDate(0, 0, daysBefore)
	return expiresAt.After(center.Add(-expiryWindow)) && expiresAt.Before(center.Add(expiryWindow))
}
