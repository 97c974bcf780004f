package billing

import (
	"time"

	"github.com/botframe/billingcore/pkg/plan"
)

// Effect describes a side effect the caller must carry out after
// persisting the reduced record. The reducer itself never performs I/O.
type Effect string

const (
	EffectQuotaReset         Effect = "quota_reset"
	EffectQuotaGranted       Effect = "quota_granted"
	EffectCorrelationCleared Effect = "correlation_cleared"
)

// Apply folds a normalized billing event into the current subscription
// record and returns the next record. It is a pure function: every field
// except the quota top-up is assigned an absolute target value, so
// applying the same event twice yields the same record as applying it
// once. Top-ups must be guarded by the processed-purchase ledger before
// Apply is called (see Service.Ingest).
//
// Events whose correlation no longer matches the record (the identifier
// was cleared by a prior terminated/refunded event) are ignored: the
// current record is returned unchanged with no effects and no error.
func Apply(cur *Subscription, ev Event, now time.Time) (Subscription, []Effect, error) {
	if cur == nil {
		return Subscription{}, nil, ErrNoSubscription
	}

	next := *cur
	next.UpdatedAt = now

	// A charged event (re)establishes the provider relationship, so it is
	// exempt from the orphan check. Every other kind applies only while
	// the record still correlates with the event's provider; once a
	// terminated or refunded event cleared the correlation, later events
	// for that identifier are ignored, not errored.
	if ev.Kind != EventCharged && cur.Provider != ev.Provider {
		return *cur, nil, nil
	}

	switch ev.Kind {
	case EventCharged:
		p, err := plan.ByProviderRef(ev.PlanRef)
		if err != nil {
			return *cur, nil, ErrUnknownPlanRef
		}
		period := ev.Period
		if !period.Valid() {
			period = plan.PeriodMonthly
		}
		next.Status = StatusActive
		next.PlanID = p.ID
		next.QuotaUsed = 0
		next.QuotaLimit = p.MessageQuota
		next.Period = period
		next.ExpiresAt = now.AddDate(0, 0, period.Days())
		next.Provider = ev.Provider
		next.OrderID = ev.OrderID
		next.SubID = ev.SubID
		next.CustomerID = ev.CustomerID
		return next, []Effect{EffectQuotaReset}, nil

	case EventRenewed:
		next.Status = StatusActive
		next.QuotaUsed = 0
		// Refresh plan and quota from the event's plan reference when it
		// resolves; a renewal for an unknown reference keeps the current plan.
		if p, err := plan.ByProviderRef(ev.PlanRef); err == nil {
			next.PlanID = p.ID
			next.QuotaLimit = p.MessageQuota
		}
		if ev.Period.Valid() {
			next.Period = ev.Period
		}
		if ev.RenewsAt != nil {
			next.ExpiresAt = *ev.RenewsAt
		} else {
			next.ExpiresAt = now.AddDate(0, 0, next.Period.Days())
		}
		return next, []Effect{EffectQuotaReset}, nil

	case EventCancelled:
		// Grace-period semantics: entitlement is retained until expiry,
		// only future renewal is disabled. Plan, quota, and expiry stay.
		next.Status = StatusCancelled
		return next, nil, nil

	case EventPaymentFailed:
		if ev.Terminal {
			next.Status = StatusPastDue
			return next, nil, nil
		}
		// Provider will retry; expiry is not shortened.
		return *cur, nil, nil

	case EventSuspended:
		next.Status = StatusSuspended
		return next, nil, nil

	case EventTerminated:
		next.Status = StatusExpired
		clearCorrelation(&next)
		return next, []Effect{EffectCorrelationCleared}, nil

	case EventRefunded:
		next.Status = StatusExpired
		next.PlanID = plan.IDTrial
		next.QuotaLimit = plan.Quota(plan.IDTrial)
		clearCorrelation(&next)
		return next, []Effect{EffectCorrelationCleared}, nil

	case EventQuotaPurchase:
		if ev.QuotaTopUp <= 0 || cur.QuotaLimit == plan.Unlimited {
			return *cur, nil, nil
		}
		next.QuotaLimit = cur.QuotaLimit + ev.QuotaTopUp
		return next, []Effect{EffectQuotaGranted}, nil
	}

	return *cur, nil, ErrUnknownEventKind
}

func clearCorrelation(s *Subscription) {
	s.Provider = ""
	s.OrderID = ""
	s.SubID = ""
	s.CustomerID = ""
}
