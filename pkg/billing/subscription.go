package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/botframe/billingcore/pkg/plan"
)

// Subscription is the authoritative billing record for one account.
// It is created at signup on the trial plan and mutated only by the
// reducer (verified webhook events) or by a forced admin transition.
// Records are never deleted, only superseded.
type Subscription struct {
	AccountID  uuid.UUID
	PlanID     plan.ID
	Status     Status
	QuotaUsed  int64
	QuotaLimit int64 // plan.Unlimited (-1) means no limit
	Period     plan.Period
	ExpiresAt  time.Time

	// Correlation identifiers for the active provider relationship.
	// Provider is empty for trial-only accounts and after termination.
	Provider   Provider
	OrderID    string
	SubID      string
	CustomerID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTrial returns the subscription record created at account signup.
func NewTrial(accountID uuid.UUID, now time.Time) *Subscription {
	trial, _ := plan.ByID(plan.IDTrial)
	return &Subscription{
		AccountID:  accountID,
		PlanID:     plan.IDTrial,
		Status:     StatusActive,
		QuotaLimit: trial.MessageQuota,
		Period:     plan.PeriodMonthly,
		ExpiresAt:  now.AddDate(0, 0, trial.TrialDays),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasCorrelation reports whether any correlation identifier matches id.
// The provider hands back order, subscription, or customer identifiers
// depending on the event kind, so all three are checked.
func (s *Subscription) HasCorrelation(p Provider, id string) bool {
	if s.Provider != p || id == "" {
		return false
	}
	return s.OrderID == id || s.SubID == id || s.CustomerID == id
}

// IsEntitled reports whether the account still holds entitlement at the
// given instant. Cancelled subscriptions keep entitlement until expiry
// (grace-period semantics); suspension revokes it immediately.
func (s *Subscription) IsEntitled(now time.Time) bool {
	switch s.Status {
	case StatusActive, StatusCancelled:
		return now.Before(s.ExpiresAt)
	default:
		return false
	}
}

// QuotaRemainingPercent returns the remaining quota as 0-100,
// or -1 for unlimited plans.
func (s *Subscription) QuotaRemainingPercent() int {
	if s.QuotaLimit == plan.Unlimited {
		return -1
	}
	if s.QuotaLimit <= 0 {
		return 0
	}
	left := s.QuotaLimit - s.QuotaUsed
	if left < 0 {
		left = 0
	}
	return int(left * 100 / s.QuotaLimit)
}
