package automation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/plan"
)

// Account is the per-account snapshot the engine evaluates triggers
// against: profile fields joined with the current subscription record.
// The snapshot is taken once per tick and may go stale mid-tick; the
// engine tolerates webhooks updating an account while a scan runs.
type Account struct {
	ID             uuid.UUID
	Email          string
	Name           string
	PlanID         plan.ID
	Status         billing.Status
	QuotaUsed      int64
	QuotaLimit     int64
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// AccountSource loads the full account population. Implementations
// should return the snapshot in one query; the engine never pages.
type AccountSource interface {
	Snapshot(ctx context.Context) ([]Account, error)
}
