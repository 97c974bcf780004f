package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/botframe/billingcore/pkg/plan"
)

// Event is the normalized, provider-agnostic form of a webhook
// notification. It is produced fresh per inbound request and discarded
// after the reducer runs; only the (provider, EventID) pair is retained
// in the event log for dedup.
type Event struct {
	Provider Provider
	EventID  string // provider-native event identifier
	Kind     EventKind

	// Correlation identifiers. AccountID is set when the provider
	// carries our account reference in a custom field; otherwise the
	// account is resolved through the other identifiers.
	AccountID  uuid.UUID
	OrderID    string
	SubID      string
	CustomerID string

	PlanRef  string      // provider-native product/variant reference
	Period   plan.Period // zero when the provider does not state it
	RenewsAt *time.Time  // explicit renewal timestamp, when provided

	// Terminal marks a payment failure the provider will not retry.
	Terminal bool

	// Message-pack top-up fields, set only for EventQuotaPurchase.
	QuotaTopUp int64
	PurchaseID string

	OccurredAt time.Time
}

// HasCorrelation reports whether the event carries at least one
// identifier usable for account resolution.
func (e Event) HasCorrelation() bool {
	return e.AccountID != uuid.Nil || e.OrderID != "" || e.SubID != "" || e.CustomerID != ""
}
