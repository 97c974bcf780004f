package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore persists subscription records. AccountID is the
// primary key; each account has exactly one record.
type SubscriptionStore interface {
	// Get retrieves a subscription by account ID.
	// Returns ErrSubscriptionNotFound if no record exists.
	Get(ctx context.Context, accountID uuid.UUID) (*Subscription, error)

	// FindByCorrelation retrieves the subscription whose order,
	// subscription, or customer identifier for the given provider
	// matches id. Returns ErrSubscriptionNotFound on no match.
	FindByCorrelation(ctx context.Context, p Provider, id string) (*Subscription, error)

	// Save creates or updates a subscription record.
	Save(ctx context.Context, sub *Subscription) error
}

// EventLogStore is the persisted, deduplicated log of accepted events,
// keyed by provider + provider-native event ID. Record is the
// serialization point for at-least-once delivery: the insert either
// claims the key or reports it already seen.
type EventLogStore interface {
	// Record inserts the event key. It returns false when the event was
	// already recorded, in which case the caller must not reapply it.
	Record(ctx context.Context, p Provider, eventID string) (bool, error)

	// Release removes a previously recorded key. Callers release the
	// claim when applying the event failed, so the provider's retry is
	// not mistaken for a duplicate. Releasing an absent key is a no-op.
	Release(ctx context.Context, p Provider, eventID string) error
}

// ProcessedPurchaseStore guards the one non-idempotent transition,
// message-pack quota top-ups, against double crediting.
type ProcessedPurchaseStore interface {
	// MarkApplied reserves the purchase ID. It returns false when the
	// purchase has already been credited.
	MarkApplied(ctx context.Context, p Provider, purchaseID string) (bool, error)

	// Unmark removes a reservation whose credit was never persisted.
	// Unmarking an absent purchase ID is a no-op.
	Unmark(ctx context.Context, p Provider, purchaseID string) error
}
