package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ProviderClient calls the provider's own API for subscription
// management actions initiated on our side (cancel, resume).
type ProviderClient interface {
	CancelSubscription(ctx context.Context, subID string) error
	ResumeSubscription(ctx context.Context, subID string) error
}

// ManageAction is a customer- or operator-initiated subscription action.
type ManageAction string

const (
	ActionCancel ManageAction = "cancel"
	ActionResume ManageAction = "resume"
)

// Result reports what Ingest did with an event.
type Result struct {
	Applied   bool
	Duplicate bool
	Effects   []Effect
}

// Service ties together account resolution, event-log dedup, the
// purchase guard, the reducer, and persistence. It is safe for
// concurrent use; correctness under concurrent webhooks for the same
// account relies on the reducer's absolute-assignment idempotency, not
// on in-process locking.
type Service struct {
	subs      SubscriptionStore
	events    EventLogStore
	purchases ProcessedPurchaseStore
	clients   map[Provider]ProviderClient
	log       *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithProviderClient registers the API client used by Manage for the
// given provider.
func WithProviderClient(p Provider, c ProviderClient) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clients[p] = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a billing service. Panics on nil stores to fail
// fast during initialization.
func NewService(subs SubscriptionStore, events EventLogStore, purchases ProcessedPurchaseStore, opts ...ServiceOption) *Service {
	if subs == nil {
		panic("billing: SubscriptionStore is required")
	}
	if events == nil {
		panic("billing: EventLogStore is required")
	}
	if purchases == nil {
		panic("billing: ProcessedPurchaseStore is required")
	}

	s := &Service{
		subs:      subs,
		events:    events,
		purchases: purchases,
		clients:   make(map[Provider]ProviderClient),
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest runs a verified, parsed event through dedup, account
// resolution, the purchase guard, and the reducer, then persists the
// result. Callers must have verified authenticity already; Ingest never
// sees unverified payloads.
func (s *Service) Ingest(ctx context.Context, ev Event) (Result, error) {
	if !ev.HasCorrelation() {
		return Result{}, ErrMissingCorrelation
	}

	// The event log is the structural idempotency guarantee: a redelivered
	// event is detected here, before any state is touched. A claim that
	// outlives a failed apply would turn the provider's retry into a false
	// duplicate and lose the event, so every failure path below hands its
	// claims back.
	eventClaimed := false
	purchaseClaimed := false
	fail := func(err error) (Result, error) {
		if purchaseClaimed {
			if rerr := s.purchases.Unmark(ctx, ev.Provider, ev.PurchaseID); rerr != nil {
				s.log.ErrorContext(ctx, "release purchase claim",
					slog.String("purchase_id", ev.PurchaseID),
					slog.Any("error", rerr))
			}
		}
		if eventClaimed {
			if rerr := s.events.Release(ctx, ev.Provider, ev.EventID); rerr != nil {
				s.log.ErrorContext(ctx, "release event claim",
					slog.String("event_id", ev.EventID),
					slog.Any("error", rerr))
			}
		}
		return Result{}, err
	}

	if ev.EventID != "" {
		fresh, err := s.events.Record(ctx, ev.Provider, ev.EventID)
		if err != nil {
			return Result{}, fmt.Errorf("record event: %w", err)
		}
		if !fresh {
			s.log.InfoContext(ctx, "duplicate billing event ignored",
				slog.String("provider", string(ev.Provider)),
				slog.String("event_id", ev.EventID))
			return Result{Duplicate: true}, nil
		}
		eventClaimed = true
	}

	sub, err := s.resolve(ctx, ev)
	if err != nil {
		return fail(err)
	}

	// Top-ups are the one non-idempotent transition; the purchase ledger
	// collapses check and act into a single insert-if-absent.
	if ev.Kind == EventQuotaPurchase && ev.PurchaseID != "" {
		fresh, err := s.purchases.MarkApplied(ctx, ev.Provider, ev.PurchaseID)
		if err != nil {
			return fail(fmt.Errorf("mark purchase applied: %w", err))
		}
		if !fresh {
			s.log.InfoContext(ctx, "message pack already credited",
				slog.String("provider", string(ev.Provider)),
				slog.String("purchase_id", ev.PurchaseID))
			return Result{Duplicate: true}, nil
		}
		purchaseClaimed = true
	}

	next, effects, err := Apply(sub, ev, s.now())
	if err != nil {
		return fail(err)
	}

	if err := s.subs.Save(ctx, &next); err != nil {
		return fail(fmt.Errorf("save subscription: %w", err))
	}

	s.log.InfoContext(ctx, "billing event applied",
		slog.String("provider", string(ev.Provider)),
		slog.String("kind", string(ev.Kind)),
		slog.String("account_id", next.AccountID.String()),
		slog.String("status", string(next.Status)))

	return Result{Applied: true, Effects: effects}, nil
}

// resolve maps an event to the account it belongs to. A custom-field
// account reference wins; otherwise correlation identifiers are tried in
// order of specificity. Unresolvable events are never allowed to create
// a subscription implicitly.
func (s *Service) resolve(ctx context.Context, ev Event) (*Subscription, error) {
	if ev.AccountID != uuid.Nil {
		sub, err := s.subs.Get(ctx, ev.AccountID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
	}

	for _, id := range []string{ev.SubID, ev.OrderID, ev.CustomerID} {
		if id == "" {
			continue
		}
		sub, err := s.subs.FindByCorrelation(ctx, ev.Provider, id)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
	}

	return nil, ErrAccountNotFound
}

// Manage performs a cancel or resume on behalf of the account. The
// upstream provider API call must succeed before the local record is
// touched; on upstream failure the local state is left as-is.
func (s *Service) Manage(ctx context.Context, accountID uuid.UUID, action ManageAction) (*Subscription, error) {
	sub, err := s.subs.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if sub.Provider == "" || sub.SubID == "" {
		return nil, ErrNoProviderRelation
	}

	client, ok := s.clients[sub.Provider]
	if !ok {
		return nil, ErrNoProviderRelation
	}

	now := s.now()
	switch action {
	case ActionCancel:
		if err := client.CancelSubscription(ctx, sub.SubID); err != nil {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
		sub.Status = StatusCancelled
	case ActionResume:
		if err := client.ResumeSubscription(ctx, sub.SubID); err != nil {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
		sub.Status = StatusActive
	default:
		return nil, fmt.Errorf("unknown manage action %q", action)
	}
	sub.UpdatedAt = now

	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}
