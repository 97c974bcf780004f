package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botframe/billingcore/pkg/plan"
)

// PGStore is the postgres-backed implementation of SubscriptionStore,
// EventLogStore, and ProcessedPurchaseStore. The event log and purchase
// ledger rely on primary-key conflicts as their atomic reservation, so
// the at-least-once guarantees hold across processes.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("billing: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

const subscriptionColumns = `account_id, plan_id, status, quota_used, quota_limit, period,
	expires_at, provider, order_id, sub_id, customer_id, created_at, updated_at`

func (s *PGStore) Get(ctx context.Context, accountID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE account_id = $1`,
		accountID)
	return scanSubscription(row)
}

func (s *PGStore) FindByCorrelation(ctx context.Context, p Provider, id string) (*Subscription, error) {
	if id == "" {
		return nil, ErrSubscriptionNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE provider = $1 AND (order_id = $2 OR sub_id = $2 OR customer_id = $2)
		 LIMIT 1`,
		string(p), id)
	return scanSubscription(row)
}

func (s *PGStore) Save(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT (account_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			quota_used = EXCLUDED.quota_used,
			quota_limit = EXCLUDED.quota_limit,
			period = EXCLUDED.period,
			expires_at = EXCLUDED.expires_at,
			provider = EXCLUDED.provider,
			order_id = EXCLUDED.order_id,
			sub_id = EXCLUDED.sub_id,
			customer_id = EXCLUDED.customer_id,
			updated_at = EXCLUDED.updated_at`,
		sub.AccountID, string(sub.PlanID), string(sub.Status), sub.QuotaUsed, sub.QuotaLimit,
		string(sub.Period), sub.ExpiresAt, string(sub.Provider), sub.OrderID, sub.SubID,
		sub.CustomerID, sub.CreatedAt, sub.UpdatedAt)
	return err
}

func (s *PGStore) Record(ctx context.Context, p Provider, eventID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO billing_events (provider, event_id, received_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (provider, event_id) DO NOTHING`,
		string(p), eventID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) Release(ctx context.Context, p Provider, eventID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM billing_events WHERE provider = $1 AND event_id = $2`,
		string(p), eventID)
	return err
}

func (s *PGStore) MarkApplied(ctx context.Context, p Provider, purchaseID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO processed_purchases (provider, purchase_id, applied_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (provider, purchase_id) DO NOTHING`,
		string(p), purchaseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) Unmark(ctx context.Context, p Provider, purchaseID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM processed_purchases WHERE provider = $1 AND purchase_id = $2`,
		string(p), purchaseID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	var planID, status, period, provider string
	err := row.Scan(&sub.AccountID, &planID, &status, &sub.QuotaUsed, &sub.QuotaLimit,
		&period, &sub.ExpiresAt, &provider, &sub.OrderID, &sub.SubID, &sub.CustomerID,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	sub.PlanID = plan.ID(planID)
	sub.Status = Status(status)
	sub.Period = plan.Period(period)
	sub.Provider = Provider(provider)
	return &sub, nil
}
