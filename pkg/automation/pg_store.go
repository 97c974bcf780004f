package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botframe/billingcore/pkg/billing"
	"github.com/botframe/billingcore/pkg/plan"
)

// PGStore persists definitions and executions in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps the shared connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ListActive returns active definitions oldest first.
func (s *PGStore) ListActive(ctx context.Context) ([]Definition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, trigger_kind, days_before, percentage, days_inactive,
		       action_kind, subject, template, days, count, active, created_at
		FROM automation_definitions
		WHERE active
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var (
			d       Definition
			trigger string
			action  string
		)
		if err := rows.Scan(&d.ID, &d.Name, &trigger,
			&d.TriggerParams.DaysBefore, &d.TriggerParams.Percentage, &d.TriggerParams.DaysInactive,
			&action, &d.ActionParams.Subject, &d.ActionParams.Template,
			&d.ActionParams.Days, &d.ActionParams.Count,
			&d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		d.Trigger = TriggerKind(trigger)
		d.Action = ActionKind(action)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// Record appends one execution row.
func (s *PGStore) Record(ctx context.Context, exec Execution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO automation_executions (id, definition_id, account_id, success, detail, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		exec.ID, exec.DefinitionID, exec.AccountID, exec.Success, exec.Detail, exec.ExecutedAt)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// ExecutedSince reports whether the pair fired at or after the cutoff.
func (s *PGStore) ExecutedSince(ctx context.Context, defID, accountID uuid.UUID, since time.Time) (bool, error) {
	var seen bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM automation_executions
			WHERE definition_id = $1 AND account_id = $2 AND executed_at >= $3
		)`, defID, accountID, since).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("dedup lookback: %w", err)
	}
	return seen, nil
}

// PGAccountSource builds the per-tick population snapshot by joining
// accounts with their subscription state.
type PGAccountSource struct {
	pool *pgxpool.Pool
}

// NewPGAccountSource wraps the shared connection pool.
func NewPGAccountSource(pool *pgxpool.Pool) *PGAccountSource {
	return &PGAccountSource{pool: pool}
}

// Snapshot loads every account with its current subscription. Accounts
// without a subscription row are skipped: nothing can match them.
func (s *PGAccountSource) Snapshot(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.email, a.name, a.last_activity_at,
		       s.plan_id, s.status, s.quota_used, s.quota_limit, s.expires_at
		FROM accounts a
		JOIN subscriptions s ON s.account_id = a.id`)
	if err != nil {
		return nil, fmt.Errorf("load account snapshot: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var (
			acc    Account
			planID string
			status string
		)
		if err := rows.Scan(&acc.ID, &acc.Email, &acc.Name, &acc.LastActivityAt,
			&planID, &status, &acc.QuotaUsed, &acc.QuotaLimit, &acc.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc.PlanID = plan.ID(planID)
		acc.Status = billing.Status(status)
		out = append(out, acc)
	}
	return out, rows.Err()
}
