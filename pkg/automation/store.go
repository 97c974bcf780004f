package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefinitionStore provides the operator-configured rules. The engine
// only reads; creation and editing happen through the admin surface,
// which is outside this subsystem.
type DefinitionStore interface {
	// ListActive returns definitions with active=true in creation order.
	ListActive(ctx context.Context) ([]Definition, error)
}

// ExecutionStore is the append-only execution audit trail and the
// durable half of the dedup invariant.
type ExecutionStore interface {
	// ExecutedSince reports whether an execution for the
	// (definition, account) pair exists at or after the given instant.
	ExecutedSince(ctx context.Context, definitionID, accountID uuid.UUID, since time.Time) (bool, error)

	// Record appends one execution row. Rows are never updated.
	Record(ctx context.Context, exec Execution) error
}

// Reserver is the optional atomic reservation layer closing the
// check-then-act race between concurrent ticks. Reserve must be atomic:
// exactly one caller wins a given (definition, account) key per TTL.
type Reserver interface {
	Reserve(ctx context.Context, definitionID, accountID uuid.UUID, ttl time.Duration) (bool, error)
}
