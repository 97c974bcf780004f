package automation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DefinitionStore, ExecutionStore and
// Reserver in one. It backs tests and single-node deployments that run
// without Postgres.
type MemoryStore struct {
	mu           sync.RWMutex
	defs         []Definition
	execs        []Execution
	reservations map[string]time.Time // expiry per key
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reservations: make(map[string]time.Time)}
}

// AddDefinition appends a definition in creation order.
func (s *MemoryStore) AddDefinition(def Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = append(s.defs, def)
}

// ListActive returns the active definitions in insertion order.
func (s *MemoryStore) ListActive(_ context.Context) ([]Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Definition, 0, len(s.defs))
	for _, d := range s.defs {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

// Record appends an execution row.
func (s *MemoryStore) Record(_ context.Context, exec Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, exec)
	return nil
}

// ExecutedSince reports whether the pair has an execution row at or
// after the cutoff.
func (s *MemoryStore) ExecutedSince(_ context.Context, defID, accountID uuid.UUID, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.execs {
		if e.DefinitionID == defID && e.AccountID == accountID && !e.ExecutedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// Executions returns a copy of all recorded rows. Test helper.
func (s *MemoryStore) Executions() []Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Execution, len(s.execs))
	copy(out, s.execs)
	return out
}

// Reserve claims the (definition, account) key for ttl. Expired
// reservations are claimable again.
func (s *MemoryStore) Reserve(_ context.Context, defID, accountID uuid.UUID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := defID.String() + ":" + accountID.String()
	now := time.Now()
	if exp, ok := s.reservations[key]; ok && exp.After(now) {
		return false, nil
	}
	s.reservations[key] = now.Add(ttl)
	return true, nil
}
