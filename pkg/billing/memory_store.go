package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of SubscriptionStore,
// EventLogStore, and ProcessedPurchaseStore. Intended for tests and
// local development; production uses the postgres-backed stores.
type MemoryStore struct {
	mu        sync.RWMutex
	subs      map[uuid.UUID]Subscription
	events    map[string]struct{}
	purchases map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:      make(map[uuid.UUID]Subscription),
		events:    make(map[string]struct{}),
		purchases: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Get(_ context.Context, accountID uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[accountID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (m *MemoryStore) FindByCorrelation(_ context.Context, p Provider, id string) (*Subscription, error) {
	if id == "" {
		return nil, ErrSubscriptionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subs {
		if sub.HasCorrelation(p, id) {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (m *MemoryStore) Save(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs[sub.AccountID] = *sub
	return nil
}

func (m *MemoryStore) Record(_ context.Context, p Provider, eventID string) (bool, error) {
	key := string(p) + ":" + eventID

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.events[key]; seen {
		return false, nil
	}
	m.events[key] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, p Provider, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.events, string(p)+":"+eventID)
	return nil
}

func (m *MemoryStore) MarkApplied(_ context.Context, p Provider, purchaseID string) (bool, error) {
	key := string(p) + ":" + purchaseID

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.purchases[key]; seen {
		return false, nil
	}
	m.purchases[key] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Unmark(_ context.Context, p Provider, purchaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.purchases, string(p)+":"+purchaseID)
	return nil
}
