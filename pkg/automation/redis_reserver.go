package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisReserver implements Reserver on a shared redis instance so that
// engine replicas agree on who fires a (definition, account) pair.
type RedisReserver struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisReserver creates a reserver using the given client. Keys are
// namespaced under the prefix; pass "" for the default.
func NewRedisReserver(client redis.UniversalClient, prefix string) *RedisReserver {
	if prefix == "" {
		prefix = "automation:fired"
	}
	return &RedisReserver{client: client, prefix: prefix}
}

// Reserve atomically claims the pair for ttl via SET NX. The first
// caller wins; everyone else sees false until the key expires.
func (r *RedisReserver) Reserve(ctx context.Context, defID, accountID uuid.UUID, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%s:%s", r.prefix, defID, accountID)
	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	return ok, nil
}
