package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-invest-advisor/pkg/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when still held by this owner, so a
// slow holder cannot release a lease that already expired and was re-acquired.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// redisLeaseRepository implements LeaseRepository on top of Redis SET NX PX.
type redisLeaseRepository struct {
	client *redis.Client

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLeaseRepository creates a new instance of redisLeaseRepository.
func NewRedisLeaseRepository(client *redis.Client) LeaseRepository {
	return &redisLeaseRepository{
		client: client,
		owners: make(map[string]string),
	}
}

func leaseKey(key string) string {
	return fmt.Sprintf("%s.%s", common.RedisKeyGenerationLease, key)
}

// Acquire obtains the lease for key if nobody holds it.
func (r *redisLeaseRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	owner := uuid.NewString()
	ok, err := r.client.SetNX(ctx, leaseKey(key), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease for %s: %w", key, err)
	}
	if ok {
		r.mu.Lock()
		r.owners[key] = owner
		r.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lease if this process still owns it.
func (r *redisLeaseRepository) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	owner, held := r.owners[key]
	delete(r.owners, key)
	r.mu.Unlock()

	if !held {
		return nil
	}
	if err := r.client.Eval(ctx, releaseScript, []string{leaseKey(key)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lease for %s: %w", key, err)
	}
	return nil
}
