package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commerceops/backend/internal/domain/integration"
)

// RedisQuotaStore tracks per-module daily quotas in Redis. This is suitable
// for distributed deployments where multiple backend instances drain one
// provider account and must share the quota.
//
// Each module holds one counter key; the key's TTL is the quota window, so
// the reset boundary is enforced by Redis expiry rather than by clients.
type RedisQuotaStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisQuotaStore creates a Redis-backed quota store.
func NewRedisQuotaStore(cfg RedisConfig) (*RedisQuotaStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQuotaStore{
		client:    client,
		keyPrefix: "marketplace:quota:",
	}, nil
}

// NewRedisQuotaStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisQuotaStoreWithClient(client *redis.Client, keyPrefix string) *RedisQuotaStore {
	if keyPrefix == "" {
		keyPrefix = "marketplace:quota:"
	}
	return &RedisQuotaStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// acquireScript atomically initializes the window counter and consumes cost
// units. Returns the remaining quota after consumption, or -1 when the
// quota is exhausted.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local cost = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local remaining = redis.call('GET', key)
if remaining == false then
    remaining = limit
    redis.call('SET', key, limit, 'PX', window)
end
remaining = tonumber(remaining)

if remaining < cost then
    return -1
end
return redis.call('DECRBY', key, cost)
`)

// Acquire implements integration.QuotaStore.
func (s *RedisQuotaStore) Acquire(ctx context.Context, moduleID string, limit int64, cost int64) (bool, error) {
	key := s.keyPrefix + moduleID
	res, err := acquireScript.Run(ctx, s.client, []string{key},
		limit, cost, quotaWindowLength.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("cache: quota acquire failed for %q: %w", moduleID, err)
	}
	return res >= 0, nil
}

// Close releases the underlying Redis client.
func (s *RedisQuotaStore) Close() error {
	return s.client.Close()
}

var _ integration.QuotaStore = (*RedisQuotaStore)(nil)
