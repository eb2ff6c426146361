package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared backend for horizontally scaled deployments.
// Counters live in Redis with key expiry equal to their window; EXPIRE NX
// keeps the window anchored at the first request rather than sliding.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, tenantID uuid.UUID, maxPerMinute, maxPerHour int) (bool, error) {
	mKey, hKey := minuteKey(tenantID), hourKey(tenantID)

	counts, err := s.client.MGet(ctx, mKey, hKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read rate-limit counters for tenant %s: %w", tenantID, err)
	}
	if parseCount(counts[0]) >= int64(maxPerMinute) || parseCount(counts[1]) >= int64(maxPerHour) {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, mKey)
	pipe.ExpireNX(ctx, mKey, minuteWindow)
	pipe.Incr(ctx, hKey)
	pipe.ExpireNX(ctx, hKey, hourWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to increment rate-limit counters for tenant %s: %w", tenantID, err)
	}
	return true, nil
}

func parseCount(v interface{}) int64 {
	str, ok := v.(string)
	if !ok {
		return 0
	}
	count, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
