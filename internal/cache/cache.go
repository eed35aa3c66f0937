// Package cache wraps Redis for the submission API's two stateless
// concerns: an idempotence guard on bot submissions and a fixed-window
// rate limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Service wraps a Redis client with the narrow operations the
// submission API needs; nothing else in this engine touches Redis.
type Service struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func New(client *redis.Client, logger *zap.SugaredLogger) *Service {
	return &Service{client: client, logger: logger}
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ClaimOnce is the submission API's idempotence guard: the first
// caller for a given submission fingerprint claims it (true); every
// subsequent caller within ttl observes the claim already taken
// (false) and must treat the request as a duplicate.
func (s *Service) ClaimOnce(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("submission:claim:%s", fingerprint)
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: claim %s: %w", fingerprint, err)
	}
	return ok, nil
}

// AllowRequest implements a fixed-window counter rate limit keyed by
// identity (IP or team name). It never blocks the caller on a Redis error — callers
// should fail open rather than block legitimate traffic.
func (s *Service) AllowRequest(ctx context.Context, identity string, limit int, window time.Duration) (allowed bool, remaining int, err error) {
	key := fmt.Sprintf("rate_limit:%s", identity)

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return true, limit, fmt.Errorf("cache: rate limit increment for %s: %w", identity, err)
	}
	// The window starts at the first request; later requests do not extend it.
	if n == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return true, limit, fmt.Errorf("cache: rate limit expiry for %s: %w", identity, err)
		}
	}

	count := int(n)
	if count > limit {
		return false, 0, nil
	}
	return true, limit - count, nil
}
