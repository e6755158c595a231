package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"org-dashboard/monitoring"

	"github.com/labstack/echo/v5/middleware"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a fixed window counter kept in redis. It implements the echo
// RateLimiterStore contract so the same store can guard echo routes.
type RedisStore struct {
	redis  *redis.Client
	scope  string
	limit  int64
	window time.Duration
}

var _ middleware.RateLimiterStore = (*RedisStore)(nil)

func NewRedisStore(redisClient *redis.Client, scope string, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		scope:  scope,
		limit:  int64(limit),
		window: window,
	}
}

// Allow counts one hit for identifier and reports whether it is still within
// the limit for the current window.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := s.key(identifier)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return count <= s.limit, nil
}

// key hashes the identifier so emails and addresses are not stored in clear.
func (s *RedisStore) key(identifier string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	return fmt.Sprintf("ratelimit:%s:%s", s.scope, hex.EncodeToString(sum[:8]))
}

// NewMemoryStore returns a per-process token bucket allowing limit hits per
// window with a burst of limit.
func NewMemoryStore(limit int, window time.Duration) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      float64(limit) / window.Seconds(),
		Burst:     limit,
		ExpiresIn: window,
	})
}

// RateLimiter guards PocketBase routes with a RateLimiterStore.
type RateLimiter struct {
	store    middleware.RateLimiterStore
	fallback middleware.RateLimiterStore
	scope    string
	monitor  *monitoring.Monitor
}

func NewRateLimiter(store middleware.RateLimiterStore, scope string, monitor *monitoring.Monitor) *RateLimiter {
	return &RateLimiter{store: store, scope: scope, monitor: monitor}
}

// WithFallback sets the store consulted while the primary store fails.
func (r *RateLimiter) WithFallback(store middleware.RateLimiterStore) *RateLimiter {
	r.fallback = store
	return r
}

// Check counts a hit for identifier. When the primary store fails the
// fallback store decides; without one the request is let through so an
// unavailable redis does not lock everybody out of signing in.
func (r *RateLimiter) Check(identifier string) error {
	allowed, err := r.store.Allow(identifier)
	if err != nil {
		slog.Error("Rate limiter store failed", "scope", r.scope, "error", err)
		if r.fallback == nil {
			return nil
		}
		if allowed, err = r.fallback.Allow(identifier); err != nil {
			return nil
		}
	}
	if !allowed {
		r.monitor.TrackRateLimited(r.scope)
		return apis.NewTooManyRequestsError("Too many requests. Please try again later.", nil)
	}
	return nil
}

// ByIP returns route middleware limiting requests per client address.
func (r *RateLimiter) ByIP() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := r.Check(e.RealIP()); err != nil {
			return err
		}
		return e.Next()
	}
}
