package security

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shop-finder/monitoring"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per caller in fixed one-minute windows kept
// in Redis, so every instance shares the same budget.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int64
	now       func() time.Time
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		perMinute: int64(perMinute),
		now:       time.Now,
	}
}

func windowKey(identifier string, at time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", identifier, at.Unix()/60)
}

// Allow records one request for identifier and reports whether it is still
// inside the budget.
func (r *RateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := windowKey(identifier, r.now())

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", identifier, err)
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, time.Minute).Err(); err != nil {
			return false, fmt.Errorf("rate limit expiry %s: %w", identifier, err)
		}
	}

	return count <= r.perMinute, nil
}

// Limit rejects callers over budget with 429. Authenticated callers are
// keyed by record id, everyone else by IP. A Redis failure lets the request
// through.
func (r *RateLimiter) Limit(route string) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.perMinute <= 0 {
			return e.Next()
		}

		identifier := "ip:" + e.RealIP()
		if e.Auth != nil {
			identifier = "user:" + e.Auth.Id
		}

		allowed, err := r.Allow(e.Request.Context(), identifier)
		if err != nil {
			slog.Warn("rate limiter unavailable", "route", route, "error", err)
			return e.Next()
		}
		if !allowed {
			monitoring.TrackRateLimited(route)
			return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}

// AntiBot turns away clients that announce themselves as crawlers.
func AntiBot(e *core.RequestEvent) error {
	if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
		return apis.NewForbiddenError("Access denied", nil)
	}
	return e.Next()
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
