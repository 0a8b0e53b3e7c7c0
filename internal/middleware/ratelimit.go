package middleware

import (
	"fmt"
	"net/http"

	"github.com/dearfuture/letterbox/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimiter wraps a ulule limiter backed by Redis. Limits are keyed by
// client IP so one noisy client cannot starve the rest.
type RateLimiter struct {
	middleware *stdlib.Middleware
	logger     *zap.Logger
}

// NewRateLimiter creates a Redis-backed rate limiter from a formatted rate
// such as "10-S" (10 requests per second) or "100-M".
func NewRateLimiter(redisClient *redis.Client, formatted string, logger *zap.Logger) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate format %q: %w", formatted, err)
	}

	store, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "letterbox_ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}

	instance := limiter.New(store, rate)
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(func(r *http.Request) string {
			return request.ClientIP(r)
		}),
	)

	return &RateLimiter{middleware: mw, logger: logger}, nil
}

// Handler returns the rate limiting middleware
func (rl *RateLimiter) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return rl.middleware.Handler(next)
	}
}
