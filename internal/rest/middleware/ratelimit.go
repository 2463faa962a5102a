package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	"github.com/patrickmn/go-cache"
)

// RateLimitPolicy is one call-site's limit: at most Requests per Window,
// keyed on the client network origin. Different endpoints carry different
// policies.
type RateLimitPolicy struct {
	Name     string
	Requests int
	Window   time.Duration
}

// RateLimiter keeps fixed-window counters per (policy, client IP).
type RateLimiter struct {
	counters *cache.Cache
	logger   *logger.Logger
}

func NewRateLimiter(logger *logger.Logger) *RateLimiter {
	return &RateLimiter{
		counters: cache.New(cache.NoExpiration, 10*time.Minute),
		logger:   logger,
	}
}

// Check counts one request against the policy and reports whether it is
// allowed. Counters expire with the policy window, giving a fixed window per
// client origin.
func (r *RateLimiter) Check(key string, policy RateLimitPolicy) bool {
	counterKey := fmt.Sprintf("%s:%s", policy.Name, key)

	if err := r.counters.Add(counterKey, int64(1), policy.Window); err == nil {
		return policy.Requests >= 1
	}
	count, err := r.counters.IncrementInt64(counterKey, 1)
	if err != nil {
		// Counter expired between Add and Increment; start a new window
		r.counters.Set(counterKey, int64(1), policy.Window)
		return policy.Requests >= 1
	}
	return count <= int64(policy.Requests)
}

// RateLimit rejects requests above the policy with a distinguishable
// too-many-requests outcome, so callers can render it differently from a
// processor failure.
func RateLimit(limiter *RateLimiter, policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Check(c.ClientIP(), policy) {
			limiter.logger.Warnw("rate limit exceeded",
				"policy", policy.Name,
				"client_ip", c.ClientIP())
			c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many requests, please try again later").
				Mark(ierr.ErrTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}
