package ratelimit

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"wren/pkg/errors"
	"wren/pkg/metrics"
)

type RateLimitConfig struct {
	RPS        float64
	Burst      int
	MaxClients int
	MaxAge     time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:        10.0,
		Burst:      20,
		MaxClients: 4096,
		MaxAge:     10 * time.Minute,
	}
}

// RateLimitMiddleware enforces a per-source-IP token bucket on the webhook
// routes. Idle sources age out of the bounded LRU, so a scan across many
// addresses cannot grow the map without limit.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.MaxClients <= 0 {
		config.MaxClients = DefaultConfig().MaxClients
	}
	limiters := expirable.NewLRU[string, *rate.Limiter](config.MaxClients, nil, config.MaxAge)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		limiter, ok := limiters.Get(clientIP)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(config.RPS), config.Burst)
			limiters.Add(clientIP, limiter)
		}

		if !limiter.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Limit", formatRate(config.RPS))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.JSON(errors.ToHTTPStatus(errors.ErrRateLimited), errors.ToErrorResponse(errors.ErrRateLimited))
			c.Abort()
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		c.Header("X-RateLimit-Limit", formatRate(config.RPS))
		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func formatRate(rps float64) string {
	return strconv.Itoa(int(rps))
}
