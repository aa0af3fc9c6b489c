package router

import (
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const rateLimiterIdleTTL = 10 * time.Minute

// HttpRateLimit allows perMinute requests per client IP with the given burst.
// Limiters of idle clients expire from the cache.
func HttpRateLimit(perMinute int, burst int, message string) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	if burst <= 0 {
		burst = 1
	}

	limiters := cache.New(rateLimiterIdleTTL, rateLimiterIdleTTL)
	var mu sync.Mutex
	every := rate.Every(time.Minute / time.Duration(perMinute))

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if v, ok := limiters.Get(ip); ok {
			limiters.SetDefault(ip, v)
			return v.(*rate.Limiter)
		}
		limiter := rate.NewLimiter(every, burst)
		limiters.SetDefault(ip, limiter)
		return limiter
	}

	return func(c *fiber.Ctx) error {
		if !limiterFor(ClientIP(c)).Allow() {
			c.Set(fiber.HeaderRetryAfter, "60")
			return ResponseCode(c, http.StatusTooManyRequests, message)
		}
		return c.Next()
	}
}
