package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimit allows perMinute requests per client IP with a burst of the same
// size. Idle limiters are evicted so the map cannot grow without bound.
func RateLimit(perMinute int) fiber.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = map[string]*client{}
	)

	const idleEviction = 10 * time.Minute

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		for k, v := range clients {
			if now.Sub(v.lastSeen) > idleEviction {
				delete(clients, k)
			}
		}
		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(perMinute)/60, perMinute)}
			clients[ip] = c
		}
		c.lastSeen = now
		return c.limiter
	}

	return func(c *fiber.Ctx) error {
		if !limiterFor(c.IP()).Allow() {
			return fiber.NewError(fiber.StatusTooManyRequests, "upload rate limit exceeded")
		}
		return c.Next()
	}
}
