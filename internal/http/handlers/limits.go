package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"makiti/internal/config"
	"makiti/internal/domain"
	applog "makiti/internal/log"
)

// unlimited paths are hit by health checks and metric scrapes.
var unlimited = map[string]bool{"/healthz": true, "/metrics": true}

// RateLimiter throttles each client IP. Rejections are logged as security
// events and answered with the usual error body.
func RateLimiter(cfg config.RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 120
	}
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Next: func(c *fiber.Ctx) bool {
			return unlimited[c.Path()]
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.limit.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(errorBody(domain.ErrCodeRateLimited, "rate limit exceeded, retry soon"))
		},
	})
}

// Health reports liveness.
func Health(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) }
