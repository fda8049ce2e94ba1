package handlers_test

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"makiti/internal/config"
	"makiti/internal/http/handlers"
)

func TestRateLimit(t *testing.T) {
	a := newTestApp(t, func(app *fiber.App) {
		app.Use(handlers.RateLimiter(config.RateLimitConfig{Max: 3, Window: time.Minute}))
		app.Get("/healthz", handlers.Health)
	})

	var last result
	for i := 0; i < 4; i++ {
		last = a.do(t, "GET", "/reviews/seller/u-awa", "", nil)
	}
	assert.Equal(t, 429, last.Status)
	assert.Equal(t, "RATE_LIMITED", last.errorKind())
	assert.Equal(t, 1, a.logs.FilterMessage("rate.limit.hit").Len())

	// health checks stay reachable once the client is throttled
	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, a.do(t, "GET", "/healthz", "", nil).Status)
	}
	assert.Equal(t, 1, a.logs.FilterMessage("rate.limit.hit").Len())
}

func TestBodyLimit(t *testing.T) {
	a := newTestApp(t)
	big := bytes.Repeat([]byte("a"), 128<<10)
	req := httptest.NewRequest("POST", "/cart/add", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token(t, "u-ines"))
	resp, err := a.app.Test(req, -1)
	// app.Test can surface the rejection as an error instead of a response
	if err != nil {
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}
