package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestUserLimiterRefillsPerKey(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	limits := NewUserLimiter(2, time.Minute)
	limits.now = func() time.Time { return now }

	require.True(t, limits.Allow("u1"))
	require.True(t, limits.Allow("u1"))
	require.False(t, limits.Allow("u1"))
	require.True(t, limits.Allow("u2"))

	now = now.Add(30 * time.Second)
	require.True(t, limits.Allow("u1"))
	require.False(t, limits.Allow("u1"))
}

func TestUserLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	limits := NewUserLimiter(1, time.Minute)
	limits.now = func() time.Time { return now }

	require.True(t, limits.Allow("u1"))
	now = now.Add(4 * time.Minute)
	require.True(t, limits.Allow("u2"))

	limits.mu.Lock()
	defer limits.mu.Unlock()
	require.NotContains(t, limits.visitors, "u1")
}

func TestUserLimiterHandlerKeysByUser(t *testing.T) {
	limits := NewUserLimiter(1, time.Hour)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, c.Get("X-User"))
		return c.Next()
	})
	app.Post("/submit", limits.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusCreated, send("u1"))
	require.Equal(t, fiber.StatusTooManyRequests, send("u1"))
	require.Equal(t, fiber.StatusCreated, send("u2"))
}
