package middleware

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	header := resp.Header.Get(RequestIDHeader)
	assert.NotEmpty(t, header)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, header, string(body))
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "incoming-id")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "incoming-id", resp.Header.Get(RequestIDHeader))
}

func TestRateLimit_Rejects(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(2))
	app.Post("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, fiber.StatusOK, statuses[0])
	assert.Equal(t, fiber.StatusOK, statuses[1])
	assert.Equal(t, fiber.StatusTooManyRequests, statuses[2])
}

func TestLogger_PassesThrough(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := fiber.New()
	app.Use(RequestID(), Logger(log))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
