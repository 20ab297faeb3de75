package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-bank/atlas_core/internal/logging"
)

func newIdempotentApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	calls := 0
	app := fiber.New()
	app.Use(Idempotency(cache, time.Hour, logging.Discard()))
	app.Post("/payments", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})
	app.Get("/payments", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, mr
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, _ := newIdempotentApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader("{}"))
	req.Header.Set(idempotencyKeyHeader, "key-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	first, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	replay := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader("{}"))
	replay.Header.Set(idempotencyKeyHeader, "key-1")
	resp, err = app.Test(replay)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	second, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, string(first), string(second), "replay must return the original response")
}

func TestIdempotencyRequiresKeyOnUnsafeMethods(t *testing.T) {
	app, _ := newIdempotentApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader("{}"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	app, _ := newIdempotentApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/payments", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	app, mr := newIdempotentApp(t)

	require.NoError(t, mr.Set(idempotencyPrefix+"key-2", inProgressMarker))

	req := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader("{}"))
	req.Header.Set(idempotencyKeyHeader, "key-2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
