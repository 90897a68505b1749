package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, Policy) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func testTable() *Table {
	return NewTable(
		Policy{Name: "api", Path: "/", Max: 100, Window: time.Minute, Block: time.Minute},
		Policy{Name: "upload-confirm", Path: "/storage/upload/confirm", Max: 2, Window: time.Minute, Block: 5 * time.Minute},
	)
}

func newTestApp(store Store) *fiber.App {
	app := fiber.New(fiber.Config{ProxyHeader: "X-Real-IP"})
	app.Use(New(Config{Table: testTable(), Store: store, PathPrefix: "/api"}))
	app.Post("/api/storage/upload/confirm", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	app.Get("/api/files", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, ip string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Real-IP", ip)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header.Get("Retry-After")
}

func TestRateLimit_UploadConfirmPolicy(t *testing.T) {
	app := newTestApp(NewMemoryStore())

	for i := 0; i < 2; i++ {
		status, _, _ := doRequest(t, app, "POST", "/api/storage/upload/confirm", "10.0.0.1")
		assert.Equal(t, 200, status)
	}

	status, body, retryAfter := doRequest(t, app, "POST", "/api/storage/upload/confirm", "10.0.0.1")
	assert.Equal(t, 429, status)
	assert.Contains(t, body, "RATE_LIMITED")
	assert.Equal(t, "300", retryAfter)

	// other policies keep their own counters
	status, _, _ = doRequest(t, app, "GET", "/api/files", "10.0.0.1")
	assert.Equal(t, 200, status)
}

func TestRateLimit_DifferentIPs_IndependentLimits(t *testing.T) {
	app := newTestApp(NewMemoryStore())

	for i := 0; i < 3; i++ {
		doRequest(t, app, "POST", "/api/storage/upload/confirm", "10.0.0.1")
	}

	status, _, _ := doRequest(t, app, "POST", "/api/storage/upload/confirm", "10.0.0.2")
	assert.Equal(t, 200, status)
}

func TestRateLimit_StoreErrorFailsOpen(t *testing.T) {
	app := newTestApp(failingStore{})

	status, _, _ := doRequest(t, app, "GET", "/api/files", "10.0.0.1")
	assert.Equal(t, 200, status)
}

func TestTable_Resolve(t *testing.T) {
	table := NewTable(
		Policy{Name: "api", Path: "/"},
		Policy{Name: "login", Path: "/auth/login"},
		Policy{Name: "upload-confirm", Path: "/storage/upload/confirm"},
	)

	cases := map[string]string{
		"/auth/login":             "login",
		"/auth/login/":            "login",
		"/auth/loginx":            "api",
		"/storage/upload/confirm": "upload-confirm",
		"/storage/upload/presign": "api",
		"/projects/123/files":     "api",
	}
	for path, want := range cases {
		p, ok := table.Resolve(path)
		require.True(t, ok, path)
		assert.Equal(t, want, p.Name, path)
	}

	_, ok := NewTable(Policy{Name: "login", Path: "/auth/login"}).Resolve("/files")
	assert.False(t, ok)
}
