package constraints

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireUUID(t *testing.T) {
	app := fiber.New()
	app.Get("/files/:fileId", RequireUUID("fileId"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	t.Run("valid uuid passes", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/files/6ba7b810-9dad-11d1-80b4-00c04fd430c8", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/files/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
