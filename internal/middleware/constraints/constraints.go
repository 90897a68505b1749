package constraints

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

// RequireUUID rejects requests whose path parameter is not a UUID with 404,
// so malformed ids never reach the handler or the database.
// Static routes must be registered before parameterized ones.
func RequireUUID(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		paramValue := c.Params(param)
		if paramValue == "" {
			return c.Next()
		}
		if _, err := uuid.FromString(paramValue); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"code":    "NOT_FOUND",
				"message": "resource not found",
			})
		}
		return c.Next()
	}
}
