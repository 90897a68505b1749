package authapikey

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	"github.com/qolzam/assetpipe/internal/types"
)

// ErrInvalidAPIKey is returned when a key is malformed, unknown, or its secret does not match
var ErrInvalidAPIKey = errors.New("invalid api key")

// ValidatedAPIKey is the identity behind a verified key
type ValidatedAPIKey struct {
	KeyID       uuid.UUID
	OwnerID     uuid.UUID
	Permissions []types.Permission
}

// Resolver verifies raw API keys
type Resolver interface {
	ResolveAPIKey(ctx context.Context, rawKey string) (*ValidatedAPIKey, error)
}

var methodPermissions = map[string]types.Permission{
	fiber.MethodGet:     types.PermissionRead,
	fiber.MethodHead:    types.PermissionRead,
	fiber.MethodOptions: types.PermissionRead,
	fiber.MethodPost:    types.PermissionWrite,
	fiber.MethodPut:     types.PermissionWrite,
	fiber.MethodPatch:   types.PermissionWrite,
	fiber.MethodDelete:  types.PermissionDelete,
}

// RequiredPermission maps an HTTP method to the permission an API key needs for it.
// Unknown methods require a permission no key can hold.
func RequiredPermission(method string) (types.Permission, bool) {
	p, ok := methodPermissions[method]
	return p, ok
}

// Config defines the config for the API key middleware.
type Config struct {
	Resolver Resolver
}

// New creates a middleware that only admits API key callers.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawKey := c.Get(types.HeaderAPIKey)
		if rawKey == "" {
			return invalidKey(c)
		}

		validated, err := cfg.Resolver.ResolveAPIKey(c.UserContext(), rawKey)
		if err != nil {
			if !errors.Is(err, ErrInvalidAPIKey) {
				log.ErrorWithContext(c.UserContext(), "[APIKey] resolution failed: %v", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"code":    "AUTH_UNAVAILABLE",
					"message": "Unable to verify API key",
				})
			}
			return invalidKey(c)
		}

		caller := types.Caller{
			UserID:      validated.OwnerID,
			Strategy:    types.StrategyAPIKey,
			APIKeyID:    validated.KeyID,
			Permissions: validated.Permissions,
		}

		required, known := RequiredPermission(c.Method())
		if !known || !caller.Can(required) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"code":    "PERMISSION_DENIED",
				"message": "API key lacks the " + string(required) + " permission for " + c.Method() + " requests",
			})
		}

		c.Locals(types.UserCtxName, caller)
		return c.Next()
	}
}

func invalidKey(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "INVALID_API_KEY",
		"message": "Missing or invalid API key",
	})
}
