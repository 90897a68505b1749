package dualauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/assetpipe/internal/middleware/authapikey"
	"github.com/qolzam/assetpipe/internal/middleware/authsession"
	"github.com/qolzam/assetpipe/internal/types"
)

// Config holds the configuration needed for dual authentication middleware
type Config struct {
	Session  *authsession.Verifier
	Resolver authapikey.Resolver
}

// New creates the authentication gate for routes that accept either a browser
// session or a scoped API key.
//
// Strategy selection:
// 1. X-API-Key header present: API key strategy, method-derived permission check
// 2. Otherwise: session strategy (Authorization: Bearer or session cookie)
//
// A request carrying an API key never falls back to the session strategy,
// so a bad key is reported as such instead of as a missing session.
//
// Usage:
//
//	gate := dualauth.New(dualauth.Config{Session: verifier, Resolver: apiKeyService})
//	group.Post("/upload/presign", gate, handlers.Presign)
func New(cfg Config) fiber.Handler {
	sessionMiddleware := authsession.New(cfg.Session)
	apiKeyMiddleware := authapikey.New(authapikey.Config{Resolver: cfg.Resolver})

	return func(c *fiber.Ctx) error {
		if c.Get(types.HeaderAPIKey) != "" {
			return apiKeyMiddleware(c)
		}
		return sessionMiddleware(c)
	}
}
