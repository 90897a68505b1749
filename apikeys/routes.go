// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package apikeys

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/assetpipe/apikeys/handlers"
	"github.com/qolzam/assetpipe/internal/middleware/authsession"
	"github.com/qolzam/assetpipe/internal/middleware/constraints"
)

// RouterConfig holds the configuration needed for the router's middleware.
type RouterConfig struct {
	Session *authsession.Verifier
}

// RegisterRoutes sets up API key management routes. Keys can only be managed with a session.
func RegisterRoutes(router fiber.Router, h *handlers.APIKeyHandler, cfg *RouterConfig) {
	if h == nil {
		panic("APIKeyHandler is required")
	}

	group := router.Group("/api-keys", authsession.New(cfg.Session))
	group.Post("/", h.CreateAPIKey)
	group.Get("/", h.ListAPIKeys)
	group.Delete("/:keyId",
		constraints.RequireUUID("keyId"),
		h.DeleteAPIKey,
	)
	group.Post("/:keyId/rotate",
		constraints.RequireUUID("keyId"),
		h.RotateAPIKey,
	)
}
