// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	apikeyErrors "github.com/qolzam/assetpipe/apikeys/errors"
	"github.com/qolzam/assetpipe/apikeys/models"
	"github.com/qolzam/assetpipe/apikeys/services"
	"github.com/qolzam/assetpipe/internal/types"
)

// APIKeyHandler handles API key management HTTP requests
type APIKeyHandler struct {
	service services.APIKeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler with injected dependencies
func NewAPIKeyHandler(service services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

// CreateAPIKey handles key creation. The raw key is only in this response.
// POST /api-keys
func (h *APIKeyHandler) CreateAPIKey(c *fiber.Ctx) error {
	var req models.CreateAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return apikeyErrors.HandleValidationError(c, "Invalid request body")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return apikeyErrors.HandleUserContextError(c)
	}

	issued, err := h.service.CreateAPIKey(c.UserContext(), caller, &req)
	if err != nil {
		return apikeyErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(issued)
}

// ListAPIKeys handles listing the caller's keys
// GET /api-keys
func (h *APIKeyHandler) ListAPIKeys(c *fiber.Ctx) error {
	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return apikeyErrors.HandleUserContextError(c)
	}

	keys, err := h.service.ListAPIKeys(c.UserContext(), caller)
	if err != nil {
		return apikeyErrors.HandleServiceError(c, err)
	}

	return c.JSON(models.APIKeyListResponse{APIKeys: keys})
}

// DeleteAPIKey handles key revocation
// DELETE /api-keys/:keyId
func (h *APIKeyHandler) DeleteAPIKey(c *fiber.Ctx) error {
	keyID, caller, ok := keyRequest(c)
	if !ok {
		return nil
	}

	if err := h.service.DeleteAPIKey(c.UserContext(), caller, keyID); err != nil {
		return apikeyErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// RotateAPIKey handles key rotation
// POST /api-keys/:keyId/rotate
func (h *APIKeyHandler) RotateAPIKey(c *fiber.Ctx) error {
	keyID, caller, ok := keyRequest(c)
	if !ok {
		return nil
	}

	issued, err := h.service.RotateAPIKey(c.UserContext(), caller, keyID)
	if err != nil {
		return apikeyErrors.HandleServiceError(c, err)
	}

	return c.JSON(issued)
}

// keyRequest extracts the key ID and caller. When it reports false the error response is already written.
func keyRequest(c *fiber.Ctx) (uuid.UUID, types.Caller, bool) {
	keyID, err := uuid.FromString(c.Params("keyId"))
	if err != nil {
		_ = apikeyErrors.HandleValidationError(c, "Invalid API key ID")
		return uuid.Nil, types.Caller{}, false
	}
	caller, ok := types.CallerFromCtx(c)
	if !ok {
		_ = apikeyErrors.HandleUserContextError(c)
		return uuid.Nil, types.Caller{}, false
	}
	return keyID, caller, true
}
