// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/qolzam/assetpipe/storage/services"
)

// StorageHandler handles upload and file HTTP requests
type StorageHandler struct {
	presignService services.PresignService
	confirmService services.ConfirmService
	fileService    services.FileService
}

// NewStorageHandler creates a new StorageHandler with injected dependencies
func NewStorageHandler(presignService services.PresignService, confirmService services.ConfirmService, fileService services.FileService) *StorageHandler {
	return &StorageHandler{
		presignService: presignService,
		confirmService: confirmService,
		fileService:    fileService,
	}
}

// Presign handles issuing an upload slot
// POST /storage/upload/presign
func (h *StorageHandler) Presign(c *fiber.Ctx) error {
	var req models.PresignRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	result, err := h.presignService.Presign(c.UserContext(), caller, &req)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(result)
}

// ConfirmUpload handles upload confirmation
// POST /storage/upload/confirm
func (h *StorageHandler) ConfirmUpload(c *fiber.Ctx) error {
	var req models.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	result, err := h.confirmService.Confirm(c.UserContext(), caller, &req)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// ListFiles handles listing a project's files
// GET /storage/projects/:projectId/files
func (h *StorageHandler) ListFiles(c *fiber.Ctx) error {
	projectID, err := uuid.FromString(c.Params("projectId"))
	if err != nil {
		return storageErrors.HandleValidationError(c, "Invalid project ID")
	}

	var query models.PageQuery
	if err := decodeQuery(c, &query); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid query parameters")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	result, err := h.fileService.ListFiles(c.UserContext(), caller, projectID, &query)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(result)
}

// GetFile handles fetching a file with its variants
// GET /storage/files/:fileId
func (h *StorageHandler) GetFile(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleValidationError(c, "Invalid file ID")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	file, err := h.fileService.GetFile(c.UserContext(), caller, fileID)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(file)
}

// DeleteFile handles file deletion
// DELETE /storage/files/:fileId
func (h *StorageHandler) DeleteFile(c *fiber.Ctx) error {
	fileID, err := uuid.FromString(c.Params("fileId"))
	if err != nil {
		return storageErrors.HandleValidationError(c, "Invalid file ID")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	if err := h.fileService.DeleteFile(c.UserContext(), caller, fileID); err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}
