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

// ProjectHandler handles project and provider HTTP requests
type ProjectHandler struct {
	projectService services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler with injected dependencies
func NewProjectHandler(projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// ListProviders handles listing configured storage providers
// GET /storage/providers
func (h *ProjectHandler) ListProviders(c *fiber.Ctx) error {
	return c.JSON(models.ProvidersResponse{Providers: h.projectService.ListProviders(c.UserContext())})
}

// CreateProject handles project creation
// POST /projects
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req models.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid request body")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	project, err := h.projectService.CreateProject(c.UserContext(), caller, &req)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(project)
}

// ListProjects handles listing the caller's projects
// GET /projects
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	var query models.PageQuery
	if err := decodeQuery(c, &query); err != nil {
		return storageErrors.HandleValidationError(c, "Invalid query parameters")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	projects, err := h.projectService.ListProjects(c.UserContext(), caller, query.Limit, query.Offset)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"projects": projects})
}

// GetProject handles fetching one project
// GET /projects/:projectId
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	projectID, err := uuid.FromString(c.Params("projectId"))
	if err != nil {
		return storageErrors.HandleValidationError(c, "Invalid project ID")
	}

	caller, ok := types.CallerFromCtx(c)
	if !ok {
		return storageErrors.HandleUserContextError(c)
	}

	project, err := h.projectService.GetProject(c.UserContext(), caller, projectID)
	if err != nil {
		return storageErrors.HandleServiceError(c, err)
	}

	return c.JSON(project)
}
