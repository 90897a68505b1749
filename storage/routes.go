// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package storage

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/assetpipe/internal/middleware/authapikey"
	"github.com/qolzam/assetpipe/internal/middleware/authsession"
	"github.com/qolzam/assetpipe/internal/middleware/constraints"
	"github.com/qolzam/assetpipe/internal/middleware/dualauth"
	"github.com/qolzam/assetpipe/storage/handlers"
)

// StorageHandlers holds all the handlers this router needs.
type StorageHandlers struct {
	ProjectHandler *handlers.ProjectHandler
	StorageHandler *handlers.StorageHandler
}

// RouterConfig holds the configuration needed for the router's middleware.
type RouterConfig struct {
	Session  *authsession.Verifier
	Resolver authapikey.Resolver
}

// RegisterRoutes is the single entry point for setting up storage routes.
func RegisterRoutes(router fiber.Router, h *StorageHandlers, cfg *RouterConfig) {
	if h == nil || h.ProjectHandler == nil || h.StorageHandler == nil {
		panic("StorageHandlers is required")
	}

	sessionAuth := authsession.New(cfg.Session)
	dualAuth := dualauth.New(dualauth.Config{
		Session:  cfg.Session,
		Resolver: cfg.Resolver,
	})

	// Projects are managed interactively only
	projectRoutes := router.Group("/projects", sessionAuth)
	projectRoutes.Post("/", h.ProjectHandler.CreateProject)
	projectRoutes.Get("/", h.ProjectHandler.ListProjects)
	projectRoutes.Get("/:projectId",
		constraints.RequireUUID("projectId"),
		h.ProjectHandler.GetProject,
	)

	storageRoutes := router.Group("/storage")
	storageRoutes.Get("/providers", sessionAuth, h.ProjectHandler.ListProviders)

	storageRoutes.Post("/upload/presign", dualAuth, h.StorageHandler.Presign)
	storageRoutes.Post("/upload/confirm", dualAuth, h.StorageHandler.ConfirmUpload)

	storageRoutes.Get("/projects/:projectId/files",
		dualAuth,
		constraints.RequireUUID("projectId"),
		h.StorageHandler.ListFiles,
	)
	storageRoutes.Get("/files/:fileId",
		dualAuth,
		constraints.RequireUUID("fileId"),
		h.StorageHandler.GetFile,
	)
	storageRoutes.Delete("/files/:fileId",
		dualAuth,
		constraints.RequireUUID("fileId"),
		h.StorageHandler.DeleteFile,
	)
}
