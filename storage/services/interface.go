// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/types"
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/qolzam/assetpipe/storage/provider"
)

// ProviderRegistry resolves storage providers by name
type ProviderRegistry interface {
	Get(name string) (provider.BlobProvider, error)
	Available() []string
}

// ProjectService manages projects and the providers they are bound to
type ProjectService interface {
	// ListProviders returns the identifiers of configured providers
	ListProviders(ctx context.Context) []string

	// CreateProject binds a new project to an available provider
	CreateProject(ctx context.Context, caller types.Caller, req *models.CreateProjectRequest) (*models.Project, error)

	ListProjects(ctx context.Context, caller types.Caller, limit, offset int) ([]*models.Project, error)
	GetProject(ctx context.Context, caller types.Caller, projectID uuid.UUID) (*models.Project, error)
}

// PresignService issues upload slots
type PresignService interface {
	// Presign returns a presigned upload URL for a new key in the project.
	// Nothing is persisted.
	Presign(ctx context.Context, caller types.Caller, req *models.PresignRequest) (*models.PresignResponse, error)
}

// ConfirmService ingests uploaded objects
type ConfirmService interface {
	// Confirm verifies the upload, derives variants and commits the file once.
	// Repeated calls for a committed key return the committed result.
	Confirm(ctx context.Context, caller types.Caller, req *models.ConfirmRequest) (*models.ConfirmResponse, error)
}

// FileService reads and deletes committed files
type FileService interface {
	ListFiles(ctx context.Context, caller types.Caller, projectID uuid.UUID, query *models.PageQuery) (*models.FileListResponse, error)
	GetFile(ctx context.Context, caller types.Caller, fileID uuid.UUID) (*models.File, error)

	// DeleteFile removes the file rows and, best-effort, its stored objects
	DeleteFile(ctx context.Context, caller types.Caller, fileID uuid.UUID) error
}
