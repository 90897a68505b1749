// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/storage/models"
)

// ProjectRepository defines the interface for project database operations
type ProjectRepository interface {
	// Create inserts a new project record
	Create(ctx context.Context, project *models.Project) error

	// FindByID retrieves a project by its ID; ErrProjectNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// FindByOwner retrieves projects owned by a user, newest first
	FindByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Project, error)
}

// FileRepository defines the interface for file and variant database operations
type FileRepository interface {
	// FindByUploadKey retrieves the file committed for an upload key with its
	// variants; ErrFileNotFound when nothing was committed yet
	FindByUploadKey(ctx context.Context, uploadKey string) (*models.File, error)

	// TransactionalUpsertFile writes the file and its variants atomically.
	// ErrDuplicateUpload is returned when the upload key is already committed.
	TransactionalUpsertFile(ctx context.Context, file *models.File, variants []models.Variant) error

	// FindByID retrieves a file with its variants; ErrFileNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*models.File, error)

	// FindByProject retrieves a page of files with their variants, newest first
	FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*models.File, error)

	// Delete removes a file and, by cascade, its variants
	Delete(ctx context.Context, id uuid.UUID) error
}
