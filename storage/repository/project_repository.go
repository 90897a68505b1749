// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	uuid "github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/qolzam/assetpipe/internal/database/postgres"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
)

type postgresProjectRepository struct {
	client *postgres.Client
}

// NewPostgresProjectRepository creates a project repository backed by PostgreSQL
func NewPostgresProjectRepository(client *postgres.Client) ProjectRepository {
	return &postgresProjectRepository{client: client}
}

// Create inserts a new project record
func (r *postgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, owner_user_id, name, provider, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.client.Executor(ctx).ExecContext(ctx, query,
		project.ID, project.OwnerUserID, project.Name, project.Provider, project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: create project: %v", storageErrors.ErrPersistence, err)
	}
	return nil
}

// FindByID retrieves a project by its ID
func (r *postgresProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
		SELECT id, owner_user_id, name, provider, created_at
		FROM projects
		WHERE id = $1
	`

	var project models.Project
	err := r.client.Executor(ctx).QueryRowxContext(ctx, query, id).StructScan(&project)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storageErrors.ErrProjectNotFound
		}
		return nil, fmt.Errorf("%w: find project: %v", storageErrors.ErrPersistence, err)
	}
	return &project, nil
}

// FindByOwner retrieves projects owned by a user
func (r *postgresProjectRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Project, error) {
	query := `
		SELECT id, owner_user_id, name, provider, created_at
		FROM projects
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	projects := []*models.Project{}
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &projects, query, ownerID, limit, offset); err != nil {
		return nil, fmt.Errorf("%w: find projects by owner: %v", storageErrors.ErrPersistence, err)
	}
	return projects, nil
}
