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
	apikeyErrors "github.com/qolzam/assetpipe/apikeys/errors"
	"github.com/qolzam/assetpipe/apikeys/models"
	"github.com/qolzam/assetpipe/internal/database/postgres"
)

const keyColumns = `id, owner_user_id, name, prefix, secret_hash, permissions, created_at`

type postgresRepository struct {
	client *postgres.Client
}

// NewPostgresRepository creates an API key repository backed by PostgreSQL
func NewPostgresRepository(client *postgres.Client) Repository {
	return &postgresRepository{client: client}
}

// Create inserts a new key
func (r *postgresRepository) Create(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (` + keyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.client.Executor(ctx).ExecContext(ctx, query,
		key.ID, key.OwnerUserID, key.Name, key.Prefix, key.SecretHash, key.Permissions, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: create api key: %v", apikeyErrors.ErrPersistence, err)
	}
	return nil
}

// FindByPrefix retrieves a key by its prefix
func (r *postgresRepository) FindByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE prefix = $1`
	return r.findOne(ctx, query, prefix)
}

// FindByID retrieves a key by ID and owner
func (r *postgresRepository) FindByID(ctx context.Context, id, ownerID uuid.UUID) (*models.APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE id = $1 AND owner_user_id = $2`
	return r.findOne(ctx, query, id, ownerID)
}

func (r *postgresRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.APIKey, error) {
	var key models.APIKey
	err := r.client.Executor(ctx).QueryRowxContext(ctx, query, args...).StructScan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikeyErrors.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("%w: find api key: %v", apikeyErrors.ErrPersistence, err)
	}
	return &key, nil
}

// ListByOwner retrieves all keys of a user
func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.APIKey, error) {
	query := `
		SELECT ` + keyColumns + `
		FROM api_keys
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`

	keys := []*models.APIKey{}
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &keys, query, ownerID); err != nil {
		return nil, fmt.Errorf("%w: list api keys: %v", apikeyErrors.ErrPersistence, err)
	}
	return keys, nil
}

// Delete removes a key
func (r *postgresRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	result, err := r.client.Executor(ctx).ExecContext(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND owner_user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("%w: delete api key: %v", apikeyErrors.ErrPersistence, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete api key: %v", apikeyErrors.ErrPersistence, err)
	}
	if rows == 0 {
		return apikeyErrors.ErrAPIKeyNotFound
	}
	return nil
}

// WithTransaction delegates to the client
func (r *postgresRepository) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return r.client.WithTransaction(ctx, fn)
}
