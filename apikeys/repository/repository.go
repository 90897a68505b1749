// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/apikeys/models"
)

// Repository defines the interface for API key database operations
type Repository interface {
	// Create inserts a new key
	Create(ctx context.Context, key *models.APIKey) error

	// FindByPrefix retrieves a key by its public prefix; ErrAPIKeyNotFound when absent
	FindByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)

	// FindByID retrieves a key owned by ownerID; ErrAPIKeyNotFound otherwise
	FindByID(ctx context.Context, id, ownerID uuid.UUID) (*models.APIKey, error)

	// ListByOwner retrieves all keys of a user, newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.APIKey, error)

	// Delete removes a key owned by ownerID; ErrAPIKeyNotFound otherwise
	Delete(ctx context.Context, id, ownerID uuid.UUID) error

	// WithTransaction runs fn in one transaction shared by calls made with its context
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
