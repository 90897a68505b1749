// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/apikeys/models"
	"github.com/qolzam/assetpipe/internal/middleware/authapikey"
	"github.com/qolzam/assetpipe/internal/types"
)

// APIKeyService manages a user's API keys and resolves raw keys for the auth middleware
type APIKeyService interface {
	authapikey.Resolver

	// CreateAPIKey issues a new key. The raw key is only returned here.
	CreateAPIKey(ctx context.Context, caller types.Caller, req *models.CreateAPIKeyRequest) (*models.IssuedAPIKey, error)

	// ListAPIKeys returns the caller's keys without secrets
	ListAPIKeys(ctx context.Context, caller types.Caller) ([]*models.APIKey, error)

	// DeleteAPIKey revokes a key owned by the caller
	DeleteAPIKey(ctx context.Context, caller types.Caller, keyID uuid.UUID) error

	// RotateAPIKey replaces a key with a fresh one carrying the same name and permissions
	RotateAPIKey(ctx context.Context, caller types.Caller, keyID uuid.UUID) (*models.IssuedAPIKey, error)
}
