// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/lib/pq"
)

// APIKey is a stored API key. The secret itself is never stored.
type APIKey struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	OwnerUserID uuid.UUID      `db:"owner_user_id" json:"ownerUserId"`
	Name        string         `db:"name" json:"name"`
	Prefix      string         `db:"prefix" json:"prefix"`
	SecretHash  string         `db:"secret_hash" json:"-"`
	Permissions pq.StringArray `db:"permissions" json:"permissions"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// CreateAPIKeyRequest is the payload for creating a key
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// IssuedAPIKey is returned once, when a key is created or rotated
type IssuedAPIKey struct {
	APIKey *APIKey `json:"apiKey"`
	Key    string  `json:"key"`
}

// APIKeyListResponse lists a user's keys without secrets
type APIKeyListResponse struct {
	APIKeys []*APIKey `json:"apiKeys"`
}
