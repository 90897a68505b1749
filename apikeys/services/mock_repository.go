// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/apikeys/models"
	"github.com/qolzam/assetpipe/apikeys/repository"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of repository.Repository for testing
type MockRepository struct {
	mock.Mock
}

// Ensure MockRepository implements repository.Repository
var _ repository.Repository = (*MockRepository)(nil)

// Create mocks the Create method
func (m *MockRepository) Create(ctx context.Context, key *models.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// FindByPrefix mocks the FindByPrefix method
func (m *MockRepository) FindByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

// FindByID mocks the FindByID method
func (m *MockRepository) FindByID(ctx context.Context, id, ownerID uuid.UUID) (*models.APIKey, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

// ListByOwner mocks the ListByOwner method
func (m *MockRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.APIKey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.APIKey), args.Error(1)
}

// Delete mocks the Delete method
func (m *MockRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// WithTransaction records the call and runs fn with the same context
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
