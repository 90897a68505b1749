// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/qolzam/assetpipe/storage/provider"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
	"github.com/stretchr/testify/mock"
)

// MockProjectRepository is a mock implementation of ProjectRepository for testing
type MockProjectRepository struct {
	mock.Mock
}

// Ensure MockProjectRepository implements ProjectRepository
var _ storageRepository.ProjectRepository = (*MockProjectRepository)(nil)

// Create mocks the Create method
func (m *MockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *MockProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

// FindByOwner mocks the FindByOwner method
func (m *MockProjectRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Project, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Project), args.Error(1)
}

// MockFileRepository is a mock implementation of FileRepository for testing
type MockFileRepository struct {
	mock.Mock
}

// Ensure MockFileRepository implements FileRepository
var _ storageRepository.FileRepository = (*MockFileRepository)(nil)

// FindByUploadKey mocks the FindByUploadKey method
func (m *MockFileRepository) FindByUploadKey(ctx context.Context, uploadKey string) (*models.File, error) {
	args := m.Called(ctx, uploadKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.File), args.Error(1)
}

// TransactionalUpsertFile mocks the TransactionalUpsertFile method
func (m *MockFileRepository) TransactionalUpsertFile(ctx context.Context, file *models.File, variants []models.Variant) error {
	args := m.Called(ctx, file, variants)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *MockFileRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.File), args.Error(1)
}

// FindByProject mocks the FindByProject method
func (m *MockFileRepository) FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*models.File, error) {
	args := m.Called(ctx, projectID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.File), args.Error(1)
}

// Delete mocks the Delete method
func (m *MockFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBlobProvider is a mock implementation of BlobProvider for testing
type MockBlobProvider struct {
	mock.Mock
	name string
}

// Ensure MockBlobProvider implements BlobProvider
var _ provider.BlobProvider = (*MockBlobProvider)(nil)

// NewMockBlobProvider creates a mock registered under name
func NewMockBlobProvider(name string) *MockBlobProvider {
	return &MockBlobProvider{name: name}
}

// Name returns the registry name
func (m *MockBlobProvider) Name() string {
	return m.name
}

// PresignUpload mocks the PresignUpload method
func (m *MockBlobProvider) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (*provider.PresignedUpload, error) {
	args := m.Called(ctx, key, contentType, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PresignedUpload), args.Error(1)
}

// ObjectExists mocks the ObjectExists method
func (m *MockBlobProvider) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// ProbeObject mocks the ProbeObject method
func (m *MockBlobProvider) ProbeObject(ctx context.Context, key string) (*provider.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ObjectInfo), args.Error(1)
}

// MaterializeVariant mocks the MaterializeVariant method
func (m *MockBlobProvider) MaterializeVariant(ctx context.Context, sourceKey string, format models.Format, size models.SizeLabel) (*provider.MaterializedVariant, error) {
	args := m.Called(ctx, sourceKey, format, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.MaterializedVariant), args.Error(1)
}

// DeleteObject mocks the DeleteObject method
func (m *MockBlobProvider) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ObjectURL mocks the ObjectURL method
func (m *MockBlobProvider) ObjectURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
