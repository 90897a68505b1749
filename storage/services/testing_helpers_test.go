// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"sync"
	"time"

	uuid "github.com/gofrs/uuid"
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/qolzam/assetpipe/storage/provider"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
	"github.com/stretchr/testify/mock"
)

// memoryFileRepository enforces upload key uniqueness like the postgres schema does
type memoryFileRepository struct {
	mu    sync.Mutex
	files map[string]*models.File
}

var _ storageRepository.FileRepository = (*memoryFileRepository)(nil)

func newMemoryFileRepository() *memoryFileRepository {
	return &memoryFileRepository{files: map[string]*models.File{}}
}

func (r *memoryFileRepository) FindByUploadKey(ctx context.Context, uploadKey string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[uploadKey]
	if !ok {
		return nil, storageErrors.ErrFileNotFound
	}
	return cloneFile(f), nil
}

func (r *memoryFileRepository) TransactionalUpsertFile(ctx context.Context, file *models.File, variants []models.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[file.UploadKey]; ok {
		return storageErrors.ErrDuplicateUpload
	}
	for i := range variants {
		variants[i].FileID = file.ID
		variants[i].Position = i
	}
	stored := cloneFile(file)
	stored.Variants = append([]models.Variant{}, variants...)
	r.files[file.UploadKey] = stored
	return nil
}

func (r *memoryFileRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.ID == id {
			return cloneFile(f), nil
		}
	}
	return nil, storageErrors.ErrFileNotFound
}

func (r *memoryFileRepository) FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.File{}
	for _, f := range r.files {
		if f.ProjectID == projectID {
			out = append(out, cloneFile(f))
		}
	}
	return out, nil
}

func (r *memoryFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, f := range r.files {
		if f.ID == id {
			delete(r.files, key)
			return nil
		}
	}
	return storageErrors.ErrFileNotFound
}

func (r *memoryFileRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

func cloneFile(f *models.File) *models.File {
	c := *f
	if f.Variants != nil {
		c.Variants = append([]models.Variant{}, f.Variants...)
	}
	if f.FailedVariants != nil {
		c.FailedVariants = append(models.FailedVariants{}, f.FailedVariants...)
	}
	return &c
}

type fixture struct {
	caller   types.Caller
	project  *models.Project
	projects *MockProjectRepository
	blob     *MockBlobProvider
	registry *provider.Registry
	config   *platformconfig.StorageConfig
}

func newFixture() *fixture {
	owner := uuid.Must(uuid.NewV4())
	project := &models.Project{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerUserID: owner,
		Name:        "marketing",
		Provider:    provider.KindR2,
		CreatedAt:   time.Now().UTC(),
	}

	projects := new(MockProjectRepository)
	projects.On("FindByID", mock.Anything, project.ID).Return(project, nil)

	blob := NewMockBlobProvider(provider.KindR2)
	registry := provider.NewRegistry()
	registry.Register(blob)

	return &fixture{
		caller:   types.Caller{UserID: owner, Username: "ada", Strategy: types.StrategySession},
		project:  project,
		projects: projects,
		blob:     blob,
		registry: registry,
		config: &platformconfig.StorageConfig{
			UploadURLTTL:        10 * time.Minute,
			AllowedContentTypes: []string{"image/png", "image/jpeg", "image/webp", "image/avif"},
			VariantWorkers:      2,
			DeleteUnusedSource:  true,
			MaxUploadBytes:      50 << 20,
			MaxPixels:           40_000_000,
		},
	}
}

func materialized(source string, format models.Format, size models.SizeLabel, w, h int) *provider.MaterializedVariant {
	key := provider.VariantKey(source, format, size)
	return &provider.MaterializedVariant{
		Key:      key,
		URL:      "https://cdn.example.com/" + key,
		Width:    w,
		Height:   h,
		ByteSize: int64(w * h / 10),
	}
}
