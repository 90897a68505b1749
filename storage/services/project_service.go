// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
)

const (
	maxProjectNameLength = 100
	defaultPageSize      = 20
	maxPageSize          = 100
)

type projectService struct {
	projects  storageRepository.ProjectRepository
	providers ProviderRegistry
}

// NewProjectService creates a new project service
func NewProjectService(projects storageRepository.ProjectRepository, providers ProviderRegistry) ProjectService {
	return &projectService{projects: projects, providers: providers}
}

func (s *projectService) ListProviders(ctx context.Context) []string {
	return s.providers.Available()
}

func (s *projectService) CreateProject(ctx context.Context, caller types.Caller, req *models.CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", storageErrors.ErrValidation)
	}
	if len(name) > maxProjectNameLength {
		return nil, fmt.Errorf("%w: name must be at most %d characters", storageErrors.ErrValidation, maxProjectNameLength)
	}
	if _, err := s.providers.Get(req.Provider); err != nil {
		return nil, fmt.Errorf("%w: provider %q is not available", storageErrors.ErrValidation, req.Provider)
	}

	project := &models.Project{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerUserID: caller.UserID,
		Name:        name,
		Provider:    req.Provider,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	log.InfoWithContext(ctx, "project %s created on provider %s", project.ID, project.Provider)
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, caller types.Caller, limit, offset int) ([]*models.Project, error) {
	limit, offset = normalizePage(limit, offset)
	return s.projects.FindByOwner(ctx, caller.UserID, limit, offset)
}

func (s *projectService) GetProject(ctx context.Context, caller types.Caller, projectID uuid.UUID) (*models.Project, error) {
	return loadOwnedProject(ctx, s.projects, caller, projectID)
}

// loadOwnedProject hides projects of other owners behind ErrProjectNotFound
func loadOwnedProject(ctx context.Context, projects storageRepository.ProjectRepository, caller types.Caller, projectID uuid.UUID) (*models.Project, error) {
	project, err := projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerUserID != caller.UserID {
		return nil, storageErrors.ErrProjectNotFound
	}
	return project, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
