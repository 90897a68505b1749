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

	"github.com/qolzam/assetpipe/internal/pkg/log"
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
)

type presignService struct {
	projects  storageRepository.ProjectRepository
	providers ProviderRegistry
	config    *platformconfig.StorageConfig
	now       func() time.Time
}

// NewPresignService creates a new presign service
func NewPresignService(projects storageRepository.ProjectRepository, providers ProviderRegistry, config *platformconfig.StorageConfig) PresignService {
	return &presignService{
		projects:  projects,
		providers: providers,
		config:    config,
		now:       time.Now,
	}
}

func (s *presignService) Presign(ctx context.Context, caller types.Caller, req *models.PresignRequest) (*models.PresignResponse, error) {
	if req.ProjectID.IsNil() {
		return nil, fmt.Errorf("%w: projectId is required", storageErrors.ErrValidation)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", storageErrors.ErrValidation)
	}
	if !s.isContentTypeAllowed(req.ContentType) {
		return nil, fmt.Errorf("%w: content type %q is not allowed", storageErrors.ErrValidation, req.ContentType)
	}
	format, ok := models.FormatFromContentType(req.ContentType)
	if !ok {
		return nil, fmt.Errorf("%w: content type %q is not a supported image format", storageErrors.ErrValidation, req.ContentType)
	}

	project, err := loadOwnedProject(ctx, s.projects, caller, req.ProjectID)
	if err != nil {
		return nil, err
	}

	blob, err := s.providers.Get(project.Provider)
	if err != nil {
		return nil, err
	}

	key := NewUploadKey(project.ID, req.Filename, format, s.now())
	slot, err := blob.PresignUpload(ctx, key.String(), format.ContentType(), s.config.UploadURLTTL)
	if err != nil {
		return nil, err
	}

	log.DebugWithContext(ctx, "issued upload slot %s on %s", key, project.Provider)

	return &models.PresignResponse{
		UploadURL: slot.URL,
		Method:    slot.Method,
		Key:       key.String(),
		ExpiresAt: key.ExpiresAt(s.config.UploadURLTTL).UTC(),
	}, nil
}

// isContentTypeAllowed checks the content type against the configured allow list
func (s *presignService) isContentTypeAllowed(contentType string) bool {
	if len(s.config.AllowedContentTypes) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedContentTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
