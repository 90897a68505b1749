// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
)

type fileService struct {
	projects  storageRepository.ProjectRepository
	files     storageRepository.FileRepository
	providers ProviderRegistry
}

// NewFileService creates a new file service
func NewFileService(projects storageRepository.ProjectRepository, files storageRepository.FileRepository, providers ProviderRegistry) FileService {
	return &fileService{projects: projects, files: files, providers: providers}
}

func (s *fileService) ListFiles(ctx context.Context, caller types.Caller, projectID uuid.UUID, query *models.PageQuery) (*models.FileListResponse, error) {
	if _, err := loadOwnedProject(ctx, s.projects, caller, projectID); err != nil {
		return nil, err
	}

	limit, offset := normalizePage(query.Limit, query.Offset)
	files, err := s.files.FindByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &models.FileListResponse{Files: files, Limit: limit, Offset: offset}, nil
}

func (s *fileService) GetFile(ctx context.Context, caller types.Caller, fileID uuid.UUID) (*models.File, error) {
	file, _, err := s.loadOwnedFile(ctx, caller, fileID)
	return file, err
}

func (s *fileService) DeleteFile(ctx context.Context, caller types.Caller, fileID uuid.UUID) error {
	file, project, err := s.loadOwnedFile(ctx, caller, fileID)
	if err != nil {
		return err
	}

	blob, err := s.providers.Get(project.Provider)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}

	keys := []string{file.UploadKey}
	for _, v := range file.Variants {
		if v.ObjectKey != file.UploadKey {
			keys = append(keys, v.ObjectKey)
		}
	}
	for _, key := range keys {
		if err := blob.DeleteObject(ctx, key); err != nil && !errors.Is(err, storageErrors.ErrObjectNotFound) {
			log.WarnWithContext(ctx, "failed to delete object %s of file %s: %v", key, file.ID, err)
		}
	}

	log.InfoWithContext(ctx, "file %s deleted", file.ID)
	return nil
}

// loadOwnedFile hides files of projects owned by someone else behind ErrFileNotFound
func (s *fileService) loadOwnedFile(ctx context.Context, caller types.Caller, fileID uuid.UUID) (*models.File, *models.Project, error) {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	project, err := loadOwnedProject(ctx, s.projects, caller, file.ProjectID)
	if err != nil {
		if errors.Is(err, storageErrors.ErrProjectNotFound) {
			return nil, nil, storageErrors.ErrFileNotFound
		}
		return nil, nil, err
	}
	return file, project, nil
}
