// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
)

type confirmService struct {
	projects  storageRepository.ProjectRepository
	files     storageRepository.FileRepository
	providers ProviderRegistry
	engine    *VariantEngine
	config    *platformconfig.StorageConfig
	now       func() time.Time
}

// NewConfirmService creates a new confirm service
func NewConfirmService(
	projects storageRepository.ProjectRepository,
	files storageRepository.FileRepository,
	providers ProviderRegistry,
	engine *VariantEngine,
	config *platformconfig.StorageConfig,
) ConfirmService {
	return &confirmService{
		projects:  projects,
		files:     files,
		providers: providers,
		engine:    engine,
		config:    config,
		now:       time.Now,
	}
}

func (s *confirmService) Confirm(ctx context.Context, caller types.Caller, req *models.ConfirmRequest) (*models.ConfirmResponse, error) {
	formats, sizes, err := validateMatrix(req)
	if err != nil {
		return nil, err
	}

	key, err := ParseUploadKey(req.Key)
	if err != nil {
		return nil, err
	}

	project, err := loadOwnedProject(ctx, s.projects, caller, key.ProjectID)
	if err != nil {
		return nil, err
	}

	// A committed key is final: replay the stored outcome.
	existing, err := s.files.FindByUploadKey(ctx, req.Key)
	if err == nil {
		log.DebugWithContext(ctx, "upload %s already committed as file %s", req.Key, existing.ID)
		return responseFromFile(existing), nil
	}
	if !errors.Is(err, storageErrors.ErrFileNotFound) {
		return nil, err
	}

	blob, err := s.providers.Get(project.Provider)
	if err != nil {
		return nil, err
	}

	exists, err := blob.ObjectExists(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return s.committedOr(ctx, req.Key, storageErrors.ErrUploadNotFound)
	}
	if s.now().After(key.ExpiresAt(s.config.UploadURLTTL)) {
		return nil, storageErrors.ErrUploadExpired
	}

	original, err := blob.ProbeObject(ctx, req.Key)
	if err != nil {
		if errors.Is(err, storageErrors.ErrObjectNotFound) {
			return s.committedOr(ctx, req.Key, storageErrors.ErrUploadNotFound)
		}
		return nil, err
	}
	if err := s.checkLimits(original.ByteSize, original.Width, original.Height); err != nil {
		return nil, err
	}
	if m := req.Metadata; m != nil && (m.Width != original.Width || m.Height != original.Height) {
		return nil, fmt.Errorf("%w: metadata %dx%d does not match uploaded image %dx%d",
			storageErrors.ErrValidation, m.Width, m.Height, original.Width, original.Height)
	}

	plan := PlanVariants(formats, sizes, req.SaveOriginal, original.Format, original.Width, original.Height)
	variants, failed := s.engine.Generate(ctx, blob, req.Key, original, plan)

	contentType := original.ContentType
	if contentType == "" {
		contentType = original.Format.ContentType()
	}
	file := &models.File{
		ID:             uuid.Must(uuid.NewV4()),
		ProjectID:      project.ID,
		UploadKey:      req.Key,
		Name:           key.Filename,
		ContentType:    contentType,
		Format:         original.Format,
		ByteSize:       original.ByteSize,
		Width:          original.Width,
		Height:         original.Height,
		FailedVariants: failed,
		CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.files.TransactionalUpsertFile(ctx, file, variants); err != nil {
		if errors.Is(err, storageErrors.ErrDuplicateUpload) {
			// A concurrent confirm won the race; its result is authoritative.
			winner, findErr := s.files.FindByUploadKey(ctx, req.Key)
			if findErr != nil {
				return nil, findErr
			}
			return responseFromFile(winner), nil
		}
		if !errors.Is(err, storageErrors.ErrPersistence) {
			err = fmt.Errorf("%w: %v", storageErrors.ErrPersistence, err)
		}
		return nil, err
	}
	file.Variants = variants

	if s.config.DeleteUnusedSource && !referencesObject(variants, req.Key) {
		if err := blob.DeleteObject(ctx, req.Key); err != nil && !errors.Is(err, storageErrors.ErrObjectNotFound) {
			log.WarnWithContext(ctx, "failed to delete unused source %s: %v", req.Key, err)
		}
	}

	log.InfoWithContext(ctx, "confirmed upload %s as file %s (%d variants, %d failed)", req.Key, file.ID, len(variants), len(failed))
	return responseFromFile(file), nil
}

// committedOr replays a file committed by a concurrent confirm, which may
// already have deleted the source object. Without one it returns fallback.
func (s *confirmService) committedOr(ctx context.Context, uploadKey string, fallback error) (*models.ConfirmResponse, error) {
	winner, err := s.files.FindByUploadKey(ctx, uploadKey)
	if err == nil {
		log.DebugWithContext(ctx, "upload %s was committed concurrently as file %s", uploadKey, winner.ID)
		return responseFromFile(winner), nil
	}
	if !errors.Is(err, storageErrors.ErrFileNotFound) {
		return nil, err
	}
	return nil, fallback
}

// checkLimits runs before any variant is decoded. Zero disables a limit.
func (s *confirmService) checkLimits(byteSize int64, width, height int) error {
	if limit := s.config.MaxUploadBytes; limit > 0 && byteSize > limit {
		return fmt.Errorf("%w: upload is %d bytes, limit is %d", storageErrors.ErrValidation, byteSize, limit)
	}
	if limit := s.config.MaxPixels; limit > 0 && int64(width)*int64(height) > limit {
		return fmt.Errorf("%w: image is %dx%d, limit is %d pixels", storageErrors.ErrValidation, width, height, limit)
	}
	return nil
}

// validateMatrix rejects empty or unknown formats and sizes and drops duplicates
func validateMatrix(req *models.ConfirmRequest) ([]models.Format, []models.SizeLabel, error) {
	if req.Key == "" {
		return nil, nil, fmt.Errorf("%w: key is required", storageErrors.ErrValidation)
	}
	if len(req.Formats) == 0 {
		return nil, nil, fmt.Errorf("%w: formats must not be empty", storageErrors.ErrValidation)
	}
	if len(req.Sizes) == 0 {
		return nil, nil, fmt.Errorf("%w: sizes must not be empty", storageErrors.ErrValidation)
	}

	formats := make([]models.Format, 0, len(req.Formats))
	seenFormats := make(map[models.Format]bool)
	for _, f := range req.Formats {
		if !f.Valid() {
			return nil, nil, fmt.Errorf("%w: unknown format %q", storageErrors.ErrValidation, f)
		}
		if !seenFormats[f] {
			seenFormats[f] = true
			formats = append(formats, f)
		}
	}

	sizes := make([]models.SizeLabel, 0, len(req.Sizes))
	seenSizes := make(map[models.SizeLabel]bool)
	for _, sz := range req.Sizes {
		if !sz.Valid() {
			return nil, nil, fmt.Errorf("%w: unknown size %q", storageErrors.ErrValidation, sz)
		}
		if !seenSizes[sz] {
			seenSizes[sz] = true
			sizes = append(sizes, sz)
		}
	}
	return formats, sizes, nil
}

func referencesObject(variants []models.Variant, key string) bool {
	for _, v := range variants {
		if v.ObjectKey == key {
			return true
		}
	}
	return false
}

func responseFromFile(file *models.File) *models.ConfirmResponse {
	variants := file.Variants
	if variants == nil {
		variants = []models.Variant{}
	}
	failed := []models.FailedVariant(file.FailedVariants)
	if failed == nil {
		failed = []models.FailedVariant{}
	}
	file.Variants = variants

	state := models.StateCommitted
	if len(failed) > 0 {
		state = models.StatePartiallyCommitted
	}
	return &models.ConfirmResponse{
		State:          state,
		File:           file,
		Variants:       variants,
		FailedVariants: failed,
	}
}
