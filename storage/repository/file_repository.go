// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	uuid "github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/qolzam/assetpipe/internal/database/postgres"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
)

const uniqueViolation = "23505"

const fileColumns = `id, project_id, upload_key, name, content_type, format, byte_size, width, height, failed_variants, created_at`

const variantColumns = `id, file_id, position, format, size_label, object_key, url, width, height, byte_size`

type postgresFileRepository struct {
	client *postgres.Client
}

// NewPostgresFileRepository creates a file repository backed by PostgreSQL
func NewPostgresFileRepository(client *postgres.Client) FileRepository {
	return &postgresFileRepository{client: client}
}

// FindByUploadKey retrieves the file committed for an upload key
func (r *postgresFileRepository) FindByUploadKey(ctx context.Context, uploadKey string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE upload_key = $1`
	return r.findOne(ctx, query, uploadKey)
}

// FindByID retrieves a file by its ID
func (r *postgresFileRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresFileRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.File, error) {
	var file models.File
	err := r.client.Executor(ctx).QueryRowxContext(ctx, query, arg).StructScan(&file)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storageErrors.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: find file: %v", storageErrors.ErrPersistence, err)
	}

	if err := r.attachVariants(ctx, []*models.File{&file}); err != nil {
		return nil, err
	}
	return &file, nil
}

// FindByProject retrieves a page of files belonging to a project
func (r *postgresFileRepository) FindByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	files := []*models.File{}
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &files, query, projectID, limit, offset); err != nil {
		return nil, fmt.Errorf("%w: find files by project: %v", storageErrors.ErrPersistence, err)
	}
	if err := r.attachVariants(ctx, files); err != nil {
		return nil, err
	}
	return files, nil
}

// attachVariants loads the variants of all files in one query
func (r *postgresFileRepository) attachVariants(ctx context.Context, files []*models.File) error {
	if len(files) == 0 {
		return nil
	}

	ids := make([]string, len(files))
	byID := make(map[uuid.UUID]*models.File, len(files))
	for i, f := range files {
		ids[i] = f.ID.String()
		byID[f.ID] = f
		f.Variants = []models.Variant{}
	}

	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE file_id = ANY($1::uuid[])
		ORDER BY file_id, position
	`

	var variants []models.Variant
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &variants, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("%w: load variants: %v", storageErrors.ErrPersistence, err)
	}
	for _, v := range variants {
		if f, ok := byID[v.FileID]; ok {
			f.Variants = append(f.Variants, v)
		}
	}
	return nil
}

// TransactionalUpsertFile writes the file row and all variant rows in one transaction
func (r *postgresFileRepository) TransactionalUpsertFile(ctx context.Context, file *models.File, variants []models.Variant) error {
	return r.client.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.client.Executor(txCtx)

		insertFile := `
			INSERT INTO files (` + fileColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (upload_key) DO NOTHING
			RETURNING id
		`

		var id uuid.UUID
		err := exec.QueryRowxContext(txCtx, insertFile,
			file.ID, file.ProjectID, file.UploadKey, file.Name, file.ContentType, file.Format,
			file.ByteSize, file.Width, file.Height, file.FailedVariants, file.CreatedAt,
		).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
				return storageErrors.ErrDuplicateUpload
			}
			return fmt.Errorf("%w: insert file: %v", storageErrors.ErrPersistence, err)
		}

		insertVariant := `
			INSERT INTO variants (` + variantColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		for i := range variants {
			v := &variants[i]
			v.FileID = id
			v.Position = i
			if _, err := exec.ExecContext(txCtx, insertVariant,
				v.ID, v.FileID, v.Position, v.Format, v.Size, v.ObjectKey, v.URL, v.Width, v.Height, v.ByteSize,
			); err != nil {
				return fmt.Errorf("%w: insert variant %s/%s: %v", storageErrors.ErrPersistence, v.Format, v.Size, err)
			}
		}
		return nil
	})
}

// Delete removes a file record; variants are removed by cascade
func (r *postgresFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.client.Executor(ctx).ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete file: %v", storageErrors.ErrPersistence, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete file: %v", storageErrors.ErrPersistence, err)
	}
	if rows == 0 {
		return storageErrors.ErrFileNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
