// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
)

// Project groups files under one owner and one storage provider
type Project struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OwnerUserID uuid.UUID `db:"owner_user_id" json:"ownerUserId"`
	Name        string    `db:"name" json:"name"`
	Provider    string    `db:"provider" json:"provider"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// File represents a confirmed upload and its variants
type File struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	ProjectID      uuid.UUID      `db:"project_id" json:"projectId"`
	UploadKey      string         `db:"upload_key" json:"key"`
	Name           string         `db:"name" json:"name"`
	ContentType    string         `db:"content_type" json:"contentType"`
	Format         Format         `db:"format" json:"format"`
	ByteSize       int64          `db:"byte_size" json:"byteSize"`
	Width          int            `db:"width" json:"width"`
	Height         int            `db:"height" json:"height"`
	FailedVariants FailedVariants `db:"failed_variants" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	Variants       []Variant      `db:"-" json:"variants"`
}

// FailedVariants is stored as a JSONB array
type FailedVariants []FailedVariant

// Value implements driver.Valuer
func (f FailedVariants) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]FailedVariant(f))
}

// Scan implements sql.Scanner
func (f *FailedVariants) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = FailedVariants{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FailedVariants", src)
	}
	var out []FailedVariant
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*f = out
	return nil
}
