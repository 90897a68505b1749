// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"fmt"
	"path"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/gosimple/slug"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/rs/xid"
)

const keyRoot = "projects"

// UploadKey is a parsed storage key of the form projects/{projectId}/{xid}/{name}{ext}
type UploadKey struct {
	ProjectID uuid.UUID
	SlotID    xid.ID
	Filename  string
}

// IssuedAt is the time the slot was issued, embedded in the xid
func (k UploadKey) IssuedAt() time.Time {
	return k.SlotID.Time()
}

// ExpiresAt is the moment the slot stops being confirmable
func (k UploadKey) ExpiresAt(ttl time.Duration) time.Time {
	return k.IssuedAt().Add(ttl)
}

// String renders the key
func (k UploadKey) String() string {
	return path.Join(keyRoot, k.ProjectID.String(), k.SlotID.String(), k.Filename)
}

// NewUploadKey derives a collision-resistant key for a file in a project
func NewUploadKey(projectID uuid.UUID, filename string, format models.Format, now time.Time) UploadKey {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	name := slug.Make(base)
	if name == "" {
		name = "upload"
	}
	return UploadKey{
		ProjectID: projectID,
		SlotID:    xid.NewWithTime(now),
		Filename:  name + format.Extension(),
	}
}

// ParseUploadKey validates and splits a key issued by NewUploadKey
func ParseUploadKey(raw string) (UploadKey, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 4 || parts[0] != keyRoot || parts[3] == "" {
		return UploadKey{}, fmt.Errorf("%w: malformed upload key", storageErrors.ErrValidation)
	}

	projectID, err := uuid.FromString(parts[1])
	if err != nil {
		return UploadKey{}, fmt.Errorf("%w: malformed upload key", storageErrors.ErrValidation)
	}

	slotID, err := xid.FromString(parts[2])
	if err != nil {
		return UploadKey{}, fmt.Errorf("%w: malformed upload key", storageErrors.ErrValidation)
	}

	return UploadKey{ProjectID: projectID, SlotID: slotID, Filename: parts[3]}, nil
}
