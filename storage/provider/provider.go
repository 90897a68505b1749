// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"path"
	"strings"
	"time"

	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
)

// Provider kinds
const (
	KindR2 = "r2"
	KindS3 = "s3"
)

// PresignedUpload is a time-limited upload slot
type PresignedUpload struct {
	URL       string
	Method    string
	ExpiresAt time.Time
}

// ObjectInfo describes a stored image object
type ObjectInfo struct {
	ByteSize    int64
	ContentType string
	Format      models.Format
	Width       int
	Height      int
}

// MaterializedVariant is a derived object written next to its source
type MaterializedVariant struct {
	Key      string
	URL      string
	Width    int
	Height   int
	ByteSize int64
}

// Variant generation steps. Each is a stable reason that can be stored and shown to clients.
const (
	StepReadSource    = "read source failed"
	StepImageTooLarge = "image too large"
	StepTransform     = "transform failed"
	StepWriteVariant  = "write variant failed"
	StepResolveURL    = "resolve url failed"
)

// VariantError is returned by MaterializeVariant. Err carries backend detail
// for logs and must not reach clients.
type VariantError struct {
	Step string
	Err  error
}

func (e *VariantError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *VariantError) Unwrap() []error {
	return []error{storageErrors.ErrVariantGenerationFailed, e.Err}
}

// BlobProvider defines the interface for blob storage providers.
// This interface is provider-agnostic; adding a backend means adding
// one implementation and registering it.
type BlobProvider interface {
	// Name returns the registry identifier of the provider
	Name() string

	// PresignUpload returns a PUT URL valid for ttl
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error)

	// ObjectExists reports (false, nil) when the object is absent and an
	// ErrProviderUnavailable error when existence cannot be determined
	ObjectExists(ctx context.Context, key string) (bool, error)

	// ProbeObject reads size, format and dimensions of an image object
	ProbeObject(ctx context.Context, key string) (*ObjectInfo, error)

	// MaterializeVariant derives a variant from sourceKey without touching the source
	MaterializeVariant(ctx context.Context, sourceKey string, format models.Format, size models.SizeLabel) (*MaterializedVariant, error)

	// DeleteObject removes an object; ErrObjectNotFound if it does not exist
	DeleteObject(ctx context.Context, key string) error

	// ObjectURL returns the URL clients use to read an object
	ObjectURL(ctx context.Context, key string) (string, error)
}

// VariantKey returns the object key of a derived variant:
// projects/p/x/photo.png + (webp, max300) -> projects/p/x/photo/max300.webp
func VariantKey(sourceKey string, format models.Format, size models.SizeLabel) string {
	base := strings.TrimSuffix(sourceKey, path.Ext(sourceKey))
	return base + "/" + string(size) + format.Extension()
}
