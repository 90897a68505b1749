// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/models"
)

// s3Provider implements BlobProvider for any S3-compatible backend
// (Cloudflare R2, AWS S3, MinIO) using the AWS S3 SDK
type s3Provider struct {
	name        string
	client      *s3.Client
	presign     *s3.PresignClient
	bucket      string
	publicURL   string
	transformer Transformer
}

// Option customises a provider
type Option func(*s3Provider)

// WithTransformer replaces the default image transformer
func WithTransformer(t Transformer) Option {
	return func(p *s3Provider) { p.transformer = t }
}

// NewR2Provider creates a Cloudflare R2 provider from configuration
func NewR2Provider(ctx context.Context, cfg platformconfig.ObjectStoreConfig, opts ...Option) (BlobProvider, error) {
	// Format: https://<account-id>.r2.cloudflarestorage.com
	if cfg.Endpoint == "" && cfg.AccountID != "" {
		cfg.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("R2_ENDPOINT or R2_ACCOUNT_ID is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}
	return newS3Provider(ctx, KindR2, cfg, opts...)
}

// NewS3Provider creates an AWS S3 (or S3-compatible) provider from configuration
func NewS3Provider(ctx context.Context, cfg platformconfig.ObjectStoreConfig, opts ...Option) (BlobProvider, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return newS3Provider(ctx, KindS3, cfg, opts...)
}

func newS3Provider(ctx context.Context, name string, cfg platformconfig.ObjectStoreConfig, opts ...Option) (BlobProvider, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("%s: access key id and secret access key are required", name)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%s: bucket is required", name)
	}
	// Variant URLs are stored with the file, so they must not expire
	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("%s: public url is required", name)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		// R2 and MinIO reject the SDK's default CRC trailers
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	p := &s3Provider{
		name:        name,
		client:      client,
		presign:     s3.NewPresignClient(client),
		bucket:      cfg.Bucket,
		publicURL:   strings.TrimSuffix(cfg.PublicURL, "/"),
		transformer: NewImageTransformer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *s3Provider) Name() string { return p.name }

// PresignUpload generates a presigned PUT URL for a direct client upload
func (p *s3Provider) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error) {
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return nil, fmt.Errorf("%w: presign upload: %v", storageErrors.ErrProviderUnavailable, err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// ObjectExists issues a HEAD request for the key
func (p *s3Provider) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: head object: %v", storageErrors.ErrProviderUnavailable, err)
}

// ProbeObject reads the object's size from HEAD and its dimensions from the image header
func (p *s3Provider) ProbeObject(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storageErrors.ErrObjectNotFound
		}
		return nil, fmt.Errorf("%w: get object: %v", storageErrors.ErrProviderUnavailable, err)
	}
	defer out.Body.Close()

	cfg, format, err := decodeConfig(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storageErrors.ErrValidation, err)
	}

	info := &ObjectInfo{
		ContentType: aws.ToString(out.ContentType),
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
	if out.ContentLength != nil {
		info.ByteSize = *out.ContentLength
	}
	return info, nil
}

// MaterializeVariant downloads the source, transforms it and uploads the result
// under VariantKey. The source object is only read.
func (p *s3Provider) MaterializeVariant(ctx context.Context, sourceKey string, format models.Format, size models.SizeLabel) (*MaterializedVariant, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(sourceKey),
	})
	if err != nil {
		return nil, &VariantError{Step: StepReadSource, Err: err}
	}
	defer out.Body.Close()

	result, err := p.transformer.Transform(out.Body, format, size.Bound())
	if err != nil {
		if errors.Is(err, ErrImageTooLarge) {
			return nil, &VariantError{Step: StepImageTooLarge, Err: err}
		}
		return nil, &VariantError{Step: StepTransform, Err: err}
	}

	key := VariantKey(sourceKey, format, size)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(result.Data),
		ContentType:   aws.String(format.ContentType()),
		ContentLength: aws.Int64(int64(len(result.Data))),
	})
	if err != nil {
		return nil, &VariantError{Step: StepWriteVariant, Err: err}
	}

	url, err := p.ObjectURL(ctx, key)
	if err != nil {
		return nil, &VariantError{Step: StepResolveURL, Err: err}
	}

	return &MaterializedVariant{
		Key:      key,
		URL:      url,
		Width:    result.Width,
		Height:   result.Height,
		ByteSize: int64(len(result.Data)),
	}, nil
}

// DeleteObject removes the object. S3 deletes are idempotent, so existence is checked first.
func (p *s3Provider) DeleteObject(ctx context.Context, key string) error {
	exists, err := p.ObjectExists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return storageErrors.ErrObjectNotFound
	}

	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object: %v", storageErrors.ErrProviderUnavailable, err)
	}
	return nil
}

// ObjectURL returns the permanent public URL of an object
func (p *s3Provider) ObjectURL(_ context.Context, key string) (string, error) {
	return p.publicURL + "/" + key, nil
}

func isNotFound(err error) bool {
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
