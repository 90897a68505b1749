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
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/qolzam/assetpipe/storage/provider"
	"golang.org/x/sync/errgroup"
)

// VariantSpec is one (format, size) cell of the requested matrix
type VariantSpec struct {
	Format models.Format
	Size   models.SizeLabel
}

// PlanVariants expands formats x sizes into the variants worth producing for
// an original of the given dimensions. A preset whose bound does not shrink
// the original collapses into the source size of that format. The source
// size in the original's own format is the original object itself and is
// only listed when saveOriginal is set or a collapsed preset asked for it.
func PlanVariants(formats []models.Format, sizes []models.SizeLabel, saveOriginal bool, original models.Format, width, height int) []VariantSpec {
	longest := width
	if height > longest {
		longest = height
	}

	seen := make(map[VariantSpec]bool)
	plan := make([]VariantSpec, 0, len(formats)*len(sizes)+1)
	add := func(spec VariantSpec) {
		if !seen[spec] {
			seen[spec] = true
			plan = append(plan, spec)
		}
	}

	if saveOriginal {
		add(VariantSpec{Format: original, Size: models.SizeSource})
	}

	for _, format := range formats {
		for _, size := range sizes {
			if bound := size.Bound(); bound == 0 || bound >= longest {
				size = models.SizeSource
			}
			add(VariantSpec{Format: format, Size: size})
		}
	}
	return plan
}

// VariantEngine materializes a plan against a provider with bounded parallelism
type VariantEngine struct {
	workers int
}

// NewVariantEngine creates an engine running at most workers provider calls at once
func NewVariantEngine(workers int) *VariantEngine {
	if workers <= 0 {
		workers = 1
	}
	return &VariantEngine{workers: workers}
}

type variantResult struct {
	variant *models.Variant
	failure *models.FailedVariant
}

// Generate runs every spec independently; one failing spec never cancels the others.
// Successes and failures are returned in plan order.
func (e *VariantEngine) Generate(ctx context.Context, blob provider.BlobProvider, source string, original *provider.ObjectInfo, plan []VariantSpec) ([]models.Variant, []models.FailedVariant) {
	results := make([]variantResult, len(plan))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, spec := range plan {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = e.generateOne(ctx, blob, source, original, spec)
			return nil
		})
	}
	_ = g.Wait()

	variants := make([]models.Variant, 0, len(plan))
	failed := make([]models.FailedVariant, 0)
	for _, r := range results {
		if r.failure != nil {
			failed = append(failed, *r.failure)
			continue
		}
		variants = append(variants, *r.variant)
	}
	return variants, failed
}

func (e *VariantEngine) generateOne(ctx context.Context, blob provider.BlobProvider, source string, original *provider.ObjectInfo, spec VariantSpec) variantResult {
	fail := func(err error) variantResult {
		log.WarnWithContext(ctx, "variant %s/%s of %s failed: %v", spec.Format, spec.Size, source, err)
		return variantResult{failure: &models.FailedVariant{Format: spec.Format, Size: spec.Size, Reason: failureReason(err)}}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if spec.Size == models.SizeSource && spec.Format == original.Format {
		url, err := blob.ObjectURL(ctx, source)
		if err != nil {
			return fail(&provider.VariantError{Step: provider.StepResolveURL, Err: err})
		}
		return variantResult{variant: &models.Variant{
			ID:        uuid.Must(uuid.NewV4()),
			Format:    spec.Format,
			Size:      spec.Size,
			ObjectKey: source,
			URL:       url,
			Width:     original.Width,
			Height:    original.Height,
			ByteSize:  original.ByteSize,
		}}
	}

	out, err := blob.MaterializeVariant(ctx, source, spec.Format, spec.Size)
	if err != nil {
		return fail(err)
	}
	return variantResult{variant: &models.Variant{
		ID:        uuid.Must(uuid.NewV4()),
		Format:    spec.Format,
		Size:      spec.Size,
		ObjectKey: out.Key,
		URL:       out.URL,
		Width:     out.Width,
		Height:    out.Height,
		ByteSize:  out.ByteSize,
	}}
}

// failureReason maps an error to the short reason stored with the file.
// Provider error text stays in the logs.
func failureReason(err error) string {
	var ve *provider.VariantError
	switch {
	case errors.As(err, &ve):
		return ve.Step
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "variant generation failed"
	}
}
