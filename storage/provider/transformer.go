// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/avif"
	webpenc "github.com/gen2brain/webp"
	"github.com/qolzam/assetpipe/storage/models"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageTooLarge is returned for sources above ImageTransformer.MaxPixels
var ErrImageTooLarge = errors.New("image too large")

func init() {
	image.RegisterFormat("avif", "????ftypavif", avif.Decode, avif.DecodeConfig)
}

// Transformed is an encoded variant
type Transformed struct {
	Data   []byte
	Width  int
	Height int
}

// Transformer re-encodes an image into a format, fitting it inside bound
// pixels. A zero bound keeps the original dimensions.
type Transformer interface {
	Transform(src io.Reader, format models.Format, bound int) (*Transformed, error)
}

// ImageTransformer is the default Transformer
type ImageTransformer struct {
	JPEGQuality int
	WebPQuality int
	AVIFQuality int
	AVIFSpeed   int
	// MaxPixels rejects sources whose header declares more pixels. Zero disables the check.
	MaxPixels int64
}

// NewImageTransformer returns a transformer with default encoder settings
func NewImageTransformer() *ImageTransformer {
	return &ImageTransformer{
		JPEGQuality: 85,
		WebPQuality: 80,
		AVIFQuality: 60,
		AVIFSpeed:   8,
	}
}

// Transform implements Transformer
func (t *ImageTransformer) Transform(src io.Reader, format models.Format, bound int) (*Transformed, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if t.MaxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode source header: %w", err)
		}
		if int64(cfg.Width)*int64(cfg.Height) > t.MaxPixels {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, t.MaxPixels)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}

	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), bound)
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	switch format {
	case models.FormatPNG:
		err = png.Encode(&buf, img)
	case models.FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.JPEGQuality})
	case models.FormatWEBP:
		err = webpenc.Encode(&buf, img, webpenc.Options{Quality: t.WebPQuality})
	case models.FormatAVIF:
		err = avif.Encode(&buf, img, avif.Options{Quality: t.AVIFQuality, Speed: t.AVIFSpeed})
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	return &Transformed{Data: buf.Bytes(), Width: w, Height: h}, nil
}

// FitWithin scales (w, h) down to fit a bound x bound box, keeping the aspect
// ratio. Images already inside the box, or a zero bound, are returned as is.
func FitWithin(w, h, bound int) (int, int) {
	if bound <= 0 || (w <= bound && h <= bound) {
		return w, h
	}
	if w >= h {
		nh := h * bound / w
		if nh < 1 {
			nh = 1
		}
		return bound, nh
	}
	nw := w * bound / h
	if nw < 1 {
		nw = 1
	}
	return nw, bound
}

// decodeConfig reads only the image header
func decodeConfig(r io.Reader) (image.Config, models.Format, error) {
	cfg, name, err := image.DecodeConfig(r)
	if err != nil {
		return image.Config{}, "", err
	}
	format := models.Format(name)
	if !format.Valid() {
		return image.Config{}, "", fmt.Errorf("unsupported image format %q", name)
	}
	return cfg, format, nil
}
