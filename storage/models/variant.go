// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"strings"

	uuid "github.com/gofrs/uuid"
)

// Format is an encoded image format a variant can be produced in
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatAVIF Format = "avif"
	FormatWEBP Format = "webp"
)

// AllFormats lists the supported output formats
var AllFormats = []Format{FormatPNG, FormatJPEG, FormatAVIF, FormatWEBP}

// Valid reports whether f is a supported format
func (f Format) Valid() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatAVIF, FormatWEBP:
		return true
	}
	return false
}

// Extension returns the file extension used for objects in this format
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// FormatFromContentType maps a MIME type to a format
func FormatFromContentType(contentType string) (Format, bool) {
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch mime {
	case "image/png":
		return FormatPNG, true
	case "image/jpeg", "image/jpg":
		return FormatJPEG, true
	case "image/avif":
		return FormatAVIF, true
	case "image/webp":
		return FormatWEBP, true
	}
	return "", false
}

// SizeLabel names a size preset
type SizeLabel string

const (
	SizeSource  SizeLabel = "source"
	SizeMax300  SizeLabel = "max300"
	SizeMax800  SizeLabel = "max800"
	SizeMax1920 SizeLabel = "max1920"
)

// AllSizes lists the size presets from smallest bound to the original
var AllSizes = []SizeLabel{SizeMax300, SizeMax800, SizeMax1920, SizeSource}

// Valid reports whether s is a known preset
func (s SizeLabel) Valid() bool {
	switch s {
	case SizeSource, SizeMax300, SizeMax800, SizeMax1920:
		return true
	}
	return false
}

// Bound returns the maximum bounding dimension in pixels; zero means unbounded
func (s SizeLabel) Bound() int {
	switch s {
	case SizeMax300:
		return 300
	case SizeMax800:
		return 800
	case SizeMax1920:
		return 1920
	}
	return 0
}

// Variant is one derived representation of a file
type Variant struct {
	ID        uuid.UUID `db:"id" json:"-"`
	FileID    uuid.UUID `db:"file_id" json:"-"`
	Position  int       `db:"position" json:"-"`
	Format    Format    `db:"format" json:"format"`
	Size      SizeLabel `db:"size_label" json:"size"`
	ObjectKey string    `db:"object_key" json:"key"`
	URL       string    `db:"url" json:"url"`
	Width     int       `db:"width" json:"width"`
	Height    int       `db:"height" json:"height"`
	ByteSize  int64     `db:"byte_size" json:"byteSize"`
}

// FailedVariant reports a variant that could not be produced
type FailedVariant struct {
	Format Format    `json:"format"`
	Size   SizeLabel `json:"size"`
	Reason string    `json:"reason"`
}
