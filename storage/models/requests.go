// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// CreateProjectRequest is the payload for creating a project
type CreateProjectRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// ProvidersResponse lists the configured storage providers
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// PresignRequest asks for an upload slot
type PresignRequest struct {
	ProjectID   uuid.UUID `json:"projectId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
}

// PresignResponse carries the presigned upload slot
type PresignResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ClientMetadata is what the client claims about the uploaded image
type ClientMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ConfirmRequest asks the server to ingest an uploaded object
type ConfirmRequest struct {
	Key          string          `json:"key"`
	Formats      []Format        `json:"formats"`
	Sizes        []SizeLabel     `json:"sizes"`
	SaveOriginal bool            `json:"saveOriginal"`
	Metadata     *ClientMetadata `json:"metadata,omitempty"`
}

// UploadState is the terminal state of a confirmation
type UploadState string

const (
	StateCommitted          UploadState = "committed"
	StatePartiallyCommitted UploadState = "partially_committed"
)

// ConfirmResponse is the outcome of a confirmation
type ConfirmResponse struct {
	State          UploadState     `json:"state"`
	File           *File           `json:"file"`
	Variants       []Variant       `json:"variants"`
	FailedVariants []FailedVariant `json:"failedVariants"`
}

// PageQuery is decoded from the query string for paginated lists
type PageQuery struct {
	Limit  int `schema:"limit"`
	Offset int `schema:"offset"`
}

// FileListResponse is a page of files
type FileListResponse struct {
	Files  []*File `json:"files"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
