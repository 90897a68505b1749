// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Storage pipeline errors
var (
	ErrValidation              = errors.New("validation failed")
	ErrProjectNotFound         = errors.New("project not found")
	ErrFileNotFound            = errors.New("file not found")
	ErrProviderUnavailable     = errors.New("storage provider unavailable")
	ErrObjectNotFound          = errors.New("object not found")
	ErrUploadNotFound          = errors.New("upload not found")
	ErrUploadExpired           = errors.New("upload slot expired")
	ErrVariantGenerationFailed = errors.New("variant generation failed")
	ErrPersistence             = errors.New("persistence failed")
	ErrDuplicateUpload         = errors.New("upload already committed")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrMissingCaller           = errors.New("missing caller")
)

// Error codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeProjectNotFound     = "PROJECT_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeUploadNotFound      = "UPLOAD_NOT_FOUND"
	CodeUploadExpired       = "UPLOAD_EXPIRED"
	CodePersistence         = "PERSISTENCE_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// HandleServiceError maps service errors to HTTP responses.
// Only validation details are echoed; other causes may carry internal data.
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrValidation):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    CodeValidation,
			Message: err.Error(),
		})
	case errors.Is(err, ErrPermissionDenied):
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Code:    CodePermissionDenied,
			Message: "Permission denied",
		})
	case errors.Is(err, ErrMissingCaller):
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Code:    CodeUnauthorized,
			Message: "Authentication required",
		})
	case errors.Is(err, ErrProjectNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeProjectNotFound,
			Message: "Project not found",
		})
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrObjectNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeNotFound,
			Message: "File not found",
		})
	case errors.Is(err, ErrUploadNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeUploadNotFound,
			Message: "No uploaded object exists for this key",
		})
	case errors.Is(err, ErrUploadExpired):
		return c.Status(http.StatusGone).JSON(ErrorResponse{
			Code:    CodeUploadExpired,
			Message: "Upload slot has expired",
		})
	case errors.Is(err, ErrProviderUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Code:    CodeProviderUnavailable,
			Message: "Storage provider unavailable",
		})
	case errors.Is(err, ErrPersistence):
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodePersistence,
			Message: "Failed to persist upload",
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodeInternal,
			Message: "An unexpected error occurred",
		})
	}
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeValidation,
		Message: message,
	})
}

// HandleUserContextError handles a missing caller with 401 Unauthorized
func HandleUserContextError(c *fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Code:    CodeUnauthorized,
		Message: "Authentication required",
	})
}
