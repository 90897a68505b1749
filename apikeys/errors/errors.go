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

// API key management errors
var (
	ErrValidation     = errors.New("validation failed")
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrPersistence    = errors.New("persistence failed")
)

// Error codes
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodePersistence  = "PERSISTENCE_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleServiceError maps service errors to HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Code: CodeValidation, Message: err.Error()})
	case errors.Is(err, ErrAPIKeyNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{Code: CodeNotFound, Message: "API key not found"})
	case errors.Is(err, ErrPersistence):
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Code: CodePersistence, Message: "Failed to store API key"})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Code: CodeInternal, Message: "An unexpected error occurred"})
	}
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Code: CodeValidation, Message: message})
}

// HandleUserContextError handles a missing caller with 401 Unauthorized
func HandleUserContextError(c *fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{Code: CodeUnauthorized, Message: "Authentication required"})
}
