package types

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

// HTTP Header Constants
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAPIKey        = "X-API-Key"
	HeaderRetryAfter    = "Retry-After"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
	UserCtxName  = "caller"
)

// Permission is a scope an API key may carry
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
)

// AllPermissions lists every permission in canonical order
var AllPermissions = []Permission{PermissionRead, PermissionWrite, PermissionDelete}

// ParsePermission converts a raw string into a known permission
func ParsePermission(raw string) (Permission, bool) {
	for _, p := range AllPermissions {
		if string(p) == raw {
			return p, true
		}
	}
	return "", false
}

// AuthStrategy identifies how a caller was authenticated
type AuthStrategy string

const (
	StrategySession AuthStrategy = "session"
	StrategyAPIKey  AuthStrategy = "apikey"
)

// Caller is the resolved identity handlers operate on, regardless of strategy
type Caller struct {
	UserID      uuid.UUID    `json:"userId"`
	Username    string       `json:"username,omitempty"`
	Strategy    AuthStrategy `json:"strategy"`
	APIKeyID    uuid.UUID    `json:"apiKeyId,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Can reports whether the caller holds the permission.
// Session callers are fully privileged over their own resources.
func (c Caller) Can(p Permission) bool {
	if c.Strategy == StrategySession {
		return true
	}
	for _, held := range c.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// CallerFromCtx returns the caller stored by the auth middleware
func CallerFromCtx(c *fiber.Ctx) (Caller, bool) {
	caller, ok := c.Locals(UserCtxName).(Caller)
	return caller, ok
}
