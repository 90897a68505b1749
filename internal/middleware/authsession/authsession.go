package authsession

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qolzam/assetpipe/internal/types"
)

const defaultClaimKey = "claim"

// ErrInvalidSession is returned for any token that does not yield a caller
var ErrInvalidSession = errors.New("invalid session")

// Config defines the config for the session middleware.
type Config struct {
	// The EC public key (PEM) for validating ES256 tokens.
	PublicKey string
	// The claim key where the user data is stored.
	ClaimKey string
	// Cookie carrying the session token for browser clients.
	CookieName string
}

// Verifier checks session tokens issued by the login service
type Verifier struct {
	key        *ecdsa.PublicKey
	claimKey   string
	cookieName string
	parser     *jwt.Parser
}

// NewVerifier parses the public key once on startup.
func NewVerifier(cfg Config) (*Verifier, error) {
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	if cfg.ClaimKey == "" {
		cfg.ClaimKey = defaultClaimKey
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	return &Verifier{
		key:        key,
		claimKey:   cfg.ClaimKey,
		cookieName: cfg.CookieName,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()})),
	}, nil
}

// TokenFromRequest returns the bearer token, falling back to the session cookie
func (v *Verifier) TokenFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, types.BearerPrefix)); token != "" {
			return token
		}
	}
	return c.Cookies(v.cookieName)
}

// Verify validates a token and returns the caller it identifies.
// It does not write to the response so it can be composed by other middleware.
func (v *Verifier) Verify(tokenString string) (types.Caller, error) {
	var caller types.Caller

	token, err := v.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return caller, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return caller, ErrInvalidSession
	}

	claimData, ok := claims[v.claimKey].(map[string]interface{})
	if !ok {
		return caller, fmt.Errorf("%w: invalid token claim format", ErrInvalidSession)
	}

	return mapToCaller(claimData)
}

// mapToCaller converts claim data to a session caller
func mapToCaller(claimData map[string]interface{}) (types.Caller, error) {
	caller := types.Caller{Strategy: types.StrategySession}

	userIDStr, ok := claimData["uid"].(string)
	if !ok {
		return caller, fmt.Errorf("%w: missing uid in claim", ErrInvalidSession)
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return caller, fmt.Errorf("%w: invalid user ID", ErrInvalidSession)
	}
	caller.UserID = userID

	if username, ok := claimData["username"].(string); ok {
		caller.Username = username
	}

	return caller, nil
}

// Unauthorized writes the standard 401 body
func Unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}

// New creates a middleware that only admits session callers.
func New(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := v.TokenFromRequest(c)
		if tokenString == "" {
			return Unauthorized(c, "Missing session")
		}

		caller, err := v.Verify(tokenString)
		if err != nil {
			return Unauthorized(c, "Invalid or expired session")
		}

		c.Locals(types.UserCtxName, caller)
		return c.Next()
	}
}
