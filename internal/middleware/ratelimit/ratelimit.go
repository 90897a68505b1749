// Package ratelimit provides fixed-window rate limiting with block cooldowns.
// Each request is matched to one policy by path; counters are kept per
// (client identity, policy) in a pluggable Store.
package ratelimit

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	"github.com/qolzam/assetpipe/internal/types"
)

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Table maps request paths to policies
	Table *Table

	// Store keeps the counters
	Store Store

	// PathPrefix is stripped from the request path before policy matching
	PathPrefix string

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// KeyGenerator identifies the client (default: client IP)
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached defines the response when rate limit is exceeded
	LimitReached func(c *fiber.Ctx, policy Policy, d Decision) error
}

// configDefault sets default configuration values
func configDefault(config Config) Config {
	if config.Store == nil {
		config.Store = NewMemoryStore()
	}
	if config.Table == nil {
		config.Table = NewTable()
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}
	if config.LimitReached == nil {
		config.LimitReached = defaultLimitReached
	}
	return config
}

func defaultLimitReached(c *fiber.Ctx, policy Policy, d Decision) error {
	retryAfter := retryAfterSeconds(d)
	c.Set(types.HeaderRetryAfter, strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"code":       "RATE_LIMITED",
		"message":    "Too many requests. Please try again later.",
		"retryAfter": retryAfter,
	})
}

func retryAfterSeconds(d Decision) int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// New creates a new rate limiting middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		path := c.Path()
		if cfg.PathPrefix != "" {
			path = strings.TrimPrefix(path, cfg.PathPrefix)
			if path == "" {
				path = "/"
			}
		}

		policy, ok := cfg.Table.Resolve(path)
		if !ok {
			return c.Next()
		}

		identity := cfg.KeyGenerator(c)
		decision, err := cfg.Store.Hit(c.UserContext(), policy.Name+":"+identity, policy)
		if err != nil {
			// Counter store outages must not take the API down with them.
			log.ErrorWithContext(c.UserContext(), "[RateLimit] store error for policy %s: %v", policy.Name, err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(policy.Max))
		if decision.Allowed {
			c.Set("X-RateLimit-Remaining", strconv.Itoa(policy.Max-decision.Count))
			return c.Next()
		}

		c.Set("X-RateLimit-Remaining", "0")
		log.WarnWithContext(c.UserContext(), "[RateLimit] %s limit exceeded for %s, retry after %s", policy.Name, identity, decision.RetryAfter)
		return cfg.LimitReached(c, policy, decision)
	}
}
