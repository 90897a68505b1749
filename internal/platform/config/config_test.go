// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoadFromMap tests configuration loading from an in-memory map.
func TestLoadFromMap(t *testing.T) {
	t.Parallel()

	t.Run("Loads all provided values correctly", func(t *testing.T) {
		t.Parallel()

		testEnv := map[string]string{
			"SESSION_PUBLIC_KEY":              "test-public-key",
			"SESSION_COOKIE_NAME":             "sid",
			"POSTGRES_HOST":                   "test-host",
			"POSTGRES_PORT":                   "5433",
			"POSTGRES_CONN_MAX_LIFETIME":      "321",
			"SERVER_PORT":                     "9090",
			"DEBUG":                           "true",
			"R2_BUCKET":                       "images",
			"R2_ACCESS_KEY_ID":                "ak",
			"R2_SECRET_ACCESS_KEY":            "sk",
			"R2_PUBLIC_URL":                   "https://cdn.example.com",
			"UPLOAD_URL_TTL":                  "5m",
			"UPLOAD_ALLOWED_CONTENT_TYPES":    "image/png, image/jpeg",
			"VARIANT_WORKERS":                 "8",
			"RATE_LIMIT_STORE":                "redis",
			"RATE_LIMIT_UPLOAD_CONFIRM_MAX":   "3",
			"RATE_LIMIT_UPLOAD_CONFIRM_BLOCK": "30s",
		}

		cfg, err := LoadFromMap(testEnv)
		require.NoError(t, err)

		require.Equal(t, "test-public-key", cfg.Session.PublicKey)
		require.Equal(t, "sid", cfg.Session.CookieName)
		require.Equal(t, "test-host", cfg.Database.Postgres.Host)
		require.Equal(t, 5433, cfg.Database.Postgres.Port)
		require.Equal(t, 321*time.Second, cfg.Database.Postgres.ConnMaxLifetime)
		require.Equal(t, 9090, cfg.Server.Port)
		require.True(t, cfg.Server.Debug)
		require.True(t, cfg.Storage.R2.Configured())
		require.False(t, cfg.Storage.S3.Configured())
		require.Equal(t, 5*time.Minute, cfg.Storage.UploadURLTTL)
		require.Equal(t, []string{"image/png", "image/jpeg"}, cfg.Storage.AllowedContentTypes)
		require.Equal(t, 8, cfg.Storage.VariantWorkers)
		require.Equal(t, "redis", cfg.RateLimits.Store)
		require.Equal(t, 3, cfg.RateLimits.UploadConfirm.Max)
		require.Equal(t, 30*time.Second, cfg.RateLimits.UploadConfirm.Block)
	})

	t.Run("Applies default rate limit policies", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFromMap(map[string]string{"SESSION_PUBLIC_KEY": "k"})
		require.NoError(t, err)

		require.Equal(t, RateLimitPolicyConfig{Path: "/auth/login", Max: 5, Window: time.Minute, Block: 15 * time.Minute}, cfg.RateLimits.Login)
		require.Equal(t, RateLimitPolicyConfig{Path: "/", Max: 100, Window: time.Minute, Block: time.Minute}, cfg.RateLimits.API)
		require.Equal(t, RateLimitPolicyConfig{Path: "/storage/upload/confirm", Max: 20, Window: time.Minute, Block: 5 * time.Minute}, cfg.RateLimits.UploadConfirm)
		require.Equal(t, 10*time.Minute, cfg.Storage.UploadURLTTL)
		require.Equal(t, "memory", cfg.Cache.Backend)
		require.Equal(t, 10, cfg.APIKeys.HashCost)
		require.Equal(t, 5*time.Minute, cfg.APIKeys.CacheTTL)
		require.Equal(t, int64(50<<20), cfg.Storage.MaxUploadBytes)
		require.Equal(t, int64(40_000_000), cfg.Storage.MaxPixels)
	})

	t.Run("Requires a public URL for configured providers", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"SESSION_PUBLIC_KEY":   "k",
			"S3_BUCKET":            "images",
			"S3_ACCESS_KEY_ID":     "ak",
			"S3_SECRET_ACCESS_KEY": "sk",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "S3_PUBLIC_URL is required")
	})

	t.Run("Rejects non-positive upload limits", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"SESSION_PUBLIC_KEY": "k",
			"UPLOAD_MAX_PIXELS":  "0",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "UPLOAD_MAX_PIXELS")
	})

	t.Run("Fails when session key is missing", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "SESSION_PUBLIC_KEY is required")
	})

	t.Run("Rejects unknown rate limit store", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"SESSION_PUBLIC_KEY": "k",
			"RATE_LIMIT_STORE":   "memcached",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "RATE_LIMIT_STORE")
	})

	t.Run("Rejects non-positive policy limits", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"SESSION_PUBLIC_KEY": "k",
			"RATE_LIMIT_API_MAX": "0",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "RATE_LIMIT_API")
	})
}
