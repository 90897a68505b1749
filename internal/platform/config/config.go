package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the service configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Session    SessionConfig    `json:"session"`
	Storage    StorageConfig    `json:"storage"`
	Cache      CacheConfig      `json:"cache"`
	RateLimits RateLimitsConfig `json:"rateLimits"`
	APIKeys    APIKeysConfig    `json:"apiKeys"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	BaseRoute string `json:"baseRoute"`
	WebDomain string `json:"webDomain"`
	Debug     bool   `json:"debug"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Postgres      PostgreSQLConfig `json:"postgres"`
	RunMigrations bool             `json:"runMigrations"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	SSLMode         string        `json:"sslMode"`
	ConnectTimeout  int           `json:"connectTimeout"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}

// SessionConfig holds the verification side of browser sessions.
// Tokens are issued by the login service; this service only verifies them.
type SessionConfig struct {
	PublicKey  string `json:"publicKey"`
	CookieName string `json:"cookieName"`
}

// ObjectStoreConfig describes one S3-compatible backend
type ObjectStoreConfig struct {
	AccountID       string `json:"accountId"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"-"`
	Bucket          string `json:"bucket"`
	PublicURL       string `json:"publicUrl"`
}

// Configured reports whether enough credentials are present to talk to the backend
func (o ObjectStoreConfig) Configured() bool {
	return o.Bucket != "" && o.AccessKeyID != "" && o.SecretAccessKey != ""
}

// StorageConfig holds object storage and upload pipeline configuration
type StorageConfig struct {
	R2                  ObjectStoreConfig `json:"r2"`
	S3                  ObjectStoreConfig `json:"s3"`
	UploadURLTTL        time.Duration     `json:"uploadUrlTtl"`
	AllowedContentTypes []string          `json:"allowedContentTypes"`
	VariantWorkers      int               `json:"variantWorkers"`
	DeleteUnusedSource  bool              `json:"deleteUnusedSource"`
	// Uploads above either limit are rejected before any variant is decoded
	MaxUploadBytes int64 `json:"maxUploadBytes"`
	MaxPixels      int64 `json:"maxPixels"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Backend         string        `json:"backend"`
	Prefix          string        `json:"prefix"`
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	Redis           RedisConfig   `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string        `json:"address"`
	Password     string        `json:"-"`
	Database     int           `json:"database"`
	PoolSize     int           `json:"poolSize"`
	MinIdleConns int           `json:"minIdleConns"`
	MaxConnAge   time.Duration `json:"maxConnAge"`
}

// RateLimitPolicyConfig holds one rate limit policy
type RateLimitPolicyConfig struct {
	Path   string        `json:"path"`
	Max    int           `json:"max"`
	Window time.Duration `json:"window"`
	Block  time.Duration `json:"block"`
}

// RateLimitsConfig holds the rate limit policy table
type RateLimitsConfig struct {
	Enabled       bool                  `json:"enabled"`
	Store         string                `json:"store"`
	Login         RateLimitPolicyConfig `json:"login"`
	API           RateLimitPolicyConfig `json:"api"`
	UploadConfirm RateLimitPolicyConfig `json:"uploadConfirm"`
}

// APIKeysConfig holds API key resolution settings
type APIKeysConfig struct {
	CacheTTL time.Duration `json:"cacheTtl"`
	HashCost int           `json:"hashCost"`
}

var defaultContentTypes = "image/png,image/jpeg,image/webp,image/avif"

// LoadFromEnv loads configuration from the environment.
// Precedence:
// 1. Explicit environment variables
// 2. Values from the .env file (if it exists)
// 3. Hardcoded defaults
func LoadFromEnv() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}

	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return build(func(key string) (string, bool) {
		value := os.Getenv(key)
		return value, value != ""
	})
}

// LoadFromMap loads configuration from an in-memory map.
// This is the primary helper for testing configuration logic in isolation
// without manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return build(func(key string) (string, bool) {
		value, exists := envMap[key]
		return value, exists
	})
}

func build(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	config := &Config{
		Server: ServerConfig{
			Host:      r.getString("HOST", "0.0.0.0"),
			Port:      r.getInt("SERVER_PORT", 8080),
			BaseRoute: r.getString("BASE_ROUTE", "/api"),
			WebDomain: r.getString("WEB_DOMAIN", "http://localhost:3000"),
			Debug:     r.getBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			RunMigrations: r.getBool("DB_RUN_MIGRATIONS", true),
			Postgres: PostgreSQLConfig{
				Host:            r.getString("POSTGRES_HOST", "localhost"),
				Port:            r.getInt("POSTGRES_PORT", 5432),
				Username:        r.getString("POSTGRES_USERNAME", ""),
				Password:        r.getString("POSTGRES_PASSWORD", ""),
				Database:        r.getString("POSTGRES_DATABASE", "assets"),
				SSLMode:         r.getString("POSTGRES_SSL_MODE", "disable"),
				ConnectTimeout:  r.getInt("POSTGRES_CONNECT_TIMEOUT", 10),
				MaxOpenConns:    r.getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    r.getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(r.getInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
			},
		},
		Session: SessionConfig{
			PublicKey:  r.getString("SESSION_PUBLIC_KEY", ""),
			CookieName: r.getString("SESSION_COOKIE_NAME", "session"),
		},
		Storage: StorageConfig{
			R2: ObjectStoreConfig{
				AccountID:       r.getString("R2_ACCOUNT_ID", ""),
				Region:          r.getString("R2_REGION", "auto"),
				Endpoint:        r.getString("R2_ENDPOINT", ""),
				AccessKeyID:     r.getString("R2_ACCESS_KEY_ID", ""),
				SecretAccessKey: r.getString("R2_SECRET_ACCESS_KEY", ""),
				Bucket:          r.getString("R2_BUCKET", ""),
				PublicURL:       r.getString("R2_PUBLIC_URL", ""),
			},
			S3: ObjectStoreConfig{
				Region:          r.getString("S3_REGION", "us-east-1"),
				Endpoint:        r.getString("S3_ENDPOINT", ""),
				AccessKeyID:     r.getString("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: r.getString("S3_SECRET_ACCESS_KEY", ""),
				Bucket:          r.getString("S3_BUCKET", ""),
				PublicURL:       r.getString("S3_PUBLIC_URL", ""),
			},
			UploadURLTTL:        r.getDuration("UPLOAD_URL_TTL", 10*time.Minute),
			AllowedContentTypes: r.getList("UPLOAD_ALLOWED_CONTENT_TYPES", defaultContentTypes),
			VariantWorkers:      r.getInt("VARIANT_WORKERS", 4),
			DeleteUnusedSource:  r.getBool("UPLOAD_DELETE_UNUSED_SOURCE", true),
			MaxUploadBytes:      int64(r.getInt("UPLOAD_MAX_BYTES", 50<<20)),
			MaxPixels:           int64(r.getInt("UPLOAD_MAX_PIXELS", 40_000_000)),
		},
		Cache: CacheConfig{
			Enabled:         r.getBool("CACHE_ENABLED", true),
			Backend:         r.getString("CACHE_BACKEND", "memory"),
			Prefix:          r.getString("CACHE_PREFIX", "assets:"),
			TTL:             r.getDuration("CACHE_TTL", 1*time.Hour),
			CleanupInterval: r.getDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
			Redis: RedisConfig{
				Address:      r.getString("REDIS_ADDRESS", "localhost:6379"),
				Password:     r.getString("REDIS_PASSWORD", ""),
				Database:     r.getInt("REDIS_DATABASE", 0),
				PoolSize:     r.getInt("REDIS_POOL_SIZE", 10),
				MinIdleConns: r.getInt("REDIS_MIN_IDLE_CONNS", 5),
				MaxConnAge:   time.Duration(r.getInt("REDIS_MAX_CONN_AGE", 300)) * time.Second,
			},
		},
		RateLimits: RateLimitsConfig{
			Enabled: r.getBool("RATE_LIMIT_ENABLED", true),
			Store:   r.getString("RATE_LIMIT_STORE", "memory"),
			Login: RateLimitPolicyConfig{
				Path:   r.getString("RATE_LIMIT_LOGIN_PATH", "/auth/login"),
				Max:    r.getInt("RATE_LIMIT_LOGIN_MAX", 5),
				Window: r.getDuration("RATE_LIMIT_LOGIN_WINDOW", 60*time.Second),
				Block:  r.getDuration("RATE_LIMIT_LOGIN_BLOCK", 15*time.Minute),
			},
			API: RateLimitPolicyConfig{
				Path:   r.getString("RATE_LIMIT_API_PATH", "/"),
				Max:    r.getInt("RATE_LIMIT_API_MAX", 100),
				Window: r.getDuration("RATE_LIMIT_API_WINDOW", 60*time.Second),
				Block:  r.getDuration("RATE_LIMIT_API_BLOCK", 60*time.Second),
			},
			UploadConfirm: RateLimitPolicyConfig{
				Path:   r.getString("RATE_LIMIT_UPLOAD_CONFIRM_PATH", "/storage/upload/confirm"),
				Max:    r.getInt("RATE_LIMIT_UPLOAD_CONFIRM_MAX", 20),
				Window: r.getDuration("RATE_LIMIT_UPLOAD_CONFIRM_WINDOW", 60*time.Second),
				Block:  r.getDuration("RATE_LIMIT_UPLOAD_CONFIRM_BLOCK", 5*time.Minute),
			},
		},
		APIKeys: APIKeysConfig{
			CacheTTL: r.getDuration("API_KEY_CACHE_TTL", 5*time.Minute),
			HashCost: r.getInt("API_KEY_HASH_COST", 10),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.Session.PublicKey) == "" {
		errors = append(errors, "SESSION_PUBLIC_KEY is required")
	}

	validStores := []string{"memory", "redis"}
	if !contains(validStores, c.RateLimits.Store) {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_STORE must be one of: %s", strings.Join(validStores, ", ")))
	}
	if !contains(validStores, c.Cache.Backend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validStores, ", ")))
	}

	policies := map[string]RateLimitPolicyConfig{
		"LOGIN":          c.RateLimits.Login,
		"API":            c.RateLimits.API,
		"UPLOAD_CONFIRM": c.RateLimits.UploadConfirm,
	}
	for name, p := range policies {
		if p.Max <= 0 || p.Window <= 0 || p.Block < 0 {
			errors = append(errors, fmt.Sprintf("RATE_LIMIT_%s requires positive MAX and WINDOW", name))
		}
		if !strings.HasPrefix(p.Path, "/") {
			errors = append(errors, fmt.Sprintf("RATE_LIMIT_%s_PATH must start with /", name))
		}
	}

	if c.Storage.UploadURLTTL <= 0 {
		errors = append(errors, "UPLOAD_URL_TTL must be positive")
	}
	if c.Storage.VariantWorkers <= 0 {
		errors = append(errors, "VARIANT_WORKERS must be positive")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		errors = append(errors, "UPLOAD_MAX_BYTES must be positive")
	}
	if c.Storage.MaxPixels <= 0 {
		errors = append(errors, "UPLOAD_MAX_PIXELS must be positive")
	}
	if c.Storage.R2.Configured() && c.Storage.R2.PublicURL == "" {
		errors = append(errors, "R2_PUBLIC_URL is required when R2 is configured")
	}
	if c.Storage.S3.Configured() && c.Storage.S3.PublicURL == "" {
		errors = append(errors, "S3_PUBLIC_URL is required when S3 is configured")
	}
	if c.APIKeys.HashCost < 4 || c.APIKeys.HashCost > 31 {
		errors = append(errors, "API_KEY_HASH_COST must be between 4 and 31")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// reader resolves typed values from a lookup function, falling back to defaults
type reader struct {
	lookup func(string) (string, bool)
}

func (r reader) getString(key, defaultValue string) string {
	if value, ok := r.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (r reader) getInt(key string, defaultValue int) int {
	if value, ok := r.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (r reader) getBool(key string, defaultValue bool) bool {
	if value, ok := r.lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (r reader) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := r.lookup(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func (r reader) getList(key, defaultValue string) []string {
	raw := r.getString(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
