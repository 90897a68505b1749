// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/gofrs/uuid"
	apikeyErrors "github.com/qolzam/assetpipe/apikeys/errors"
	"github.com/qolzam/assetpipe/apikeys/models"
	"github.com/qolzam/assetpipe/apikeys/repository"
	"github.com/qolzam/assetpipe/internal/cache"
	"github.com/qolzam/assetpipe/internal/middleware/authapikey"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	"github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/types"
	"golang.org/x/crypto/bcrypt"
)

const maxKeyNameLength = 100

// cachedKey is what the resolver keeps in cache per prefix
type cachedKey struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"ownerUserId"`
	SecretHash  string    `json:"secretHash"`
	Permissions []string  `json:"permissions"`
}

type apiKeyService struct {
	repo        repository.Repository
	cache       cache.Cache
	cachePrefix string
	cacheTTL    time.Duration
	hashCost    int
	now         func() time.Time
}

var _ APIKeyService = (*apiKeyService)(nil)

// NewAPIKeyService creates the API key service. keyCache may be nil, in which case
// every resolution goes to the repository.
func NewAPIKeyService(repo repository.Repository, keyCache cache.Cache, cacheCfg *config.CacheConfig, keysCfg *config.APIKeysConfig) APIKeyService {
	s := &apiKeyService{
		repo:     repo,
		cache:    keyCache,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	if cacheCfg != nil {
		s.cachePrefix = cacheCfg.Prefix
	}
	if keysCfg != nil {
		s.cacheTTL = keysCfg.CacheTTL
		if keysCfg.HashCost > 0 {
			s.hashCost = keysCfg.HashCost
		}
	}
	return s
}

// CreateAPIKey validates the request and stores a hashed key
func (s *apiKeyService) CreateAPIKey(ctx context.Context, caller types.Caller, req *models.CreateAPIKeyRequest) (*models.IssuedAPIKey, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", apikeyErrors.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apikeyErrors.ErrValidation)
	}
	if len(name) > maxKeyNameLength {
		return nil, fmt.Errorf("%w: name must be at most %d characters", apikeyErrors.ErrValidation, maxKeyNameLength)
	}
	permissions, err := normalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	issued, err := s.issue(ctx, caller.UserID, name, permissions)
	if err != nil {
		return nil, err
	}
	log.InfoWithContext(ctx, "[APIKeys] created key %s for user %s", issued.APIKey.Prefix, caller.UserID)
	return issued, nil
}

// ListAPIKeys returns the caller's keys
func (s *apiKeyService) ListAPIKeys(ctx context.Context, caller types.Caller) ([]*models.APIKey, error) {
	return s.repo.ListByOwner(ctx, caller.UserID)
}

// DeleteAPIKey removes the key and drops it from cache
func (s *apiKeyService) DeleteAPIKey(ctx context.Context, caller types.Caller, keyID uuid.UUID) error {
	key, err := s.repo.FindByID(ctx, keyID, caller.UserID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, keyID, caller.UserID); err != nil {
		return err
	}
	s.invalidate(ctx, key.Prefix)
	log.InfoWithContext(ctx, "[APIKeys] deleted key %s", key.Prefix)
	return nil
}

// RotateAPIKey deletes the old key and issues its replacement in one transaction
func (s *apiKeyService) RotateAPIKey(ctx context.Context, caller types.Caller, keyID uuid.UUID) (*models.IssuedAPIKey, error) {
	var (
		issued    *models.IssuedAPIKey
		oldPrefix string
	)
	err := s.repo.WithTransaction(ctx, func(txCtx context.Context) error {
		old, err := s.repo.FindByID(txCtx, keyID, caller.UserID)
		if err != nil {
			return err
		}
		oldPrefix = old.Prefix
		if err := s.repo.Delete(txCtx, keyID, caller.UserID); err != nil {
			return err
		}
		issued, err = s.issue(txCtx, caller.UserID, old.Name, []string(old.Permissions))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, oldPrefix)
	log.InfoWithContext(ctx, "[APIKeys] rotated key %s to %s", oldPrefix, issued.APIKey.Prefix)
	return issued, nil
}

func (s *apiKeyService) issue(ctx context.Context, ownerID uuid.UUID, name string, permissions []string) (*models.IssuedAPIKey, error) {
	raw, prefix, secret, err := generateKey()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	key := &models.APIKey{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerUserID: ownerID,
		Name:        name,
		Prefix:      prefix,
		SecretHash:  string(hash),
		Permissions: permissions,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}
	return &models.IssuedAPIKey{APIKey: key, Key: raw}, nil
}

// ResolveAPIKey verifies a raw key against its stored hash.
// Malformed, unknown and mismatched keys all yield ErrInvalidAPIKey.
func (s *apiKeyService) ResolveAPIKey(ctx context.Context, rawKey string) (*authapikey.ValidatedAPIKey, error) {
	prefix, secret, ok := splitKey(rawKey)
	if !ok {
		return nil, authapikey.ErrInvalidAPIKey
	}

	entry, err := s.lookup(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(entry.SecretHash), []byte(secret)) != nil {
		return nil, authapikey.ErrInvalidAPIKey
	}

	permissions := make([]types.Permission, 0, len(entry.Permissions))
	for _, raw := range entry.Permissions {
		if p, ok := types.ParsePermission(raw); ok {
			permissions = append(permissions, p)
		}
	}
	return &authapikey.ValidatedAPIKey{
		KeyID:       entry.ID,
		OwnerID:     entry.OwnerUserID,
		Permissions: permissions,
	}, nil
}

func (s *apiKeyService) lookup(ctx context.Context, prefix string) (*cachedKey, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, s.cacheKey(prefix)); err == nil {
			var entry cachedKey
			if json.Unmarshal(data, &entry) == nil {
				return &entry, nil
			}
		} else if !errors.Is(err, cache.ErrKeyNotFound) {
			log.WarnWithContext(ctx, "[APIKeys] cache read failed: %v", err)
		}
	}

	key, err := s.repo.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, apikeyErrors.ErrAPIKeyNotFound) {
			return nil, authapikey.ErrInvalidAPIKey
		}
		return nil, err
	}

	entry := &cachedKey{
		ID:          key.ID,
		OwnerUserID: key.OwnerUserID,
		SecretHash:  key.SecretHash,
		Permissions: []string(key.Permissions),
	}
	if s.cache != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(entry); err == nil {
			if err := s.cache.Set(ctx, s.cacheKey(prefix), data, s.cacheTTL); err != nil {
				log.WarnWithContext(ctx, "[APIKeys] cache write failed: %v", err)
			}
		}
	}
	return entry, nil
}

func (s *apiKeyService) invalidate(ctx context.Context, prefix string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(prefix)); err != nil {
		log.WarnWithContext(ctx, "[APIKeys] cache invalidation failed for %s: %v", prefix, err)
	}
}

func (s *apiKeyService) cacheKey(prefix string) string {
	return s.cachePrefix + "apikey:" + prefix
}

// normalizePermissions validates, dedupes and orders permissions canonically
func normalizePermissions(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: at least one permission is required", apikeyErrors.ErrValidation)
	}
	held := make(map[types.Permission]bool, len(raw))
	for _, r := range raw {
		p, ok := types.ParsePermission(strings.TrimSpace(r))
		if !ok {
			return nil, fmt.Errorf("%w: unknown permission %q", apikeyErrors.ErrValidation, r)
		}
		held[p] = true
	}
	out := make([]string, 0, len(held))
	for _, p := range types.AllPermissions {
		if held[p] {
			out = append(out, string(p))
		}
	}
	return out, nil
}
