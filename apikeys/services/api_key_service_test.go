// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	apikeyErrors "github.com/qolzam/assetpipe/apikeys/errors"
	"github.com/qolzam/assetpipe/apikeys/models"
	"github.com/qolzam/assetpipe/internal/cache"
	"github.com/qolzam/assetpipe/internal/middleware/authapikey"
	"github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var rawKeyPattern = regexp.MustCompile(`^ik_[0-9a-f]{8}_[0-9a-f]{64}$`)

type keyFixture struct {
	repo   *MockRepository
	cache  *cache.MemoryCache
	svc    APIKeyService
	caller types.Caller
}

func newKeyFixture(t *testing.T) *keyFixture {
	t.Helper()
	repo := &MockRepository{}
	memory := cache.NewMemoryCache(&cache.CacheConfig{})
	t.Cleanup(func() { _ = memory.Close() })

	svc := NewAPIKeyService(repo, memory,
		&config.CacheConfig{Prefix: "test:"},
		&config.APIKeysConfig{CacheTTL: time.Minute, HashCost: bcrypt.MinCost},
	)
	return &keyFixture{
		repo:   repo,
		cache:  memory,
		svc:    svc,
		caller: types.Caller{UserID: uuid.Must(uuid.NewV4()), Strategy: types.StrategySession},
	}
}

// issueKey creates a key through the service and returns the stored row and the raw key
func (f *keyFixture) issueKey(t *testing.T, permissions ...string) (*models.APIKey, string) {
	t.Helper()
	var stored *models.APIKey
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.APIKey")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.APIKey) }).
		Return(nil).Once()

	issued, err := f.svc.CreateAPIKey(context.Background(), f.caller, &models.CreateAPIKeyRequest{
		Name:        "ci uploader",
		Permissions: permissions,
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	return stored, issued.Key
}

func TestCreateAPIKey_StoresHashOnly(t *testing.T) {
	f := newKeyFixture(t)

	stored, raw := f.issueKey(t, "delete", "read", "read")

	assert.Regexp(t, rawKeyPattern, raw)
	assert.Equal(t, f.caller.UserID, stored.OwnerUserID)
	assert.Equal(t, "ci uploader", stored.Name)
	assert.Equal(t, []string{"read", "delete"}, []string(stored.Permissions))
	assert.Contains(t, raw, "_"+stored.Prefix+"_")
	assert.NotContains(t, stored.SecretHash, raw[len("ik_")+prefixLength+1:])

	secret := raw[len("ik_")+prefixLength+1:]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(secret)))
}

func TestCreateAPIKey_Validation(t *testing.T) {
	f := newKeyFixture(t)

	cases := map[string]*models.CreateAPIKeyRequest{
		"nil request":        nil,
		"blank name":         {Name: "  ", Permissions: []string{"read"}},
		"no permissions":     {Name: "k"},
		"unknown permission": {Name: "k", Permissions: []string{"admin"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateAPIKey(context.Background(), f.caller, req)
			assert.ErrorIs(t, err, apikeyErrors.ErrValidation)
		})
	}
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolveAPIKey_CachesByPrefix(t *testing.T) {
	f := newKeyFixture(t)
	stored, raw := f.issueKey(t, "read", "write")
	f.repo.On("FindByPrefix", mock.Anything, stored.Prefix).Return(stored, nil).Once()

	for i := 0; i < 3; i++ {
		validated, err := f.svc.ResolveAPIKey(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, validated.KeyID)
		assert.Equal(t, f.caller.UserID, validated.OwnerID)
		assert.Equal(t, []types.Permission{types.PermissionRead, types.PermissionWrite}, validated.Permissions)
	}

	f.repo.AssertNumberOfCalls(t, "FindByPrefix", 1)
	exists, err := f.cache.Exists(context.Background(), "test:apikey:"+stored.Prefix)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResolveAPIKey_Rejections(t *testing.T) {
	f := newKeyFixture(t)
	stored, raw := f.issueKey(t, "read")

	t.Run("malformed keys never reach the repository", func(t *testing.T) {
		for _, bad := range []string{"", "ik_short_secret", "xx_" + raw[3:], raw + "_extra", "ik_zzzzzzzz_" + raw[12:]} {
			_, err := f.svc.ResolveAPIKey(context.Background(), bad)
			assert.ErrorIs(t, err, authapikey.ErrInvalidAPIKey, bad)
		}
		f.repo.AssertNotCalled(t, "FindByPrefix", mock.Anything, mock.Anything)
	})

	t.Run("wrong secret", func(t *testing.T) {
		f.repo.On("FindByPrefix", mock.Anything, stored.Prefix).Return(stored, nil).Once()
		forged := "ik_" + stored.Prefix + "_" + regexp.MustCompile(`.`).ReplaceAllString(raw[12:], "0")
		_, err := f.svc.ResolveAPIKey(context.Background(), forged)
		assert.ErrorIs(t, err, authapikey.ErrInvalidAPIKey)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		f.repo.On("FindByPrefix", mock.Anything, "0badcafe").Return(nil, apikeyErrors.ErrAPIKeyNotFound).Once()
		_, err := f.svc.ResolveAPIKey(context.Background(), "ik_0badcafe_"+raw[12:])
		assert.ErrorIs(t, err, authapikey.ErrInvalidAPIKey)
	})

	t.Run("repository failure is not an invalid key", func(t *testing.T) {
		f.repo.On("FindByPrefix", mock.Anything, "deadbeef").Return(nil, errors.New("connection refused")).Once()
		_, err := f.svc.ResolveAPIKey(context.Background(), "ik_deadbeef_"+raw[12:])
		require.Error(t, err)
		assert.NotErrorIs(t, err, authapikey.ErrInvalidAPIKey)
	})
}

func TestDeleteAPIKey_InvalidatesCache(t *testing.T) {
	f := newKeyFixture(t)
	stored, raw := f.issueKey(t, "read")
	ctx := context.Background()

	f.repo.On("FindByPrefix", mock.Anything, stored.Prefix).Return(stored, nil).Once()
	_, err := f.svc.ResolveAPIKey(ctx, raw)
	require.NoError(t, err)

	f.repo.On("FindByID", mock.Anything, stored.ID, f.caller.UserID).Return(stored, nil).Once()
	f.repo.On("Delete", mock.Anything, stored.ID, f.caller.UserID).Return(nil).Once()
	require.NoError(t, f.svc.DeleteAPIKey(ctx, f.caller, stored.ID))

	f.repo.On("FindByPrefix", mock.Anything, stored.Prefix).Return(nil, apikeyErrors.ErrAPIKeyNotFound).Once()
	_, err = f.svc.ResolveAPIKey(ctx, raw)
	assert.ErrorIs(t, err, authapikey.ErrInvalidAPIKey)
}

func TestDeleteAPIKey_NotOwned(t *testing.T) {
	f := newKeyFixture(t)
	id := uuid.Must(uuid.NewV4())
	f.repo.On("FindByID", mock.Anything, id, f.caller.UserID).Return(nil, apikeyErrors.ErrAPIKeyNotFound).Once()

	err := f.svc.DeleteAPIKey(context.Background(), f.caller, id)

	assert.ErrorIs(t, err, apikeyErrors.ErrAPIKeyNotFound)
	f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestRotateAPIKey_ReplacesKey(t *testing.T) {
	f := newKeyFixture(t)
	old, oldRaw := f.issueKey(t, "read", "delete")
	ctx := context.Background()

	f.repo.On("FindByPrefix", mock.Anything, old.Prefix).Return(old, nil).Once()
	_, err := f.svc.ResolveAPIKey(ctx, oldRaw)
	require.NoError(t, err)

	var replacement *models.APIKey
	f.repo.On("WithTransaction", mock.Anything).Return(nil).Once()
	f.repo.On("FindByID", mock.Anything, old.ID, f.caller.UserID).Return(old, nil).Once()
	f.repo.On("Delete", mock.Anything, old.ID, f.caller.UserID).Return(nil).Once()
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.APIKey")).
		Run(func(args mock.Arguments) { replacement = args.Get(1).(*models.APIKey) }).
		Return(nil).Once()

	issued, err := f.svc.RotateAPIKey(ctx, f.caller, old.ID)
	require.NoError(t, err)

	assert.Regexp(t, rawKeyPattern, issued.Key)
	assert.NotEqual(t, oldRaw, issued.Key)
	assert.NotEqual(t, old.ID, replacement.ID)
	assert.Equal(t, old.Name, replacement.Name)
	assert.Equal(t, []string(old.Permissions), []string(replacement.Permissions))

	exists, err := f.cache.Exists(ctx, "test:apikey:"+old.Prefix)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRotateAPIKey_AbortsOnFailure(t *testing.T) {
	f := newKeyFixture(t)
	id := uuid.Must(uuid.NewV4())

	f.repo.On("WithTransaction", mock.Anything).Return(nil).Once()
	f.repo.On("FindByID", mock.Anything, id, f.caller.UserID).Return(nil, apikeyErrors.ErrAPIKeyNotFound).Once()

	_, err := f.svc.RotateAPIKey(context.Background(), f.caller, id)

	assert.ErrorIs(t, err, apikeyErrors.ErrAPIKeyNotFound)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolveAPIKey_WithoutCache(t *testing.T) {
	repo := &MockRepository{}
	svc := NewAPIKeyService(repo, nil, nil, &config.APIKeysConfig{HashCost: bcrypt.MinCost})
	caller := types.Caller{UserID: uuid.Must(uuid.NewV4()), Strategy: types.StrategySession}

	var stored *models.APIKey
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.APIKey) }).
		Return(nil).Once()
	issued, err := svc.CreateAPIKey(context.Background(), caller, &models.CreateAPIKeyRequest{Name: "k", Permissions: []string{"write"}})
	require.NoError(t, err)

	repo.On("FindByPrefix", mock.Anything, stored.Prefix).Return(stored, nil).Twice()
	for i := 0; i < 2; i++ {
		_, err := svc.ResolveAPIKey(context.Background(), issued.Key)
		require.NoError(t, err)
	}
	repo.AssertNumberOfCalls(t, "FindByPrefix", 2)
}
