// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package storage

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/assetpipe/internal/middleware/authapikey"
	"github.com/qolzam/assetpipe/internal/middleware/authsession"
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/testutil"
	"github.com/qolzam/assetpipe/internal/types"
	storageErrors "github.com/qolzam/assetpipe/storage/errors"
	"github.com/qolzam/assetpipe/storage/handlers"
	"github.com/qolzam/assetpipe/storage/models"
	"github.com/qolzam/assetpipe/storage/provider"
	"github.com/qolzam/assetpipe/storage/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticKeys map[string]*authapikey.ValidatedAPIKey

func (s staticKeys) ResolveAPIKey(_ context.Context, raw string) (*authapikey.ValidatedAPIKey, error) {
	if k, ok := s[raw]; ok {
		return k, nil
	}
	return nil, authapikey.ErrInvalidAPIKey
}

type routeFixture struct {
	http     *testutil.HTTPHelper
	token    string
	owner    uuid.UUID
	project  *models.Project
	files    *services.MockFileRepository
	blob     *services.MockBlobProvider
	readKey  string
	writeKey string
}

func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()

	keys := testutil.NewSessionKeys(t)
	verifier, err := authsession.NewVerifier(authsession.Config{PublicKey: keys.PublicPEM})
	require.NoError(t, err)

	owner := uuid.Must(uuid.NewV4())
	project := &models.Project{ID: uuid.Must(uuid.NewV4()), OwnerUserID: owner, Name: "site", Provider: provider.KindR2}

	projects := new(services.MockProjectRepository)
	projects.On("FindByID", mock.Anything, project.ID).Return(project, nil)
	files := new(services.MockFileRepository)

	blob := services.NewMockBlobProvider(provider.KindR2)
	registry := provider.NewRegistry()
	registry.Register(blob)

	cfg := &platformconfig.StorageConfig{
		UploadURLTTL:        10 * time.Minute,
		AllowedContentTypes: []string{"image/png"},
		VariantWorkers:      2,
	}

	resolver := staticKeys{
		"ik_read_secret":  {KeyID: uuid.Must(uuid.NewV4()), OwnerID: owner, Permissions: []types.Permission{types.PermissionRead}},
		"ik_write_secret": {KeyID: uuid.Must(uuid.NewV4()), OwnerID: owner, Permissions: []types.Permission{types.PermissionRead, types.PermissionWrite}},
	}

	app := fiber.New()
	RegisterRoutes(app, &StorageHandlers{
		ProjectHandler: handlers.NewProjectHandler(services.NewProjectService(projects, registry)),
		StorageHandler: handlers.NewStorageHandler(
			services.NewPresignService(projects, registry, cfg),
			services.NewConfirmService(projects, files, registry, services.NewVariantEngine(cfg.VariantWorkers), cfg),
			services.NewFileService(projects, files, registry),
		),
	}, &RouterConfig{Session: verifier, Resolver: resolver})

	return &routeFixture{
		http:     testutil.NewHTTPHelper(t, app),
		token:    keys.Sign(owner, "ada", time.Hour),
		owner:    owner,
		project:  project,
		files:    files,
		blob:     blob,
		readKey:  "ik_read_secret",
		writeKey: "ik_write_secret",
	}
}

func TestRoutes_ListProviders(t *testing.T) {
	f := newRouteFixture(t)

	var body models.ProvidersResponse
	resp := f.http.NewRequest(http.MethodGet, "/storage/providers", nil).WithSessionAuth(f.token).SendJSON(&body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"r2"}, body.Providers)

	resp = f.http.NewRequest(http.MethodGet, "/storage/providers", nil).WithAPIKey(f.readKey).Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "provider listing is session only")
}

func TestRoutes_PresignWithSession(t *testing.T) {
	f := newRouteFixture(t)
	f.blob.On("PresignUpload", mock.Anything, mock.Anything, "image/png", 10*time.Minute).
		Return(&provider.PresignedUpload{URL: "https://r2.example.com/signed", Method: http.MethodPut}, nil)

	var body models.PresignResponse
	resp := f.http.NewRequest(http.MethodPost, "/storage/upload/presign", models.PresignRequest{
		ProjectID:   f.project.ID,
		Filename:    "cover.png",
		ContentType: "image/png",
	}).WithSessionAuth(f.token).SendJSON(&body)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "https://r2.example.com/signed", body.UploadURL)
	_, err := services.ParseUploadKey(body.Key)
	assert.NoError(t, err)
}

func TestRoutes_APIKeyPermissions(t *testing.T) {
	f := newRouteFixture(t)

	var errBody storageErrors.ErrorResponse
	resp := f.http.NewRequest(http.MethodPost, "/storage/upload/confirm", models.ConfirmRequest{Key: "k"}).
		WithAPIKey(f.readKey).SendJSON(&errBody)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", errBody.Code)

	resp = f.http.NewRequest(http.MethodPost, "/storage/upload/confirm", models.ConfirmRequest{Key: "k"}).
		WithAPIKey(f.writeKey).SendJSON(&errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, storageErrors.CodeValidation, errBody.Code)

	resp = f.http.NewRequest(http.MethodDelete, "/storage/files/"+uuid.Must(uuid.NewV4()).String(), nil).
		WithAPIKey(f.writeKey).SendJSON(&errBody)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "delete needs the delete permission")

	resp = f.http.NewRequest(http.MethodGet, "/storage/providers", nil).WithAPIKey("ik_nope_nope").Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_ConfirmUpload(t *testing.T) {
	f := newRouteFixture(t)
	key := services.NewUploadKey(f.project.ID, "cover.png", models.FormatPNG, time.Now()).String()

	f.files.On("FindByUploadKey", mock.Anything, key).Return(nil, storageErrors.ErrFileNotFound)
	f.files.On("TransactionalUpsertFile", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.blob.On("ObjectExists", mock.Anything, key).Return(true, nil)
	f.blob.On("ProbeObject", mock.Anything, key).Return(&provider.ObjectInfo{
		ContentType: "image/png", Format: models.FormatPNG, Width: 1000, Height: 500, ByteSize: 9000,
	}, nil)
	f.blob.On("ObjectURL", mock.Anything, key).Return("https://cdn.example.com/"+key, nil)
	f.blob.On("MaterializeVariant", mock.Anything, key, models.FormatWEBP, models.SizeMax300).
		Return(nil, storageErrors.ErrVariantGenerationFailed)

	var body models.ConfirmResponse
	resp := f.http.NewRequest(http.MethodPost, "/storage/upload/confirm", models.ConfirmRequest{
		Key:          key,
		Formats:      []models.Format{models.FormatWEBP},
		Sizes:        []models.SizeLabel{models.SizeMax300},
		SaveOriginal: true,
	}).WithAPIKey(f.writeKey).SendJSON(&body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatePartiallyCommitted, body.State)
	require.Len(t, body.Variants, 1)
	assert.Equal(t, "https://cdn.example.com/"+key, body.Variants[0].URL)
	require.Len(t, body.FailedVariants, 1)
	assert.Equal(t, models.FormatWEBP, body.FailedVariants[0].Format)
}

func TestRoutes_FileNotFound(t *testing.T) {
	f := newRouteFixture(t)
	id := uuid.Must(uuid.NewV4())
	f.files.On("FindByID", mock.Anything, id).Return(nil, storageErrors.ErrFileNotFound)

	var errBody storageErrors.ErrorResponse
	resp := f.http.NewRequest(http.MethodDelete, "/storage/files/"+id.String(), nil).WithSessionAuth(f.token).SendJSON(&errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, storageErrors.CodeNotFound, errBody.Code)

	resp = f.http.NewRequest(http.MethodGet, "/storage/files/not-a-uuid", nil).WithSessionAuth(f.token).Send()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	f := newRouteFixture(t)

	resp := f.http.NewRequest(http.MethodPost, "/storage/upload/presign", models.PresignRequest{}).Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.http.NewRequest(http.MethodGet, "/projects", nil).Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
