package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/qolzam/assetpipe/apikeys"
	apikeyHandlers "github.com/qolzam/assetpipe/apikeys/handlers"
	apikeyRepository "github.com/qolzam/assetpipe/apikeys/repository"
	apikeyServices "github.com/qolzam/assetpipe/apikeys/services"
	"github.com/qolzam/assetpipe/internal/cache"
	dbi "github.com/qolzam/assetpipe/internal/database/interfaces"
	"github.com/qolzam/assetpipe/internal/database/postgres"
	"github.com/qolzam/assetpipe/internal/middleware/authsession"
	"github.com/qolzam/assetpipe/internal/middleware/ratelimit"
	"github.com/qolzam/assetpipe/internal/middleware/requestid"
	"github.com/qolzam/assetpipe/internal/pkg/log"
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
	"github.com/qolzam/assetpipe/internal/types"
	"github.com/qolzam/assetpipe/storage"
	storageHandlers "github.com/qolzam/assetpipe/storage/handlers"
	"github.com/qolzam/assetpipe/storage/provider"
	storageRepository "github.com/qolzam/assetpipe/storage/repository"
	storageServices "github.com/qolzam/assetpipe/storage/services"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		log.Error("Failed to load platform config: %v", err)
		os.Exit(1)
	}
	log.SetDebug(cfg.Server.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(ctx, &dbi.PostgreSQLConfig{
		Host:               cfg.Database.Postgres.Host,
		Port:               cfg.Database.Postgres.Port,
		Username:           cfg.Database.Postgres.Username,
		Password:           cfg.Database.Postgres.Password,
		Database:           cfg.Database.Postgres.Database,
		SSLMode:            cfg.Database.Postgres.SSLMode,
		ConnectTimeout:     cfg.Database.Postgres.ConnectTimeout,
		MaxOpenConnections: cfg.Database.Postgres.MaxOpenConns,
		MaxIdleConnections: cfg.Database.Postgres.MaxIdleConns,
		MaxLifetime:        int(cfg.Database.Postgres.ConnMaxLifetime.Seconds()),
	})
	if err != nil {
		log.Error("Failed to create postgres client: %v", err)
		os.Exit(1)
	}
	defer pgClient.Close()

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			log.Error("Failed to run migrations: %v", err)
			os.Exit(1)
		}
	}

	// A missing cache only costs API key lookups, so the service keeps running without one
	cacheCfg := cache.FromPlatformConfig(cfg.Cache)
	keyCache, err := cache.NewCache(ctx, cacheCfg)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheDisabled) {
			log.Warn("Cache unavailable, API keys will be resolved from the database: %v", err)
		}
		keyCache = nil
	} else {
		defer keyCache.Close()
	}

	limitStore, err := newRateLimitStore(ctx, cfg, cacheCfg)
	if err != nil {
		log.Error("Failed to create rate limit store: %v", err)
		os.Exit(1)
	}

	registry, err := newProviderRegistry(ctx, cfg)
	if err != nil {
		log.Error("Failed to configure storage providers: %v", err)
		os.Exit(1)
	}
	if len(registry.Available()) == 0 {
		log.Warn("No storage provider configured; presign and confirm will fail with PROVIDER_UNAVAILABLE")
	}

	verifier, err := authsession.NewVerifier(authsession.Config{
		PublicKey:  cfg.Session.PublicKey,
		CookieName: cfg.Session.CookieName,
	})
	if err != nil {
		log.Error("Failed to create session verifier: %v", err)
		os.Exit(1)
	}

	// Repositories share one connection pool
	projectRepo := storageRepository.NewPostgresProjectRepository(pgClient)
	fileRepo := storageRepository.NewPostgresFileRepository(pgClient)
	keyRepo := apikeyRepository.NewPostgresRepository(pgClient)

	keyService := apikeyServices.NewAPIKeyService(keyRepo, keyCache, &cfg.Cache, &cfg.APIKeys)
	engine := storageServices.NewVariantEngine(cfg.Storage.VariantWorkers)

	storageHandlerSet := &storage.StorageHandlers{
		ProjectHandler: storageHandlers.NewProjectHandler(
			storageServices.NewProjectService(projectRepo, registry),
		),
		StorageHandler: storageHandlers.NewStorageHandler(
			storageServices.NewPresignService(projectRepo, registry, &cfg.Storage),
			storageServices.NewConfirmService(projectRepo, fileRepo, registry, engine, &cfg.Storage),
			storageServices.NewFileService(projectRepo, fileRepo, registry),
		),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.ErrorWithContext(c.UserContext(), "[ErrorHandler] Path: %s, Error: %v, Code: %d", c.Path(), err, code)

			// Handlers that already wrote a body keep it
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": "An unexpected error occurred",
			})
		},
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.WebDomain,
		AllowCredentials: cfg.Server.WebDomain != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + types.HeaderAPIKey + ", " + requestid.HeaderRequestID,
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		ExposeHeaders:    types.HeaderRetryAfter + ", " + requestid.HeaderRequestID,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pgClient.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
		}
		return c.JSON(fiber.Map{"status": "ok", "providers": registry.Available()})
	})

	router := app.Group(cfg.Server.BaseRoute)
	if cfg.RateLimits.Enabled {
		table := ratelimit.NewTable(policiesFromConfig(cfg.RateLimits)...)
		if cfg.Server.Debug {
			log.InfoStruct(table.Policies())
		}
		router.Use(ratelimit.New(ratelimit.Config{
			Table:      table,
			Store:      limitStore,
			PathPrefix: cfg.Server.BaseRoute,
		}))
	}

	storage.RegisterRoutes(router, storageHandlerSet, &storage.RouterConfig{
		Session:  verifier,
		Resolver: keyService,
	})
	apikeys.RegisterRoutes(router, apikeyHandlers.NewAPIKeyHandler(keyService), &apikeys.RouterConfig{
		Session: verifier,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Shutdown failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Asset pipeline listening on %s (providers: %v)", addr, registry.Available())
	if err := app.Listen(addr); err != nil {
		log.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}

func newProviderRegistry(ctx context.Context, cfg *platformconfig.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	transformer := provider.NewImageTransformer()
	transformer.MaxPixels = cfg.Storage.MaxPixels

	if cfg.Storage.R2.Configured() {
		r2, err := provider.NewR2Provider(ctx, cfg.Storage.R2, provider.WithTransformer(transformer))
		if err != nil {
			return nil, fmt.Errorf("r2: %w", err)
		}
		registry.Register(r2)
	}
	if cfg.Storage.S3.Configured() {
		s3, err := provider.NewS3Provider(ctx, cfg.Storage.S3, provider.WithTransformer(transformer))
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		registry.Register(s3)
	}
	return registry, nil
}

func newRateLimitStore(ctx context.Context, cfg *platformconfig.Config, cacheCfg *cache.CacheConfig) (ratelimit.Store, error) {
	if cfg.RateLimits.Store != "redis" {
		return ratelimit.NewMemoryStore(), nil
	}
	client, err := cache.NewRedisClient(ctx, cacheCfg.Redis)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisStore(client, cacheCfg.Prefix), nil
}

func policiesFromConfig(cfg platformconfig.RateLimitsConfig) []ratelimit.Policy {
	named := []struct {
		name   string
		policy platformconfig.RateLimitPolicyConfig
	}{
		{"login", cfg.Login},
		{"api", cfg.API},
		{"upload-confirm", cfg.UploadConfirm},
	}

	policies := make([]ratelimit.Policy, 0, len(named))
	for _, n := range named {
		policies = append(policies, ratelimit.Policy{
			Name:   n.name,
			Path:   n.policy.Path,
			Max:    n.policy.Max,
			Window: n.policy.Window,
			Block:  n.policy.Block,
		})
	}
	return policies
}
