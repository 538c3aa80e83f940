// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/configurator-api/internal/access"
	"github.com/carterperez-dev/templates/configurator-api/internal/admin"
	"github.com/carterperez-dev/templates/configurator-api/internal/auth"
	"github.com/carterperez-dev/templates/configurator-api/internal/config"
	"github.com/carterperez-dev/templates/configurator-api/internal/configurator"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
	"github.com/carterperez-dev/templates/configurator-api/internal/embed"
	"github.com/carterperez-dev/templates/configurator-api/internal/health"
	"github.com/carterperez-dev/templates/configurator-api/internal/middleware"
	"github.com/carterperez-dev/templates/configurator-api/internal/notify"
	"github.com/carterperez-dev/templates/configurator-api/internal/server"
	"github.com/carterperez-dev/templates/configurator-api/internal/storage"
	"github.com/carterperez-dev/templates/configurator-api/internal/tenant"
	"github.com/carterperez-dev/templates/configurator-api/internal/usage"
	"github.com/carterperez-dev/templates/configurator-api/migrations"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)
	core.SetExposeInternalErrors(cfg.IsDevelopment())

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS, logger); err != nil {
			return err
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	issuer := auth.NewTokenIssuer(cfg.Auth)
	if !issuer.Configured() {
		logger.Error("signing secret not set; token issuance and verification will fail")
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	mailer := notify.New(cfg.Mail, logger)

	var oidcProvider auth.OIDCProvider
	if cfg.OAuth.Enabled {
		oidcProvider, err = auth.NewOIDCProvider(ctx, cfg.OAuth)
		if err != nil {
			return err
		}
		logger.Info("oauth provider discovered", "issuer", cfg.OAuth.IssuerURL)
	}

	usageRepo := usage.NewRepository(db.DB)
	governor := usage.NewGovernor()

	tenantRepo := tenant.NewRepository(db.DB)
	tenantSvc := tenant.NewService(tenantRepo, usageRepo, cfg.Quota.DefaultLimit, logger)
	tenantHandler := tenant.NewHandler(tenantSvc)

	configuratorRepo := configurator.NewRepository(db.DB)
	guard := access.NewGuard(configuratorRepo, logger)
	cache := configurator.NewDocumentCache(cfg.Embed.CacheSize, cfg.Embed.CacheTTL)

	configuratorSvc := configurator.NewService(configurator.Deps{
		Repo:    configuratorRepo,
		Guard:   guard,
		Cache:   cache,
		Store:   store,
		Mailer:  mailer,
		Tenants: tenantSvc,
		Logger:  logger,
	})
	configuratorHandler := configurator.NewHandler(configuratorSvc)

	sessionRepo := auth.NewRepository(db.DB)
	blacklist := auth.NewBlacklist(redis.Client)

	authSvc := auth.NewService(auth.Deps{
		Sessions:  sessionRepo,
		Issuer:    issuer,
		Tenants:   tenantSvc,
		Blacklist: blacklist,
		Guard:     guard,
		Mailer:    mailer,
		OIDC:      oidcProvider,
		States:    auth.NewStateStore(redis.Client, cfg.OAuth.StateTTL),
		Logger:    logger,
	}, auth.NewServiceConfig(cfg))
	authHandler := auth.NewHandler(authSvc, auth.NewCookieConfig(cfg.Auth))

	sessionStrategy := auth.NewSessionStrategy(cfg.Auth.SessionCookieName, sessionRepo, tenantSvc)
	tokenStrategy := auth.NewTokenStrategy(issuer, tenantSvc, blacklist, logger)
	apiKeyStrategy := auth.NewAPIKeyStrategy(tenantSvc)

	flexible := middleware.Authenticate(
		auth.NewFlexibleDispatcher(logger, sessionStrategy, tokenStrategy, apiKeyStrategy),
	)
	sessionOrToken := middleware.Authenticate(
		auth.NewSessionOrTokenDispatcher(logger, sessionStrategy, tokenStrategy),
	)
	adminOnly := middleware.RequireAdmin

	gate := embed.NewGate(tenantRepo, governor, usageRepo, logger)
	embedHandler := embed.NewHandler(configuratorSvc, gate)

	scheduler := usage.NewScheduler(usageRepo, logger)
	if err := scheduler.Every("session_purge", cfg.Auth.SessionPurgeSchedule, authSvc.PurgeExpiredSessions); err != nil {
		return err
	}
	if err := scheduler.Start(cfg.Quota.ResetSchedule); err != nil {
		return err
	}

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)
	// not ready until every route is mounted
	healthHandler.SetReady(false)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:       db.Stats,
		RedisStats:    redis.PoolStats,
		DBPing:        db.Ping,
		RedisPing:     redis.Ping,
		Tenants:       tenantSvc,
		Cache:         cache,
		ResetUsage:    scheduler.RunOnce,
		PurgeSessions: authSvc.PurgeExpiredSessions,
		Logger:        logger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
			Logger:   logger,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.SkipPrefix("/v1/embed/", middleware.CORS(cfg.CORS)))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", core.MetricsHandler())

	loginLimit := middleware.LoginLimiter(middleware.LoginLimitConfig{
		Requests: cfg.LoginLimit.Requests,
		Window:   cfg.LoginLimit.Window,
	})

	tiered := middleware.TieredRateLimiter(redis.Client, middleware.DefaultTiers, logger)
	dashboard := func(next http.Handler) http.Handler {
		return flexible(tiered(next))
	}

	var quoteLimit func(http.Handler) http.Handler
	if cfg.Embed.QuotesPerHour > 0 {
		quoteLimit = middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit:    middleware.PerHour(cfg.Embed.QuotesPerHour, cfg.Embed.QuotesPerHour/3+1),
			KeyFunc:  middleware.KeyByTenantAndEndpoint,
			FailOpen: true,
			Logger:   logger,
		}).Handler
	}

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, auth.Routes{
			LoginLimit:     loginLimit,
			SessionOrToken: sessionOrToken,
			OAuthRedirect:  cfg.OAuth.SuccessRedirect,
		})

		tenantHandler.RegisterRoutes(r, dashboard)
		configuratorHandler.RegisterRoutes(r, dashboard)

		tenantHandler.RegisterAdminRoutes(r, sessionOrToken, adminOnly)
		adminHandler.RegisterRoutes(r, sessionOrToken, adminOnly)

		embedHandler.RegisterRoutes(r, quoteLimit)
	})
	healthHandler.SetReady(true)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	scheduler.Stop(shutdownCtx)

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
