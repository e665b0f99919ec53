// Package app assembles the server from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"newsletter-backend/internal/auth"
	"newsletter-backend/internal/config"
	"newsletter-backend/internal/db"
	"newsletter-backend/internal/maintenance"
	"newsletter-backend/internal/observability"
	"newsletter-backend/internal/password"
	"newsletter-backend/internal/session"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler  http.Handler
	Settings config.Settings
	Logger   *observability.Logger
	Close    func() error
}

func Build(ctx context.Context, options Options) (*Runtime, error) {
	settings, err := config.Load(options.LoadDotEnv)
	if err != nil {
		return nil, err
	}

	proxies, err := observability.ParseTrustedProxies(settings.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	logger := observability.NewLogger()

	if err := observability.InitSentry(settings.SentryDSN, settings.Environment); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := db.Open(ctx, settings.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    settings.DBMaxOpenConns,
		MaxIdleConns:    settings.DBMaxIdleConns,
		ConnMaxLifetime: settings.DBConnMaxLifetime,
		ConnMaxIdleTime: settings.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	if options.RunMigrations || settings.RunMigrationsOnStartup {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	store, err := openSessionStore(ctx, settings)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	pool := password.NewPool(settings.PasswordHashWorkers, password.DefaultParams)
	closeAll := func() error {
		observability.FlushSentry()
		pool.Close()
		_ = store.Close()
		return database.Close()
	}

	authRepo := auth.NewRepository(database)
	authService, err := auth.NewService(authRepo, pool)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	if err := authService.BootstrapFromEnv(ctx, settings.AdminUsername, settings.AdminPassword); err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	metrics := observability.NewMetrics()
	handler, err := Routes(Deps{
		Logger:  logger,
		Metrics: metrics,
		Proxies: proxies,
		Key:     settings.HMACSecret,
		Store:   store,
		Session: session.Config{
			TTL:          settings.SessionTTL,
			SecureCookie: settings.CookieSecure,
		},
		Auth:    authService,
		Limiter: auth.NewLoginRateLimiter(authRepo, settings.LoginRateLimitMax, settings.LoginRateLimitWindow, logger, metrics),
		Cleanup: maintenance.NewCleanupHandler(authRepo, logger, settings.CronSecret, settings.IPLimitRetention, settings.CleanupBatchSize),
		DB:      database,
	})
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	return &Runtime{
		Handler:  handler,
		Settings: settings,
		Logger:   logger,
		Close:    closeAll,
	}, nil
}

type closableStore interface {
	session.Store
	io.Closer
}

func openSessionStore(ctx context.Context, settings config.Settings) (closableStore, error) {
	switch settings.SessionBackend {
	case config.SessionBackendMemory:
		store, err := session.NewMemoryStore(settings.SessionTTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := session.NewRedisStoreFromURL(ctx, settings.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		return store, nil
	}
}

// Migrate applies the embedded schema and exits.
func Migrate(ctx context.Context, loadDotEnv bool) error {
	settings, err := config.Load(loadDotEnv)
	if err != nil {
		return err
	}

	database, err := db.Open(ctx, settings.DatabaseURL, db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		return err
	}
	defer database.Close()

	return db.RunMigrations(ctx, database)
}
