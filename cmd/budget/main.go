package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/auth"
	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backends, err := backend.NewFactory(logger.Logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backends", "error", err)
		os.Exit(1)
	}

	// a nil *amqp.Client must not end up inside the interface
	var publisher services.Publisher
	if backends.AMQP != nil {
		publisher = backends.AMQP
	}

	authSvc := auth.NewService(sqliteRepo, auth.Config{
		Secret:      []byte(cfg.SessionSecret),
		TTL:         cfg.SessionTTL,
		MinPassword: cfg.PasswordMin,
		AllowSignup: cfg.AllowSignup,
	}, cache.NewLRUCache[struct{}](10000, cfg.SessionTTL))

	// sweeps the revocation cache and prunes expired rows from SQLite
	caches := cache.NewManager()
	caches.Register(authSvc)
	caches.StartCleanup(context.Background(), 10*time.Minute)

	settingsSvc := services.NewSettingsService(sqliteRepo, backends.Remote, cfg.RemoteTimeout)
	budgetSvc := services.NewBudgetService(sqliteRepo, backends.Remote, publisher, settingsSvc, cfg.RemoteTimeout)

	checks := map[string]apphttp.ReadinessCheck{"sqlite": sqliteRepo.Ping}
	if backends.HasRemote() {
		checks["remote"] = backends.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Logger:             logger,
		Auth:               authSvc,
		Budgets:            budgetSvc,
		Settings:           settingsSvc,
		Checks:             checks,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CookieSecure:       cfg.CookieSecure,
		AllowSignup:        cfg.AllowSignup,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := backends.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
		if err := budgetSvc.Close(); err != nil {
			logger.Error("Failed to close SQLite repository", "error", err)
		}
	})

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"remote_backend", cfg.RemoteBackend,
		"sheets_backend", cfg.SheetsBackend,
		"amqp", backends.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
