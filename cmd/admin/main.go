package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/kflex/dashboard/internal/admin/app"
	"github.com/kflex/dashboard/internal/admin/httpserver"
	"github.com/kflex/dashboard/internal/admin/httpserver/middleware"
	"github.com/kflex/dashboard/internal/platform/config"
	"github.com/kflex/dashboard/internal/platform/observability"
	"github.com/kflex/dashboard/internal/platform/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseLogger, err := observability.NewLogger("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("admin")

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(firstEnv("ADMIN_SECRETS_PROJECT_ID", "FIREBASE_PROJECT_ID")),
		secrets.WithFallbackFile(envOr("ADMIN_SECRETS_FALLBACK_FILE", ".secrets.local")),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Log.Level != "" {
		if leveled, err := observability.NewLogger(cfg.Log.Level); err == nil {
			baseLogger = leveled
			logger = leveled.Named("admin")
		}
	}

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("service shutdown error", zap.Error(err))
		}
	}()

	routes := httpserver.Services{
		Orders:    services.Orders,
		Products:  services.Products,
		Reviews:   services.Reviews,
		Dashboard: services.Analytics,
	}
	if services.Cache != nil {
		routes.Cache = services.Cache
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:       cfg.Server.Address,
		BasePath:      cfg.Server.BasePath,
		ProjectID:     cfg.Firebase.ProjectID,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Logger:        logger.Named("http"),
		Authenticator: buildAuthenticator(ctx, cfg, logger.Named("auth")),
	}, routes)
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("admin server listening",
			zap.String("address", cfg.Server.Address),
			zap.String("basePath", cfg.Server.BasePath),
			zap.String("source", cfg.Source.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received; draining requests")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildAuthenticator verifies Firebase ID tokens when a project is configured. Local
// environments without one fall back to the passthrough authenticator.
func buildAuthenticator(ctx context.Context, cfg config.Config, logger *zap.Logger) middleware.Authenticator {
	projectID := cfg.Firebase.ProjectID
	if projectID == "" {
		if cfg.Environment != "local" {
			logger.Fatal("FIREBASE_PROJECT_ID is required outside local environments")
		}
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return middleware.PassthroughAuthenticator()
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		logger.Fatal("failed to initialise firebase app", zap.Error(err))
	}
	client, err := firebaseApp.Auth(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firebase auth client", zap.Error(err))
	}
	authenticator, err := middleware.NewFirebaseAuthenticator(client)
	if err != nil {
		logger.Fatal("failed to initialise firebase authenticator", zap.Error(err))
	}
	logger.Info("firebase authenticator enabled", zap.String("project", projectID))
	return authenticator
}

func envOr(key, fallback string) string {
	if value := firstEnv(key); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
