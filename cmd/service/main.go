// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github-notification-sync/internal/api"
	"github-notification-sync/internal/config"
	"github-notification-sync/internal/database"
	"github-notification-sync/internal/github"
	"github-notification-sync/internal/metrics"
	"github-notification-sync/internal/model"
	"github-notification-sync/internal/reconcile"
	"github-notification-sync/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := database.RunMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	opts := []github.Option{github.WithRequestsPerSecond(cfg.GithubRequestsPerSecond)}
	if cfg.GithubAPIURL != "" {
		opts = append(opts, github.WithEnterpriseURL(cfg.GithubAPIURL))
	}
	ghClient, err := github.NewClient(cfg.GithubToken, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	queries := database.New(dbpool)
	user, err := registerUser(ctx, ghClient, queries)
	if err != nil {
		return err
	}
	logger.Info("Syncing notifications", "login", user.Login, "user_id", user.ID)

	urls, err := github.NewURLNormalizer(cfg.GithubDomain)
	if err != nil {
		return fmt.Errorf("failed to create url normalizer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	engine := reconcile.NewEngine(queries, ghClient, logger, reconcile.Options{
		FetchSubject: cfg.FetchSubject,
		URLs:         urls,
		Metrics:      collector,
	})

	appSyncer, err := syncer.NewSyncer(database.NewTxRunner(dbpool), ghClient, engine, collector, logger, syncer.Config{
		UserID:      user.ID,
		Interval:    cfg.SyncInterval,
		Concurrency: cfg.SyncConcurrency,
		IncludeRead: cfg.SyncIncludeRead,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			DB:       queries,
			Actions:  engine,
			Syncer:   appSyncer,
			UserID:   user.ID,
			Gatherer: registry,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start the syncer and the API server
	go appSyncer.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 7. Wait for shutdown signal
	logger.Info("Application started. Waiting for shutdown signal...")
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	return nil
}

// registerUser records the token's account so notifications can be keyed on it.
func registerUser(ctx context.Context, client *github.Client, q database.Querier) (model.User, error) {
	ghUser, err := client.GetAuthenticatedUser(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to fetch authenticated user: %w", err)
	}
	user, err := q.UpsertUser(ctx, database.UpsertUserParams{
		GithubID: ghUser.GetID(),
		Login:    ghUser.GetLogin(),
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to store user %s: %w", ghUser.GetLogin(), err)
	}
	return user, nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
