package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/api"
	"github.com/dispatchgw/dispatchgw/internal/config"
	"github.com/dispatchgw/dispatchgw/internal/database"
	"github.com/dispatchgw/dispatchgw/internal/database/pgstore"
	"github.com/dispatchgw/dispatchgw/internal/directory"
	"github.com/dispatchgw/dispatchgw/internal/logsync"
	"github.com/dispatchgw/dispatchgw/internal/presence"
	"github.com/dispatchgw/dispatchgw/internal/provider"
	"github.com/dispatchgw/dispatchgw/internal/retention"
	"github.com/dispatchgw/dispatchgw/internal/scheduler"
	"github.com/dispatchgw/dispatchgw/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting dispatchgw",
		"http_port", cfg.HTTPPort,
		"operator_number", cfg.OperatorNumber,
		"operator_identity", cfg.OperatorIdentity,
		"business_hours", fmt.Sprintf("%02d:00-%02d:00", cfg.BusinessHoursStart, cfg.BusinessHoursEnd),
	)

	// Open log storage: Postgres when a DSN is configured, embedded
	// SQLite otherwise.
	store, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open log storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Application context for background goroutines.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Presence starts with every identity absent.
	tracker := presence.NewTracker()

	dir := directory.New(store.Parties(), logger)

	providerClient := provider.NewTwilio(cfg.AccountSID, cfg.AuthToken, logger)
	syncEngine := logsync.NewEngine(providerClient, store.Calls(), store.Messages(), dir, logger)
	sweeper := retention.NewSweeper(store.Calls(), store.Messages(), cfg.RetentionHorizon(), logger)

	// Register all periodic work with the scheduler exactly once.
	sched := scheduler.New(logger)
	tasks := []scheduler.Task{
		{
			Name:     "call-sync",
			Interval: cfg.SyncInterval,
			Timeout:  cfg.ProviderTimeout,
			Run: func(ctx context.Context) error {
				_, err := syncEngine.SyncCalls(ctx)
				return err
			},
		},
		{
			Name:     "message-sync",
			Interval: cfg.SyncInterval,
			Timeout:  cfg.ProviderTimeout,
			Run: func(ctx context.Context) error {
				_, err := syncEngine.SyncMessages(ctx)
				return err
			},
		},
		{
			Name:     "retention-sweep",
			Interval: cfg.SweepInterval,
			Timeout:  time.Minute,
			Run: func(ctx context.Context) error {
				_, err := sweeper.Sweep(ctx)
				return err
			},
		},
	}
	for _, t := range tasks {
		if err := sched.Register(t); err != nil {
			slog.Error("failed to register task", "task", t.Name, "error", err)
			os.Exit(1)
		}
	}
	sched.Start(appCtx)

	tokens := token.NewGenerator(cfg.AccountSID, cfg.APIKey, cfg.APISecret, cfg.TwiMLAppSID, cfg.OperatorIdentity)

	// HTTP server using the api package.
	handler := api.NewServer(cfg, store, tracker, dir, tokens, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")
	sched.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("dispatchgw stopped")
}

// openStore picks the storage backend from config.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.DatabaseURL != "" {
		return pgstore.New(cfg.DatabaseURL)
	}
	db, err := database.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return database.NewStore(db), nil
}
