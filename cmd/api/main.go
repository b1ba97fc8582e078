package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/taskpop/backend/internal/auth"
	"github.com/taskpop/backend/internal/config"
	"github.com/taskpop/backend/internal/expiry"
	"github.com/taskpop/backend/internal/feed"
	"github.com/taskpop/backend/internal/handlers"
	"github.com/taskpop/backend/internal/repository"
	"github.com/taskpop/backend/internal/router"
	"github.com/taskpop/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first (e.g. make dev-up)", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	walletRepo := repository.NewWalletRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)

	// Expiry: the sweeper's insert func is set after the River client is
	// created (breaks the init cycle between engine, sweeper and worker).
	var insertMu sync.Mutex
	var insertFn services.EnqueueExpiryFunc
	enqueueExpiry := func(ctx context.Context, taskID uuid.UUID) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			return nil
		}
		return fn(ctx, taskID)
	}
	sweeper := services.NewSweeper(enqueueExpiry, logger)

	// Feed + escrow engine reference each other: the engine notifies the
	// hub after commits, the hub materializes snapshots through the
	// sweeper. Wire the hub first, then the engine.
	hub := feed.NewHub(taskRepo, walletRepo, sweeper, logger)
	engine := services.NewEscrowEngine(pool, walletRepo, taskRepo, ledgerRepo, hub, logger)

	workers := river.NewWorkers()
	river.AddWorker(workers, expiry.NewExpireTaskWorker(engine, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, taskID uuid.UUID) error {
		_, err := riverClient.Insert(ctx, expiry.ExpireTaskJobArgs{TaskID: taskID}, nil)
		return err
	}
	insertMu.Unlock()

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo)
	authHandler := auth.NewHandler(authSvc, logger)

	taskHandler := &handlers.TaskHandler{Engine: engine, Feed: hub, Logger: logger}
	walletHandler := &handlers.WalletHandler{Wallets: engine, Ledger: ledgerRepo, Profile: walletRepo, Logger: logger}
	streamHandler := &handlers.StreamHandler{Feed: hub, Logger: logger}

	apiRouter := router.New(authHandler, taskHandler, walletHandler, streamHandler, authSvc)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes expiry jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
