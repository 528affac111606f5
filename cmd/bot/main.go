package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/modmail-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/modmail-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/modmail-backend/internal/adapters/secondary/discord"
	"github.com/lorrc/modmail-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/modmail-backend/internal/config"
	"github.com/lorrc/modmail-backend/internal/core/services"
	"github.com/lorrc/modmail-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting modmail bot",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// 4. Dependency Injection (Wiring the Hexagon)

	// Secondary adapters
	store := postgres.NewTicketStore(pool)
	transport := discord.NewTransport(cfg.Discord.Token, cfg.Discord.RequestsPerSecond, cfg.Discord.BurstSize, logger)

	// Core services
	registry := services.NewTicketRegistry()
	writer := services.NewAsyncStoreWriter(logger, cfg.Routing.StoreTimeout)
	resolver := services.NewDestinationResolver(transport, logger, cfg.Routing.SelectionTimeout)
	forwarder := services.NewMessageForwarder(transport, registry, store, writer, logger)
	lifecycle := services.NewTicketLifecycle(transport, registry, store, writer, logger, cfg.Routing.CategoryName)
	engine := services.NewRoutingEngine(transport, registry, resolver, forwarder, lifecycle, logger)

	// Gateway (primary event source)
	gateway := discord.NewGateway(
		cfg.Discord.GatewayURL,
		cfg.Discord.Token,
		transport,
		engine,
		logger,
		cfg.Discord.ReconnectMinWait,
		cfg.Discord.ReconnectMaxWait,
	)
	go gateway.Run(ctx)

	// 5. Ops HTTP Server
	healthHandler := httpAdapter.NewHealthHandler(pool, gateway, cfg.App.Version)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	srv := &http.Server{
		Addr:         cfg.Ops.Port,
		Handler:      r,
		ReadTimeout:  cfg.Ops.ReadTimeout,
		WriteTimeout: cfg.Ops.WriteTimeout,
		IdleTimeout:  cfg.Ops.IdleTimeout,
	}

	go func() {
		logger.Info("ops server starting", "port", cfg.Ops.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
			stop()
		}
	}()

	// 6. Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown failed", "error", err)
	}

	// Drain in-flight persistence before dropping the pool.
	writer.Shutdown()

	logger.Info("shutdown complete")
}
