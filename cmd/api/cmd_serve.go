package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	"github.com/zhouzirui/interview-journey/backend/internal/config"
	"github.com/zhouzirui/interview-journey/backend/internal/handler"
	"github.com/zhouzirui/interview-journey/backend/internal/logging"
	"github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
	"github.com/zhouzirui/interview-journey/backend/internal/service/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/service/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/memory"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/sqlite"
	"github.com/zhouzirui/interview-journey/backend/internal/telemetry"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default command)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Warn("no .env file loaded; using process environment only", zap.Error(envErr))
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces failed", zap.Error(err))
		}
	}()

	repo, err := openRepository(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("close repository failed", zap.Error(err))
		}
	}()

	provider, err := auth.NewJWTProvider(auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	catalog := scenario.NewMemoryStore(scenario.Seed())
	router := handler.NewRouter(handler.Deps{
		Journey:        journey.NewService(repo, catalog, logger.Named("journey")),
		Orchestrator:   orchestrator.NewService(repo, logger.Named("orchestrator")),
		Scenarios:      catalog,
		Store:          repo,
		Auth:           provider,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	logger.Info("interview journey backend listening", zap.String("addr", ln.Addr().String()))
	if err := runServer(ctx, srv, ln, cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openRepository(cfg config.StorageConfig, logger *zap.Logger) (storage.Repository, error) {
	if cfg.InMemory() {
		logger.Warn("DATABASE_PATH not set; sessions are kept in memory only")
		return memory.New(), nil
	}
	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Info("sqlite store opened", zap.String("path", cfg.DatabasePath))
	return store, nil
}
