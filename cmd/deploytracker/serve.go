package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deploytracker/internal/config"
	"deploytracker/internal/handlers"
	"deploytracker/internal/logger"
	"deploytracker/internal/metrics"
	"deploytracker/internal/repository"
	"deploytracker/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long:  "Start the Deployment Tracker panel and JSON API.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	seed := repository.NewSeedLoader(cfg.Seed.Path)
	// Fail fast on a broken seed file rather than on the first visitor.
	seedRows, err := seed.Load(cmd.Context())
	if err != nil {
		zlog.Fatal("failed to load seed deployments", zap.String("path", cfg.Seed.Path), zap.Error(err))
	}
	zlog.Info("seed deployments loaded", zap.Int("count", len(seedRows)), zap.String("path", cfg.Seed.Path))

	var m *metrics.Metrics
	opts := []services.SessionOption{services.WithLogger(zlog)}
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, services.WithObserver(m))
	}
	sessionService := services.NewSessionService(seed, cfg.Session.IdleTimeout, opts...)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := handlers.NewRouter(cfg, sessionService, m, zlog)
	if err != nil {
		zlog.Fatal("failed to build router", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionService.Run(ctx, cfg.Session.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
