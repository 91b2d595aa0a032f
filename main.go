package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ddevcap/blog-metadata/api"
	"github.com/ddevcap/blog-metadata/backend"
	"github.com/ddevcap/blog-metadata/config"
	"github.com/ddevcap/blog-metadata/metadata"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("no env file found, using process environment", "path", envFile)
		} else {
			slog.Warn("failed to load env file", "path", envFile, "error", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool := backend.NewPool(cfg)

	cache := metadata.New(metadata.Options{
		Analytics: pool.Analytics(),
		Social:    pool.Social(),
		Index:     pool.Index(),
		Credentials: backend.Credentials{
			Username: cfg.UmamiUsername,
			Password: cfg.UmamiPassword,
		},
		WebsiteID:    cfg.UmamiWebsiteID,
		SocialUserID: cfg.FediverseUserID,
		TTL:          cfg.CacheTTL,
	})

	// Background pings feed /ready only; the cache refreshes lazily.
	hc := backend.NewHealthChecker(pool, cfg.HealthCheckInterval)
	hc.Start(context.Background())

	h, stopLimiter := api.NewRouter(cfg, cache, hc)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	// Start server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("blog metadata service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt or SIGTERM (e.g. from container orchestration).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	hc.Stop()
	stopLimiter()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server stopped")
}
