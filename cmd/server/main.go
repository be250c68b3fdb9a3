package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/spots/internal/catalog"
	"github.com/JonMunkholm/spots/internal/config"
	"github.com/JonMunkholm/spots/internal/core"
	"github.com/JonMunkholm/spots/internal/logging"
	"github.com/JonMunkholm/spots/internal/sioma"
	"github.com/JonMunkholm/spots/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	siomaClient := sioma.NewClient(sioma.Config{
		BaseURL: cfg.Sioma.BaseURL,
		Token:   cfg.Sioma.Token,
		Timeout: cfg.Sioma.Timeout,
	})
	if !siomaClient.Configured() {
		slog.Warn("SIOMA_API_TOKEN not set, sioma endpoints disabled")
	}

	// Lote whitelists come from the catalog database when one is configured,
	// otherwise from Sioma.
	var lotes core.LoteSource
	switch {
	case cfg.Catalog.Enabled():
		pool, err := catalog.Connect(ctx, catalog.PoolConfig{
			URL:             cfg.Catalog.URL,
			MaxConns:        cfg.Catalog.MaxConns,
			MinConns:        cfg.Catalog.MinConns,
			MaxConnLifetime: cfg.Catalog.MaxConnLifetime,
			MaxConnIdleTime: cfg.Catalog.MaxConnIdleTime,
		})
		if err != nil {
			return err
		}
		defer pool.Close()
		slog.Info("lote catalog connected", "max_conns", cfg.Catalog.MaxConns)
		lotes = catalog.New(pool)
	case siomaClient.Configured():
		lotes = siomaClient
	}

	service := core.NewService(lotes, core.ServiceConfig{
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Timeout:       cfg.Upload.Timeout,
	})

	server := web.NewServer(service, siomaClient, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for validations to complete", "active", status.Active)
			if err := service.Drain(shutdownCtx); err != nil {
				slog.Warn("validations did not complete in time", "error", err)
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
