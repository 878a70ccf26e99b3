package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanups always run.
func run() int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		return 1
	}
	b, err := backend.Build(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to build backend", applog.FieldError, err, "db_path", cfg.SQLiteDBPath)
		return 1
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("Backend close failed", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Accounts:     b.Accounts,
		Transactions: b.Transactions,
		Dashboards:   b.Dashboards,
		Reports:      b.Reports,
		Issuer:       b.Issuer,
		Store:        b.Store,
	}, apphttp.Options{Version: cfg.BuildVersion})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"cache", bcfg.Cache,
			"amqp", b.Publisher != nil,
			"version", cfg.BuildVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
	return 0
}
