// Package cli provides common initialization for cmd/fintrack,
// cmd/fintrack-worker and cmd/fintrack-admin.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

// LoadEnvFile loads .env files for local development. Missing files are
// ignored; variables already set in the environment win.
func LoadEnvFile(files ...string) {
	if len(files) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			slog.Debug("Env file not loaded", "file", f, "error", err)
		}
	}
}

// SetupLogger installs the process logger for component.
func SetupLogger(component, level string) *applog.Logger {
	return applog.Setup(component, level, os.Stdout)
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
