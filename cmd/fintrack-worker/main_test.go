package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SQLiteDBPath:    filepath.Join(t.TempDir(), "worker.db"),
		CacheBackend:    "memory",
		ExportBatchSize: 10,
		ExportSchedule:  "@every 1h",
	}
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Component: applog.ComponentWorker, Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestServeReturnsSetupErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExportSchedule = "not a schedule"

	if err := serve(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}

	cfg = testConfig(t)
	cfg.CacheBackend = "memcached"
	if err := serve(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected an error for an invalid cache backend")
	}
}

func TestServeSweepsAndStops(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	u, err := repo.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	tx, err := repo.AddTransaction(ctx, core.Transaction{UserID: u.ID, Type: core.Expense, Amount: 4, Category: "Food", Date: core.NewDate(2024, 5, 1)})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	repo.Close()

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if err := serve(runCtx, cfg, quietLogger()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		t.Fatalf("reopen repository: %v", err)
	}
	defer repo.Close()
	if ref, err := repo.ExportRef(ctx, tx.ID); err != nil || ref == "" {
		t.Fatalf("startup sweep did not export: ref=%q err=%v", ref, err)
	}
}
