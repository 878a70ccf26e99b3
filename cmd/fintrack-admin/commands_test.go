package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Component: applog.ComponentAdmin, Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestDemoTransactions(t *testing.T) {
	period := core.Period{Year: 2024, Month: 2}
	txs := demoTransactions(gofakeit.New(42), 7, period, 15)

	if len(txs) != 17 {
		t.Fatalf("got %d transactions, want 17", len(txs))
	}
	if txs[0].Type != core.Income || txs[1].Type != core.Savings {
		t.Fatalf("first rows should be income then savings, got %s %s", txs[0].Type, txs[1].Type)
	}
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			t.Fatalf("invalid demo transaction %+v: %v", tx, err)
		}
		if tx.UserID != 7 {
			t.Fatalf("user id = %d", tx.UserID)
		}
		if !period.Contains(tx.Date) {
			t.Fatalf("date %s outside %s", tx.Date, period)
		}
	}
	if txs[1].Amount > txs[0].Amount/5 {
		t.Fatalf("savings %.2f above a fifth of salary %.2f", txs[1].Amount, txs[0].Amount)
	}

	again := demoTransactions(gofakeit.New(42), 7, period, 15)
	for i := range txs {
		if txs[i] != again[i] {
			t.Fatalf("same seed produced different row %d: %+v vs %+v", i, txs[i], again[i])
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out, quietLogger()); !errors.Is(err, errMissingCommand) {
		t.Fatalf("err = %v, want errMissingCommand", err)
	}
	if !strings.Contains(out.String(), "usage:") {
		t.Fatal("usage not printed")
	}
	if err := run(context.Background(), []string{"frobnicate"}, &out, quietLogger()); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "admin.db")
	var out bytes.Buffer
	if err := run(context.Background(), []string{"migrate", "-db", dbPath}, &out, quietLogger()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "schema version") || strings.Contains(out.String(), "version 0 ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestWriteFileRemovesPartialOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	boom := errors.New("render failed")
	err := writeFile(path, io.Discard, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want render error", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("partial file left behind: %v", statErr)
	}
}
