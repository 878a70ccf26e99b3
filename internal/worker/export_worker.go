// Package worker exports stored transactions to the configured ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ExportRef(ctx context.Context, id int64) (string, error)
	PendingExport(ctx context.Context, limit int) ([]int64, error)
	MarkExported(ctx context.Context, id int64, ref string) error
	RecordExportFailure(ctx context.Context, id int64) error
}

// ExportWorker moves transactions from the store to a TransactionExporter.
type ExportWorker struct {
	store     Store
	exporter  sheets.TransactionExporter
	batchSize int
	events    *applog.StructuredLogger

	// serializes exports so the sweep and the consumer never write the same row twice
	mu sync.Mutex
}

func NewExportWorker(store Store, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		events:    applog.NewStructuredLogger(applog.Default(applog.ComponentWorker)),
	}
}

// HandleTransactionRecorded processes a single event from AMQP.
func (w *ExportWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecorded) error {
	slog.DebugContext(ctx, "Processing transaction event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldTxID, msg.TransactionID,
		"message_id", msg.MessageID)

	err := w.exportOne(ctx, msg.TransactionID)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing to export; requeueing would loop forever.
		slog.WarnContext(ctx, "Transaction from event not found, dropping",
			applog.FieldTxID, msg.TransactionID)
		return nil
	}
	return err
}

// ProcessPending exports up to one batch of transactions that were never
// exported, covering events lost while the worker was down.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSweep runs a larger pending batch before consuming events.
func (w *ExportWorker) StartupSweep(ctx context.Context) (int, error) {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return n, err
	}
	slog.InfoContext(ctx, "Startup export sweep completed",
		applog.FieldComponent, applog.ComponentWorker,
		"exported", n)
	return n, nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (int, error) {
	ids, err := w.store.PendingExport(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions",
		applog.FieldComponent, applog.ComponentWorker,
		"count", len(ids))

	exported := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.exportOne(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				applog.FieldTxID, id,
				applog.FieldError, err)
			continue
		}
		exported++
	}
	return exported, nil
}

// Schedule registers the pending sweep on c using a standard cron spec or
// descriptor such as "@every 30s".
func (w *ExportWorker) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Scheduled export sweep failed",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldOperation, applog.OpSweep,
				applog.FieldError, err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule export sweep %q: %w", spec, err)
	}
	return id, nil
}

func (w *ExportWorker) exportOne(ctx context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref, err := w.store.ExportRef(ctx, id)
	if err != nil {
		return fmt.Errorf("check export state: %w", err)
	}
	if ref != "" {
		slog.DebugContext(ctx, "Transaction already exported", applog.FieldTxID, id, applog.FieldExportRef, ref)
		return nil
	}

	tx, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err = w.exporter.Export(ctx, tx)
	if err != nil {
		// Failed rows sort behind fresh ones in the next sweep.
		if ferr := w.store.RecordExportFailure(ctx, id); ferr != nil {
			slog.WarnContext(ctx, "Failed to record export attempt",
				applog.FieldTxID, id,
				applog.FieldError, ferr)
		}
		return fmt.Errorf("export transaction %d: %w", id, err)
	}

	if err := w.store.MarkExported(ctx, id, ref); err != nil {
		return fmt.Errorf("mark transaction %d exported: %w", id, err)
	}

	w.events.LogExported(ctx, id, ref)
	return nil
}
