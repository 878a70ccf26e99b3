package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

type failingExporter struct {
	calls int
}

func (f *failingExporter) Export(context.Context, core.Transaction) (string, error) {
	f.calls++
	return "", errors.New("sheets unavailable")
}

// rejectingExporter refuses some transactions and delegates the rest.
type rejectingExporter struct {
	*memory.Store
	reject map[int64]bool
}

func (r *rejectingExporter) Export(ctx context.Context, tx core.Transaction) (string, error) {
	if r.reject[tx.ID] {
		return "", errors.New("row rejected")
	}
	return r.Store.Export(ctx, tx)
}

func newRepo(t *testing.T) (*storage.SQLiteRepository, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return repo, u.ID
}

func addTx(t *testing.T, repo *storage.SQLiteRepository, userID int64, amount float64) core.Transaction {
	t.Helper()
	tx, err := repo.AddTransaction(context.Background(), core.Transaction{
		UserID: userID, Type: core.Expense, Amount: amount, Category: "Food", Date: core.NewDate(2024, 5, 1),
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return tx
}

func TestHandleTransactionRecorded(t *testing.T) {
	repo, uid := newRepo(t)
	ctx := context.Background()
	exp := memory.New()
	w := NewExportWorker(repo, exp, 10)

	tx := addTx(t, repo, uid, 12)
	msg := amqp.NewTransactionRecorded(tx)

	if err := w.HandleTransactionRecorded(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// Redelivery must not export twice.
	if err := w.HandleTransactionRecorded(ctx, msg); err != nil {
		t.Fatalf("handle redelivery: %v", err)
	}

	if got := exp.Exported(); len(got) != 1 || got[0] != tx {
		t.Fatalf("exported = %v", got)
	}
	ref, err := repo.ExportRef(ctx, tx.ID)
	if err != nil || ref != "mem:1" {
		t.Fatalf("export ref = %q err=%v", ref, err)
	}
}

func TestHandleTransactionRecordedMissingRow(t *testing.T) {
	repo, _ := newRepo(t)
	w := NewExportWorker(repo, memory.New(), 10)

	err := w.HandleTransactionRecorded(context.Background(), &amqp.TransactionRecorded{TransactionID: 404})
	if err != nil {
		t.Fatalf("missing rows should be dropped, got %v", err)
	}
}

func TestHandleTransactionRecordedExportFailure(t *testing.T) {
	repo, uid := newRepo(t)
	exp := &failingExporter{}
	w := NewExportWorker(repo, exp, 10)
	tx := addTx(t, repo, uid, 1)

	if err := w.HandleTransactionRecorded(context.Background(), amqp.NewTransactionRecorded(tx)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	ids, err := repo.PendingExport(context.Background(), 10)
	if err != nil || len(ids) != 1 || ids[0] != tx.ID {
		t.Fatalf("transaction should stay pending: ids=%v err=%v", ids, err)
	}
}

func TestProcessPending(t *testing.T) {
	repo, uid := newRepo(t)
	ctx := context.Background()
	exp := memory.New()
	w := NewExportWorker(repo, exp, 2)

	for i := 0; i < 3; i++ {
		addTx(t, repo, uid, float64(i+1))
	}

	n, err := w.ProcessPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first batch: n=%d err=%v", n, err)
	}
	n, err = w.ProcessPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second batch: n=%d err=%v", n, err)
	}
	n, err = w.ProcessPending(ctx)
	if err != nil || n != 0 {
		t.Fatalf("nothing left: n=%d err=%v", n, err)
	}
	if len(exp.Exported()) != 3 {
		t.Fatalf("exported %d transactions, want 3", len(exp.Exported()))
	}
}

func TestProcessPendingContinuesPastFailures(t *testing.T) {
	repo, uid := newRepo(t)
	exp := &failingExporter{}
	w := NewExportWorker(repo, exp, 10)
	addTx(t, repo, uid, 1)
	addTx(t, repo, uid, 2)

	n, err := w.StartupSweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if exp.calls != 2 {
		t.Fatalf("exporter calls = %d, want 2", exp.calls)
	}
}

func TestProcessPendingNotStuckBehindFailingRows(t *testing.T) {
	repo, uid := newRepo(t)
	ctx := context.Background()

	bad1 := addTx(t, repo, uid, 1)
	bad2 := addTx(t, repo, uid, 2)
	good := addTx(t, repo, uid, 3)

	exp := &rejectingExporter{Store: memory.New(), reject: map[int64]bool{bad1.ID: true, bad2.ID: true}}
	w := NewExportWorker(repo, exp, 2)

	if n, err := w.ProcessPending(ctx); err != nil || n != 0 {
		t.Fatalf("first sweep: n=%d err=%v", n, err)
	}
	if n, err := w.ProcessPending(ctx); err != nil || n != 1 {
		t.Fatalf("second sweep: n=%d err=%v, want the newer row exported", n, err)
	}
	if ref, err := repo.ExportRef(ctx, good.ID); err != nil || ref == "" {
		t.Fatalf("transaction %d not exported: ref=%q err=%v", good.ID, ref, err)
	}
}

func TestSchedule(t *testing.T) {
	repo, _ := newRepo(t)
	w := NewExportWorker(repo, memory.New(), 0)
	c := cron.New()

	if _, err := w.Schedule(context.Background(), c, "@every 30s"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("entries = %d", len(c.Entries()))
	}
	if _, err := w.Schedule(context.Background(), c, "not a spec"); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
