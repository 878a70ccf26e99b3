package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newFixture(t *testing.T) (*storage.SQLiteRepository, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "analysis.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	rows := []struct {
		typ      core.TransactionType
		amount   float64
		category string
		date     string
	}{
		{core.Income, 2500, "Salary", "2024-05-01"},
		{core.Expense, 900, "Rent", "2024-05-02"},
		{core.Expense, 45.5, "Food", "2024-05-02"},
		{core.Savings, 300, "Fund", "2024-05-15"},
		{core.Expense, 12.25, "Food", "2024-05-31"},
		{core.Expense, 80, "Food", "2024-04-30"},
		{core.Income, 100, "Gift", "2024-06-01"},
	}
	for _, r := range rows {
		d, _ := core.ParseDate(r.date)
		_, err := repo.AddTransaction(context.Background(), core.Transaction{
			UserID: u.ID, Type: r.typ, Amount: r.amount, Category: r.category, Date: d,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo, u.ID
}

func TestRangeSumsMatchAggregator(t *testing.T) {
	repo, userID := newFixture(t)
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: 5}

	summary, err := NewAggregator(repo, repo, "").Compute(ctx, userID, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	txs := NewRangeFilter(repo).Filter(ctx, userID, p.First(), p.Last(), "")
	derived := Derive(txs)

	if derived.Income != summary.Income || derived.Expenses != summary.Expenses || derived.Savings != summary.Savings {
		t.Fatalf("range totals %+v differ from summary %+v", derived.Totals, summary)
	}
	if derived.CategoryExpenses["Food"] != 57.75 || derived.CategoryExpenses["Rent"] != 900 {
		t.Fatalf("unexpected category map: %v", derived.CategoryExpenses)
	}
	if _, ok := derived.CategoryExpenses["Salary"]; ok {
		t.Fatalf("income category leaked into expenses: %v", derived.CategoryExpenses)
	}
}

func TestFilterSingleDay(t *testing.T) {
	repo, userID := newFixture(t)
	day := core.NewDate(2024, 5, 2)

	txs := NewRangeFilter(repo).Filter(context.Background(), userID, day, day, "")
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	for _, tx := range txs {
		if tx.Date.String() != "2024-05-02" {
			t.Fatalf("unexpected date %s", tx.Date)
		}
	}
	if txs[0].ID > txs[1].ID {
		t.Fatalf("same-day rows not in store order: %d, %d", txs[0].ID, txs[1].ID)
	}

	again := NewRangeFilter(repo).Filter(context.Background(), userID, day, day, "")
	for i := range txs {
		if txs[i].ID != again[i].ID {
			t.Fatalf("ordering not stable")
		}
	}
}

func TestFilterCategory(t *testing.T) {
	repo, userID := newFixture(t)
	txs := NewRangeFilter(repo).Filter(context.Background(), userID,
		core.NewDate(2024, 4, 1), core.NewDate(2024, 6, 30), "Food")
	if len(txs) != 3 {
		t.Fatalf("expected 3 food rows, got %d", len(txs))
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].Date.Before(txs[i-1].Date.Time) {
			t.Fatalf("rows not ascending by date")
		}
	}
}

func TestFilterDegradesToEmpty(t *testing.T) {
	f := NewRangeFilter(&fakeStore{transactionErr: errors.New("db down")})
	got := f.Filter(context.Background(), 1, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31), "")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}

	if _, err := f.Query(context.Background(), 1, core.NewDate(2024, 2, 1), core.NewDate(2024, 1, 1), ""); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestValidateRange(t *testing.T) {
	day := core.NewDate(2024, 3, 10)
	tests := []struct {
		name       string
		start, end core.Date
		want       error
	}{
		{"single day", day, day, nil},
		{"inverted", core.NewDate(2024, 3, 11), day, ErrInvalidRange},
		{"unset start", core.Date{}, day, core.ErrInvalidDate},
		{"unset end", day, core.Date{}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.start, tt.end)
			if (tt.want == nil && err != nil) || (tt.want != nil && !errors.Is(err, tt.want)) {
				t.Fatalf("ValidateRange = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeriveBalanceNotFloored(t *testing.T) {
	rt := Derive([]core.Transaction{
		{Type: core.Income, Amount: 100, Category: "Salary"},
		{Type: core.Expense, Amount: 150, Category: "Rent"},
		{Type: core.Savings, Amount: 20, Category: "Fund"},
	})
	if rt.Balance != -70 {
		t.Fatalf("balance = %v, want -70", rt.Balance)
	}
	if len(rt.CategoryExpenses) != 1 || rt.CategoryExpenses["Rent"] != 150 {
		t.Fatalf("unexpected categories: %v", rt.CategoryExpenses)
	}
}
