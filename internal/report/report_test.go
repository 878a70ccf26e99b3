package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Type: core.Income, Amount: 1000, Category: "Salary", Date: core.NewDate(2024, 5, 1)},
		{ID: 2, Type: core.Expense, Amount: 250.5, Category: "Rent", Date: core.NewDate(2024, 5, 2)},
		{ID: 3, Type: core.Expense, Amount: 40, Category: "Food", Date: core.NewDate(2024, 5, 3)},
	}
}

func TestSortedCategories(t *testing.T) {
	got := SortedCategories(map[string]float64{"Food": 40, "Rent": 250.5, "Fun": 40})
	want := []string{"Rent", "Food", "Fun"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("index %d: got %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestWritePDF(t *testing.T) {
	txs := sampleTransactions()
	var buf bytes.Buffer
	err := WritePDF(&buf, Statement{
		Username:     "alice",
		Start:        core.NewDate(2024, 5, 1),
		End:          core.NewDate(2024, 5, 31),
		Currency:     "₹",
		Transactions: txs,
		Totals: core.RangeTotals{
			Totals:           core.Totals{Income: 1000, Expenses: 290.5},
			Balance:          709.5,
			CategoryExpenses: map[string]float64{"Rent": 250.5, "Food": 40},
		},
		GeneratedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestWritePDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, Statement{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatalf("write empty pdf: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected output")
	}
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	s := core.Summary{Period: core.Period{Year: 2024, Month: 5}, Income: 1000, Expenses: 900, Balance: 100}
	WriteSummaryTable(&buf, s, "$", []string{"tip one"})
	out := buf.String()
	for _, want := range []string{"May 2024", "$1000.00", "$100.00", "tip one"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRangeTable(t *testing.T) {
	var buf bytes.Buffer
	WriteRangeTable(&buf, sampleTransactions(), core.RangeTotals{
		Totals:           core.Totals{Income: 1000, Expenses: 290.5},
		Balance:          709.5,
		CategoryExpenses: map[string]float64{"Rent": 250.5, "Food": 40},
	}, "€")
	out := buf.String()
	for _, want := range []string{"2024-05-02", "Rent", "€250.50", "€709.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
