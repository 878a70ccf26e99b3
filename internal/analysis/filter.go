package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

var ErrInvalidRange = errors.New("start date after end date")

// RangeFilter retrieves transactions over an arbitrary date window.
type RangeFilter struct {
	store RangeReader
}

func NewRangeFilter(store RangeReader) *RangeFilter {
	return &RangeFilter{store: store}
}

// Query returns transactions dated within [start, end], both inclusive,
// ordered by date with ties in store order. An empty category disables
// category filtering.
func (f *RangeFilter) Query(ctx context.Context, userID int64, start, end core.Date, category string) ([]core.Transaction, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	txs, err := f.store.TransactionsInRange(ctx, userID, start, end, category)
	if err != nil {
		return nil, fmt.Errorf("transactions in range: %w", err)
	}
	return txs, nil
}

// ValidateRange rejects unset dates and windows whose start is after the end.
func ValidateRange(start, end core.Date) error {
	if err := start.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	if err := end.Validate(); err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	if start.After(end.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Filter is Query that degrades to an empty slice on failure.
func (f *RangeFilter) Filter(ctx context.Context, userID int64, start, end core.Date, category string) []core.Transaction {
	txs, err := f.Query(ctx, userID, start, end, category)
	if err != nil {
		slog.ErrorContext(ctx, "Range filter failed, returning no transactions",
			"user_id", userID,
			"start", start.String(),
			"end", end.String(),
			"category", category,
			"error", err)
		return []core.Transaction{}
	}
	if txs == nil {
		return []core.Transaction{}
	}
	return txs
}

// Derive re-computes per-type sums and per-category expenses over txs.
// Balance is not floored here, unlike the monthly Summary.
func Derive(txs []core.Transaction) core.RangeTotals {
	rt := core.RangeTotals{CategoryExpenses: make(map[string]float64)}
	for _, tx := range txs {
		rt.Add(tx)
		if tx.Type == core.Expense {
			rt.CategoryExpenses[tx.Category] += tx.Amount
		}
	}
	rt.Balance = rt.Income - rt.Expenses - rt.Savings
	return rt
}
