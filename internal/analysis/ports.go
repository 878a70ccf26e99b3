// Package analysis turns stored transactions into the monthly summary, the
// spending advice and the date-range views shown to a user.
package analysis

import (
	"context"

	"fintrack/internal/core"
)

// PeriodReader is the store surface needed for monthly aggregation and advice.
type PeriodReader interface {
	PeriodTotals(ctx context.Context, userID int64, period core.Period) (core.Totals, error)
	LifetimeTotals(ctx context.Context, userID int64) (income, outflow float64, err error)
	CategorySums(ctx context.Context, userID int64, period core.Period) ([]core.CategoryAmount, error)
}

// CurrencyReader resolves the display currency of a user.
type CurrencyReader interface {
	Currency(ctx context.Context, userID int64) (string, error)
}

// RangeReader is the store surface needed by the range filter.
type RangeReader interface {
	TransactionsInRange(ctx context.Context, userID int64, start, end core.Date, category string) ([]core.Transaction, error)
}
