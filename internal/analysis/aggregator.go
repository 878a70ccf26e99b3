package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// Aggregator computes the monthly dashboard figures.
type Aggregator struct {
	store           PeriodReader
	currencies      CurrencyReader
	defaultCurrency string
}

// NewAggregator builds an Aggregator. An empty defaultCurrency means core.DefaultCurrency.
func NewAggregator(store PeriodReader, currencies CurrencyReader, defaultCurrency string) *Aggregator {
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrency
	}
	return &Aggregator{
		store:           store,
		currencies:      currencies,
		defaultCurrency: defaultCurrency,
	}
}

// Compute returns the period summary or the first store error.
func (a *Aggregator) Compute(ctx context.Context, userID int64, period core.Period) (core.Summary, error) {
	totals, err := a.store.PeriodTotals(ctx, userID, period)
	if err != nil {
		return core.Summary{Period: period}, fmt.Errorf("period totals: %w", err)
	}

	income, outflow, err := a.store.LifetimeTotals(ctx, userID)
	if err != nil {
		return core.Summary{Period: period}, fmt.Errorf("lifetime totals: %w", err)
	}

	return core.NewSummary(period, totals, income, outflow), nil
}

// Summarize is Compute with the dashboard fallback: on store failure the
// failure is logged and the zero summary for the period is returned with
// ok=false. Callers must not cache a summary that is not ok.
func (a *Aggregator) Summarize(ctx context.Context, userID int64, period core.Period) (core.Summary, bool) {
	s, err := a.Compute(ctx, userID, period)
	if err != nil {
		slog.ErrorContext(ctx, "Aggregation failed, using zero summary",
			"user_id", userID,
			"period", period.Key(),
			"error", err)
		return core.Summary{Period: period}, false
	}
	return s, true
}

// Currency returns the user's display currency. A missing profile or a
// failed lookup both yield the default.
func (a *Aggregator) Currency(ctx context.Context, userID int64) string {
	if a.currencies == nil {
		return a.defaultCurrency
	}
	c, err := a.currencies.Currency(ctx, userID)
	if err != nil || c == "" {
		return a.defaultCurrency
	}
	return c
}
