package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"fintrack/internal/analysis"
	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/report"
)

// RangeView is a filtered transaction list with its derived totals.
type RangeView struct {
	Transactions []core.Transaction
	Totals       core.RangeTotals
	Currency     string
}

// UserReader resolves the username printed on statements.
type UserReader interface {
	UserByID(ctx context.Context, id int64) (core.User, error)
}

// ReportService builds range statistics, PDF statements and charts.
type ReportService struct {
	filter     *analysis.RangeFilter
	aggregator *analysis.Aggregator
	renderer   *chart.Renderer
	users      UserReader
	now        func() time.Time
}

func NewReportService(filter *analysis.RangeFilter, aggregator *analysis.Aggregator, renderer *chart.Renderer, users UserReader) *ReportService {
	return &ReportService{
		filter:     filter,
		aggregator: aggregator,
		renderer:   renderer,
		users:      users,
		now:        time.Now,
	}
}

// Statistics returns transactions in [start, end] with derived totals.
// Invalid dates or an inverted range are returned as errors; store failures
// degrade to an empty view.
func (s *ReportService) Statistics(ctx context.Context, userID int64, start, end core.Date, category string) (RangeView, error) {
	if err := analysis.ValidateRange(start, end); err != nil {
		return RangeView{}, err
	}
	txs := s.filter.Filter(ctx, userID, start, end, category)

	return RangeView{
		Transactions: txs,
		Totals:       analysis.Derive(txs),
		Currency:     s.aggregator.Currency(ctx, userID),
	}, nil
}

// Statement builds the printable statement for a range.
func (s *ReportService) Statement(ctx context.Context, userID int64, start, end core.Date, category string) (report.Statement, error) {
	view, err := s.Statistics(ctx, userID, start, end, category)
	if err != nil {
		return report.Statement{}, err
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return report.Statement{}, fmt.Errorf("statement owner: %w", err)
	}

	return report.Statement{
		Username:     user.Username,
		Start:        start,
		End:          end,
		Category:     category,
		Currency:     view.Currency,
		Transactions: view.Transactions,
		Totals:       view.Totals,
		GeneratedAt:  s.now(),
	}, nil
}

// WriteStatementPDF renders the statement for a range as PDF into w.
func (s *ReportService) WriteStatementPDF(ctx context.Context, w io.Writer, userID int64, start, end core.Date, category string) error {
	st, err := s.Statement(ctx, userID, start, end, category)
	if err != nil {
		return err
	}
	return report.WritePDF(w, st)
}

// Chart writes the cumulative monthly chart as PNG. chart.ErrNoData is
// returned for an empty month.
func (s *ReportService) Chart(ctx context.Context, w io.Writer, userID int64, period core.Period) error {
	return s.renderer.Render(ctx, w, userID, period)
}
