// Package chart renders the monthly cumulative overview image.
package chart

import (
	"context"
	"errors"
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fintrack/internal/core"
)

var ErrNoData = errors.New("no transactions in period")

const (
	defaultWidth  = 600
	defaultHeight = 300
)

var (
	incomeColor   = drawing.ColorFromHex("2e7d32")
	expensesColor = drawing.ColorFromHex("c62828")
	savingsColor  = drawing.ColorFromHex("1565c0")
)

// DailyReader is the store surface the renderer reads from.
type DailyReader interface {
	DailyTotals(ctx context.Context, userID int64, period core.Period) ([]core.DailyTotals, error)
}

// Series holds running totals per day of month. Index 0 is the zero
// anchor for day 0 so a single-day month still draws a segment.
type Series struct {
	Days     []float64
	Income   []float64
	Expenses []float64
	Savings  []float64
}

// Cumulative folds per-day totals into running sums.
func Cumulative(days []core.DailyTotals) Series {
	s := Series{
		Days:     make([]float64, 0, len(days)+1),
		Income:   make([]float64, 0, len(days)+1),
		Expenses: make([]float64, 0, len(days)+1),
		Savings:  make([]float64, 0, len(days)+1),
	}
	s.Days = append(s.Days, 0)
	s.Income = append(s.Income, 0)
	s.Expenses = append(s.Expenses, 0)
	s.Savings = append(s.Savings, 0)

	var running core.Totals
	for _, d := range days {
		running.Income += d.Income
		running.Expenses += d.Expenses
		running.Savings += d.Savings
		s.Days = append(s.Days, float64(d.Date.Day()))
		s.Income = append(s.Income, running.Income)
		s.Expenses = append(s.Expenses, running.Expenses)
		s.Savings = append(s.Savings, running.Savings)
	}
	return s
}

// Max returns the largest running total across all three series.
func (s Series) Max() float64 {
	var m float64
	for _, vs := range [][]float64{s.Income, s.Expenses, s.Savings} {
		for _, v := range vs {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Renderer draws the dashboard chart as PNG.
type Renderer struct {
	store  DailyReader
	width  int
	height int
}

func NewRenderer(store DailyReader) *Renderer {
	return &Renderer{store: store, width: defaultWidth, height: defaultHeight}
}

// Render writes the PNG for the user's period to w. It returns ErrNoData
// when the period holds no transactions, writing nothing.
func (r *Renderer) Render(ctx context.Context, w io.Writer, userID int64, period core.Period) error {
	days, err := r.store.DailyTotals(ctx, userID, period)
	if err != nil {
		return fmt.Errorf("load daily totals: %w", err)
	}
	if len(days) == 0 {
		return ErrNoData
	}
	return r.RenderSeries(w, period, Cumulative(days))
}

// RenderSeries draws an already folded series.
func (r *Renderer) RenderSeries(w io.Writer, period core.Period, s Series) error {
	maxY := s.Max()
	if maxY < 1 {
		maxY = 1
	}

	graph := gochart.Chart{
		Title:  "Financial Overview - " + period.Label(),
		Width:  r.width,
		Height: r.height,
		Background: gochart.Style{
			Padding: gochart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		XAxis: gochart.XAxis{
			Name:  "Day of Month",
			Range: &gochart.ContinuousRange{Min: 0, Max: 31},
		},
		YAxis: gochart.YAxis{
			Name:  "Amount",
			Range: &gochart.ContinuousRange{Min: 0, Max: maxY * 1.05},
		},
		Series: []gochart.Series{
			line("Income", s.Days, s.Income, incomeColor),
			line("Expenses", s.Days, s.Expenses, expensesColor),
			line("Savings", s.Days, s.Savings, savingsColor),
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func line(name string, xs, ys []float64, color drawing.Color) gochart.ContinuousSeries {
	return gochart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: color,
			StrokeWidth: 2,
		},
	}
}
