package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

const (
	MsgOverspending   = "⚠️ You're spending more than you earn this month! Consider reducing expenses."
	MsgSaveMore       = "💡 You're saving some money, but try to save at least 20% of your income."
	MsgHealthySaving  = "✅ Great job! You're saving a healthy portion of your income."
	MsgNoExpenses     = "🌟 You haven't recorded any expenses this month. Great savings!"
	MsgNoIncome       = "🔄 You haven't recorded any income this month. Don't forget to track your earnings!"
	MsgKeepTracking   = "📊 Keep tracking your expenses for better insights."
	MsgAnalysisFailed = "An error occurred while analyzing your spending."
)

const (
	targetSavingsRate  = 0.20
	concentrationLimit = 50.0
	highSpendLimit     = 30.0
)

// ConcentrationMessage is emitted for a category above half of all expenses.
func ConcentrationMessage(category string, percent float64) string {
	return fmt.Sprintf("⚠️ You're spending %.1f%% of your expenses on '%s'. Consider diversifying.", percent, category)
}

// HighSpendMessage is emitted for a category above 30% but not above 50%.
func HighSpendMessage(category string) string {
	return fmt.Sprintf("💸 You're spending a lot on '%s'. Maybe look for ways to reduce this expense.", category)
}

// Evaluate applies the advice rules in order. categories must be sorted by
// amount, largest first; messages for them keep that order.
func Evaluate(income, expense float64, categories []core.CategoryAmount) []string {
	var advice []string

	if income > 0 {
		left := income - expense
		switch {
		case left < 0:
			advice = append(advice, MsgOverspending)
		case left < targetSavingsRate*income:
			advice = append(advice, MsgSaveMore)
		default:
			advice = append(advice, MsgHealthySaving)
		}
	}

	if expense > 0 {
		for _, c := range categories {
			percent := c.Amount / expense * 100
			if percent > concentrationLimit {
				advice = append(advice, ConcentrationMessage(c.Name, percent))
			} else if percent > highSpendLimit {
				advice = append(advice, HighSpendMessage(c.Name))
			}
		}
	}

	if income > 0 && expense == 0 {
		advice = append(advice, MsgNoExpenses)
	}

	if income == 0 {
		advice = append(advice, MsgNoIncome)
	}

	if len(advice) == 0 {
		advice = append(advice, MsgKeepTracking)
	}

	return advice
}

// Advisor produces spending advice for a user's month.
type Advisor struct {
	store PeriodReader
}

func NewAdvisor(store PeriodReader) *Advisor {
	return &Advisor{store: store}
}

// Advise never fails: any store error collapses the result to the single
// MsgAnalysisFailed entry.
func (a *Advisor) Advise(ctx context.Context, userID int64, period core.Period) []string {
	totals, err := a.store.PeriodTotals(ctx, userID, period)
	if err != nil {
		return a.fallback(ctx, userID, period, err)
	}

	categories, err := a.store.CategorySums(ctx, userID, period)
	if err != nil {
		return a.fallback(ctx, userID, period, err)
	}

	return Evaluate(totals.Income, totals.Expenses, categories)
}

func (a *Advisor) fallback(ctx context.Context, userID int64, period core.Period, err error) []string {
	slog.ErrorContext(ctx, "Spending analysis failed",
		"user_id", userID,
		"period", period.Key(),
		"error", err)
	return []string{MsgAnalysisFailed}
}
