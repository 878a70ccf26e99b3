package core

// Totals holds per-type sums over some window of transactions.
type Totals struct {
	Income   float64
	Expenses float64
	Savings  float64
}

// Add folds one transaction into the totals.
func (t *Totals) Add(tx Transaction) {
	switch tx.Type {
	case Income:
		t.Income += tx.Amount
	case Expense:
		t.Expenses += tx.Amount
	case Savings:
		t.Savings += tx.Amount
	}
}

// Unallocated is income minus expenses and savings, floored at zero.
func (t Totals) Unallocated() float64 {
	return floorZero(t.Income - t.Expenses - t.Savings)
}

// Summary is the monthly dashboard figure set.
type Summary struct {
	Period      Period
	Income      float64
	Expenses    float64
	Savings     float64
	Balance     float64 // max(0, income - expenses - savings) for the period
	Outstanding float64 // lifetime max(0, expenses + savings - income)
}

// NewSummary derives balance and outstanding from period totals and lifetime sums.
func NewSummary(p Period, period Totals, lifetimeIncome, lifetimeOutflow float64) Summary {
	return Summary{
		Period:      p,
		Income:      period.Income,
		Expenses:    period.Expenses,
		Savings:     period.Savings,
		Balance:     period.Unallocated(),
		Outstanding: floorZero(lifetimeOutflow - lifetimeIncome),
	}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount float64
}

// DailyTotals holds per-type sums for a single calendar day.
type DailyTotals struct {
	Date Date
	Totals
}

// RangeTotals is what a range view re-derives from filtered transactions.
type RangeTotals struct {
	Totals
	Balance          float64
	CategoryExpenses map[string]float64
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
