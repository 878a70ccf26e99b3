package report

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"fintrack/internal/core"
)

// WriteSummaryTable prints the monthly figures followed by the advice lines.
func WriteSummaryTable(w io.Writer, s core.Summary, currency string, advice []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Period", "Income", "Expenses", "Savings", "Balance", "Outstanding"})
	table.Append([]string{
		s.Period.Label(),
		core.FormatMoney(currency, s.Income),
		core.FormatMoney(currency, s.Expenses),
		core.FormatMoney(currency, s.Savings),
		core.FormatMoney(currency, s.Balance),
		core.FormatMoney(currency, s.Outstanding),
	})
	table.Render()

	if len(advice) == 0 {
		return
	}
	tips := tablewriter.NewWriter(w)
	tips.SetHeader([]string{"Advice"})
	tips.SetAutoWrapText(false)
	for _, a := range advice {
		tips.Append([]string{a})
	}
	tips.Render()
}

// WriteRangeTable prints transactions of a range with derived totals in the footer.
func WriteRangeTable(w io.Writer, txs []core.Transaction, totals core.RangeTotals, currency string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Type", "Category", "Amount"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, tx := range txs {
		table.Append([]string{
			strconv.FormatInt(tx.ID, 10),
			tx.Date.String(),
			tx.Type.String(),
			tx.Category,
			core.FormatMoney(currency, tx.Amount),
		})
	}
	table.Render()

	sums := tablewriter.NewWriter(w)
	sums.SetHeader([]string{"Income", "Expenses", "Savings", "Balance"})
	sums.Append([]string{
		core.FormatMoney(currency, totals.Income),
		core.FormatMoney(currency, totals.Expenses),
		core.FormatMoney(currency, totals.Savings),
		core.FormatMoney(currency, totals.Balance),
	})
	sums.Render()

	if len(totals.CategoryExpenses) == 0 {
		return
	}
	cats := tablewriter.NewWriter(w)
	cats.SetHeader([]string{"Category", "Expenses"})
	for _, ca := range SortedCategories(totals.CategoryExpenses) {
		cats.Append([]string{ca.Name, core.FormatMoney(currency, ca.Amount)})
	}
	cats.Render()
}
