// Package report renders range statements as PDF documents and text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/phpdave11/gofpdf"

	"fintrack/internal/core"
)

const maxStatementRows = 2000

// Statement is the data behind one range statement.
type Statement struct {
	Username     string
	Start        core.Date
	End          core.Date
	Category     string
	Currency     string
	Transactions []core.Transaction
	Totals       core.RangeTotals
	GeneratedAt  time.Time
}

// pdfCurrency maps symbols the core PDF fonts cannot encode to a text form.
func pdfCurrency(symbol string) string {
	switch symbol {
	case "₹":
		return "Rs."
	case "":
		return pdfCurrency(core.DefaultCurrency)
	default:
		return symbol
	}
}

// WritePDF renders s as an A4 statement.
func WritePDF(w io.Writer, s Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	cur := tr(pdfCurrency(s.Currency))
	money := func(v float64) string { return cur + " " + core.FormatAmount(v) }

	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 10, "Transaction Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Period: "+s.Start.String()+" to "+s.End.String())
	pdf.Ln(5)
	if s.Username != "" {
		pdf.Cell(0, 6, "User: "+tr(s.Username))
		pdf.Ln(5)
	}
	if s.Category != "" {
		pdf.Cell(0, 6, "Category: "+tr(s.Category))
		pdf.Ln(5)
	}
	pdf.Ln(5)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 10)
	sumW := []float64{45.5, 45.5, 45.5, 45.5}
	pdf.CellFormat(sumW[0], 9, "Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 9, "Expenses", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 9, "Savings", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[3], 9, "Balance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(sumW[0], 9, money(s.Totals.Income), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 9, money(s.Totals.Expenses), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 9, money(s.Totals.Savings), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[3], 9, money(s.Totals.Balance), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	if len(s.Totals.CategoryExpenses) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, "Expenses by category")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, ca := range SortedCategories(s.Totals.CategoryExpenses) {
			pdf.CellFormat(120, 7, tr(ca.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(62, 7, money(ca.Amount), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(6)
	}

	colW := []float64{30, 30, 82, 40}
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(colW[0], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[2], 8, "CATEGORY", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "AMOUNT", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	if len(s.Transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions in this range", "1", 1, "C", false, 0, "")
	}
	for i, tx := range s.Transactions {
		if i >= maxStatementRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, fmt.Sprintf("%d more rows not shown", len(s.Transactions)-i), "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(colW[0], 7, tx.Date.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 7, tx.Type.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 7, tr(trimTo(tx.Category, 45)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 7, money(tx.Amount), "1", 1, "R", false, 0, "")
	}

	generated := s.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated by fintrack - "+generated.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write statement pdf: %w", err)
	}
	return nil
}

// SortedCategories orders a category map by amount, largest first, then name.
func SortedCategories(m map[string]float64) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func trimTo(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
