// Package core provides money parsing and handling utilities.
//
// Amounts travel through the system as float64 so that comparisons in the
// advice rules behave like the stored REAL values. Parsing and display go
// through decimal to keep user input and output exact to the cent.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to two decimal places. Zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Round(2).Float64()
	return f, nil
}

// FormatAmount renders v with two decimals, e.g. "1234.50".
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatMoney prefixes FormatAmount with a currency symbol.
func FormatMoney(currency string, v float64) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	if v < 0 {
		return "-" + currency + FormatAmount(-v)
	}
	return currency + FormatAmount(v)
}
