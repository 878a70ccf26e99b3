package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
	Savings TransactionType = "Savings"
)

// DefaultCurrency is shown when a user has no profile row.
const DefaultCurrency = "₹"

const dateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID       int64
		UserID   int64
		Type     TransactionType
		Amount   float64
		Category string
		Date     Date
	}

	Profile struct {
		UserID   int64
		FullName string
		Email    string
		Phone    string
		Address  string
		Currency string
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrEmptyUsername   = errors.New("empty username")
	ErrInvalidCurrency = errors.New("invalid currency")
)

// TransactionTypes lists the accepted types in display order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Income, Expense, Savings}
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Savings:
		return true
	default:
		return false
	}
}

// ParseTransactionType accepts the canonical names case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	s = strings.TrimSpace(s)
	for _, t := range TransactionTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", ErrInvalidType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// String returns the ISO form, the same text stored in the database.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Period returns the year-month bucket the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: int(d.Month())}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Category) > 100 {
		return errors.New("category too long (max 100 characters)")
	}
	return t.Date.Validate()
}

func (p Profile) Validate() error {
	if len(p.Currency) > 8 {
		return ErrInvalidCurrency
	}
	if len(p.FullName) > 200 || len(p.Address) > 500 {
		return errors.New("profile field too long")
	}
	return nil
}

// CurrencyOrDefault returns the profile currency, falling back to DefaultCurrency.
func (p Profile) CurrencyOrDefault() string {
	if strings.TrimSpace(p.Currency) == "" {
		return DefaultCurrency
	}
	return p.Currency
}
