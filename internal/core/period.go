package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar year-month bucket, keyed as "YYYY-MM".
type Period struct {
	Year  int
	Month int // 1-12
}

// ParsePeriod parses a "YYYY-MM" key.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Period{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

func (p Period) Validate() error {
	if p.Year < 1 || p.Year > 9999 || p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	return nil
}

// Key returns the "YYYY-MM" form, matching substr(date,1,7) of a stored date.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return p.Key()
}

// Label returns a human form such as "May 2024".
func (p Period) Label() string {
	return time.Month(p.Month).String() + " " + strconv.Itoa(p.Year)
}

// First returns the first calendar day of the period.
func (p Period) First() Date {
	return NewDate(p.Year, p.Month, 1)
}

// Last returns the last calendar day of the period.
func (p Period) Last() Date {
	return Date{Time: p.First().AddDate(0, 1, -1)}
}

// Contains reports whether d falls in the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && int(d.Month()) == p.Month
}

// Previous returns the period before p.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}
