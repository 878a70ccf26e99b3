package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type (
	credentialsRequest struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	transactionRequest struct {
		Type     string   `json:"type" validate:"required,oneof=Income Expense Savings"`
		Amount   *float64 `json:"amount" validate:"required,gte=0"`
		Category string   `json:"category" validate:"required,max=100"`
		Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	}

	profileRequest struct {
		FullName string `json:"full_name" validate:"max=200"`
		Email    string `json:"email" validate:"omitempty,email,max=200"`
		Phone    string `json:"phone" validate:"max=30"`
		Address  string `json:"address" validate:"max=500"`
		Currency string `json:"currency" validate:"max=8"`
	}
)

// toTransaction converts a validated request. Amounts are rounded to cents.
func (req transactionRequest) toTransaction(userID int64) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(strconv.FormatFloat(*req.Amount, 'f', -1, 64))
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:   userID,
		Type:     typ,
		Amount:   amount,
		Category: strings.TrimSpace(req.Category),
		Date:     date,
	}, nil
}

func (req profileRequest) toProfile(userID int64) core.Profile {
	return core.Profile{
		UserID:   userID,
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		Currency: strings.TrimSpace(req.Currency),
	}
}

// parsePeriod reads ?month=YYYY-MM, defaulting to the current month.
func parsePeriod(r *http.Request, now time.Time) (core.Period, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.CurrentPeriod(now), nil
	}
	return core.ParsePeriod(v)
}

type dateRange struct {
	Start    core.Date
	End      core.Date
	Category string
}

// parseRange reads start_date, end_date (both required) and the optional category.
func parseRange(r *http.Request) (dateRange, error) {
	q := r.URL.Query()
	start, err := core.ParseDate(strings.TrimSpace(q.Get("start_date")))
	if err != nil {
		return dateRange{}, err
	}
	end, err := core.ParseDate(strings.TrimSpace(q.Get("end_date")))
	if err != nil {
		return dateRange{}, err
	}
	return dateRange{Start: start, End: end, Category: strings.TrimSpace(q.Get("category"))}, nil
}

type (
	userResponse struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}

	loginResponse struct {
		Token     string       `json:"token"`
		TokenType string       `json:"token_type"`
		ExpiresAt time.Time    `json:"expires_at"`
		User      userResponse `json:"user"`
	}

	transactionResponse struct {
		ID       int64   `json:"id"`
		Type     string  `json:"type"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Date     string  `json:"date"`
	}

	dashboardResponse struct {
		Period         string   `json:"period"`
		PreviousPeriod string   `json:"previous_period"`
		Label          string   `json:"label"`
		Currency       string   `json:"currency"`
		Income         float64  `json:"income"`
		Expenses       float64  `json:"expenses"`
		Savings        float64  `json:"savings"`
		Balance        float64  `json:"balance"`
		Outstanding    float64  `json:"outstanding"`
		Advice         []string `json:"advice"`
	}

	statisticsResponse struct {
		StartDate        string                `json:"start_date"`
		EndDate          string                `json:"end_date"`
		Category         string                `json:"category,omitempty"`
		Currency         string                `json:"currency"`
		Income           float64               `json:"income"`
		Expenses         float64               `json:"expenses"`
		Savings          float64               `json:"savings"`
		Balance          float64               `json:"balance"`
		CategoryExpenses map[string]float64    `json:"category_expenses"`
		Transactions     []transactionResponse `json:"transactions"`
	}

	profileResponse struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
		Currency string `json:"currency"`
	}
)

func newTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       tx.ID,
		Type:     string(tx.Type),
		Amount:   tx.Amount,
		Category: tx.Category,
		Date:     tx.Date.String(),
	}
}

func newDashboardResponse(d services.Dashboard) dashboardResponse {
	advice := d.Advice
	if advice == nil {
		advice = []string{}
	}
	return dashboardResponse{
		Period:         d.Summary.Period.Key(),
		PreviousPeriod: d.Summary.Period.Previous().Key(),
		Label:          d.Summary.Period.Label(),
		Currency:       d.Currency,
		Income:         d.Summary.Income,
		Expenses:       d.Summary.Expenses,
		Savings:        d.Summary.Savings,
		Balance:        d.Summary.Balance,
		Outstanding:    d.Summary.Outstanding,
		Advice:         advice,
	}
}

func newStatisticsResponse(rng dateRange, v services.RangeView) statisticsResponse {
	txs := make([]transactionResponse, 0, len(v.Transactions))
	for _, tx := range v.Transactions {
		txs = append(txs, newTransactionResponse(tx))
	}
	return statisticsResponse{
		StartDate:        rng.Start.String(),
		EndDate:          rng.End.String(),
		Category:         rng.Category,
		Currency:         v.Currency,
		Income:           v.Totals.Income,
		Expenses:         v.Totals.Expenses,
		Savings:          v.Totals.Savings,
		Balance:          v.Totals.Balance,
		CategoryExpenses: v.Totals.CategoryExpenses,
		Transactions:     txs,
	}
}

func newProfileResponse(p core.Profile) profileResponse {
	return profileResponse{
		FullName: p.FullName,
		Email:    p.Email,
		Phone:    p.Phone,
		Address:  p.Address,
		Currency: p.Currency,
	}
}
