package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/report"
)

// Amounts are encoded as JSON strings so they stay exact.
type (
	expenseDTO struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Date        string          `json:"date"`
	}

	incomeDTO struct {
		ID     string          `json:"id"`
		Source string          `json:"source"`
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
	}

	budgetDTO struct {
		ID       string          `json:"id"`
		Category string          `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
	}

	categoryTotalDTO struct {
		Category    string          `json:"category"`
		TotalAmount decimal.Decimal `json:"totalAmount"`
		Records     []expenseDTO    `json:"records"`
	}

	insightsDTO struct {
		Summary  string `json:"summary"`
		Fallback bool   `json:"fallback"`
	}

	successDTO struct {
		Success bool `json:"success"`
	}
)

func formatDate(d core.Date) string {
	return d.UTC().Format(time.RFC3339)
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{ID: e.ID, Description: e.Description, Amount: e.Amount, Category: e.Category, Date: formatDate(e.Date)}
}

func toExpenseDTOs(list []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(list))
	for _, e := range list {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func toIncomeDTO(in core.Income) incomeDTO {
	return incomeDTO{ID: in.ID, Source: in.Source, Amount: in.Amount, Date: formatDate(in.Date)}
}

func toBudgetDTO(b core.Budget) budgetDTO {
	return budgetDTO{ID: b.ID, Category: b.Category, Limit: b.Limit}
}

func toCategoryTotalDTOs(rows []report.CategoryTotal) []categoryTotalDTO {
	out := make([]categoryTotalDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, categoryTotalDTO{Category: r.Category, TotalAmount: r.TotalAmount, Records: toExpenseDTOs(r.Records)})
	}
	return out
}

// fieldError names the request field that failed to parse.
type fieldError struct {
	Field string
	Err   error
}

func (e *fieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *fieldError) Unwrap() error { return e.Err }

// parseDateField reads key as a date. A missing date defaults to today, as it
// does when records are entered by hand.
func parseDateField(p *RequestBodyParser, key string, now func() time.Time) (core.Date, error) {
	raw := p.Get(key)
	if raw == "" {
		y, m, d := now().Date()
		return core.NewDate(y, int(m), d), nil
	}
	date, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, &fieldError{Field: key, Err: err}
	}
	return date, nil
}

func parseAmountField(p *RequestBodyParser, key string) (decimal.Decimal, error) {
	amount, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return decimal.Zero, &fieldError{Field: key, Err: err}
	}
	return amount, nil
}

func parseExpense(p *RequestBodyParser, now func() time.Time) (core.Expense, error) {
	amount, err := parseAmountField(p, "amount")
	if err != nil {
		return core.Expense{}, err
	}
	date, err := parseDateField(p, "date", now)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		Description: p.Get("description"),
		Amount:      amount,
		Category:    p.Get("category"),
		Date:        date,
	}
	return e, e.Validate()
}

func parseIncome(p *RequestBodyParser, now func() time.Time) (core.Income, error) {
	amount, err := parseAmountField(p, "amount")
	if err != nil {
		return core.Income{}, err
	}
	date, err := parseDateField(p, "date", now)
	if err != nil {
		return core.Income{}, err
	}
	in := core.Income{
		Source: p.Get("source"),
		Amount: amount,
		Date:   date,
	}
	return in, in.Validate()
}

func parseBudget(p *RequestBodyParser) (core.Budget, error) {
	limit, err := parseAmountField(p, "limit")
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		Category: p.Get("category"),
		Limit:    limit,
	}
	return b, b.Validate()
}
