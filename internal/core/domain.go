package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DayLayout is the calendar-day key format used for grouping and request dates.
const DayLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Record is either an Expense or an Income. The set is closed: only the
	// types in this package implement it.
	Record interface {
		RecordID() string
		RecordAmount() decimal.Decimal
		RecordDate() Date
		isRecord()
	}

	Expense struct {
		ID          string
		Description string
		Amount      decimal.Decimal
		Category    string
		Date        Date
	}

	Income struct {
		ID     string
		Source string
		Amount decimal.Decimal
		Date   Date
	}

	Budget struct {
		ID       string
		Category string
		Limit    decimal.Decimal
	}

	// Budgets maps a category to its budget. At most one budget per category.
	Budgets map[string]Budget
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrEmptyCategory   = errors.New("empty category")
	ErrDescriptionSize = errors.New("description too long (max 200 characters)")
)

func (Expense) isRecord() {}
func (Income) isRecord()  {}

func (e Expense) RecordID() string              { return e.ID }
func (e Expense) RecordAmount() decimal.Decimal { return e.Amount }
func (e Expense) RecordDate() Date              { return e.Date }

func (i Income) RecordID() string              { return i.ID }
func (i Income) RecordAmount() decimal.Decimal { return i.Amount }
func (i Income) RecordDate() Date              { return i.Date }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a calendar day (2006-01-02) or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date{Time: t}, nil
	}
	return Date{}, ErrInvalidDate
}

// DayKey returns the calendar day of d as YYYY-MM-DD.
func (d Date) DayKey() string {
	return d.Format(DayLayout)
}

// StartOfDay returns midnight at the start of d's calendar day.
func (d Date) StartOfDay() Date {
	y, m, day := d.Date()
	return Date{Time: time.Date(y, m, day, 0, 0, 0, 0, d.Location())}
}

// EndOfDay returns the last instant of d's calendar day.
func (d Date) EndOfDay() Date {
	y, m, day := d.Date()
	return Date{Time: time.Date(y, m, day, 23, 59, 59, int(time.Second-time.Nanosecond), d.Location())}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func validateAmount(a decimal.Decimal) error {
	if a.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 200 {
		return ErrDescriptionSize
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if len(i.Source) > 200 {
		return ErrDescriptionSize
	}
	return validateAmount(i.Amount)
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return validateAmount(b.Limit)
}

// Limit returns the budget limit for category and whether one exists.
func (b Budgets) Limit(category string) (decimal.Decimal, bool) {
	budget, ok := b[category]
	if !ok {
		return decimal.Zero, false
	}
	return budget.Limit, true
}

// BudgetsFrom indexes a list of budgets by category. Later entries win.
func BudgetsFrom(list []Budget) Budgets {
	out := make(Budgets, len(list))
	for _, b := range list {
		out[b.Category] = b
	}
	return out
}
