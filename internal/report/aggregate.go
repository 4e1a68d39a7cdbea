// Package report turns raw financial records into the aggregates a report
// is built from. Everything here is pure: no I/O, no shared state.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Status is the budget standing of a category.
type Status string

const (
	StatusOverspent    Status = "Overspent"
	StatusWithinBudget Status = "Within Budget"
	StatusNoBudget     Status = "No Budget"
)

// Records is the raw input of an aggregation, in any order.
type Records struct {
	Incomes  []core.Income
	Expenses []core.Expense
}

// CategoryAggregate groups the expenses of one category.
type CategoryAggregate struct {
	Category string
	Total    decimal.Decimal
	Items    []core.Expense
}

// Context is the aggregate root of one report invocation. It is built once by
// Aggregate and treated as read-only afterwards.
type Context struct {
	PeriodStart core.Date
	PeriodEnd   core.Date

	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetSavings    decimal.Decimal

	// Date-ascending.
	Incomes  []core.Income
	Expenses []core.Expense

	ByCategory map[string]*CategoryAggregate
	Overspent  map[string]struct{}
	Budgets    core.Budgets
}

// Aggregate computes totals, per-category groups and overspending flags over
// every supplied record. It never fails.
func Aggregate(records Records, budgets core.Budgets) *Context {
	if budgets == nil {
		budgets = core.Budgets{}
	}
	rc := &Context{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Incomes:       append([]core.Income(nil), records.Incomes...),
		Expenses:      append([]core.Expense(nil), records.Expenses...),
		ByCategory:    make(map[string]*CategoryAggregate),
		Overspent:     make(map[string]struct{}),
		Budgets:       budgets,
	}

	sort.SliceStable(rc.Incomes, func(i, j int) bool {
		return rc.Incomes[i].Date.Before(rc.Incomes[j].Date.Time)
	})
	sort.SliceStable(rc.Expenses, func(i, j int) bool {
		return rc.Expenses[i].Date.Before(rc.Expenses[j].Date.Time)
	})

	for _, in := range rc.Incomes {
		rc.TotalIncome = rc.TotalIncome.Add(in.Amount)
	}
	for _, e := range rc.Expenses {
		rc.TotalExpenses = rc.TotalExpenses.Add(e.Amount)
		agg, ok := rc.ByCategory[e.Category]
		if !ok {
			agg = &CategoryAggregate{Category: e.Category, Total: decimal.Zero}
			rc.ByCategory[e.Category] = agg
		}
		agg.Total = agg.Total.Add(e.Amount)
		agg.Items = append(agg.Items, e)
	}
	rc.NetSavings = rc.TotalIncome.Sub(rc.TotalExpenses)

	for category, agg := range rc.ByCategory {
		if limit, ok := budgets.Limit(category); ok && agg.Total.GreaterThan(limit) {
			rc.Overspent[category] = struct{}{}
		}
	}
	return rc
}

// AggregateWithPeriod is Aggregate plus the period label. The period does not
// filter records.
func AggregateWithPeriod(records Records, budgets core.Budgets, start, end core.Date) *Context {
	rc := Aggregate(records, budgets)
	rc.PeriodStart = start
	rc.PeriodEnd = end
	return rc
}

// Categories returns the aggregated category names in sorted order.
func (rc *Context) Categories() []string {
	out := make([]string, 0, len(rc.ByCategory))
	for c := range rc.ByCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// OverspentCategories returns the overspent category names in sorted order.
func (rc *Context) OverspentCategories() []string {
	out := make([]string, 0, len(rc.Overspent))
	for c := range rc.Overspent {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// StatusFor reports the budget standing of category. NoBudget holds iff no
// limit exists, whatever its value.
func (rc *Context) StatusFor(category string) Status {
	limit, ok := rc.Budgets.Limit(category)
	if !ok {
		return StatusNoBudget
	}
	total := decimal.Zero
	if agg, found := rc.ByCategory[category]; found {
		total = agg.Total
	}
	if total.GreaterThan(limit) {
		return StatusOverspent
	}
	return StatusWithinBudget
}
