// Package document lays a report context out as the detailed expense report:
// header, summary, category breakdown, transaction lists and insights.
package document

import (
	"fmt"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/layout"
	"expensetracker/internal/report"
)

const (
	Title          = "Detailed Expense Report"
	SummaryTitle   = "Financial Summary"
	BreakdownTitle = "Expense Breakdown by Category"
	IncomeTitle    = "All Income Records"
	ExpenseTitle   = "All Expense Records"
	InsightsTitle  = "AI Insights & Suggestions"

	NoOverspending  = "No overspending detected. Well done!"
	NoBudgetLimit   = "-"
	DefaultIncomeBy = "Income"

	periodLayout = "January 2, 2006"
	itemLayout   = "02 Jan 2006"
)

// Composer writes documents with a fixed layout. It holds no per-document
// state and may be shared.
type Composer struct {
	cfg *layout.Config
}

func NewComposer(cfg *layout.Config) *Composer {
	if cfg == nil {
		cfg = layout.DefaultConfig()
	}
	return &Composer{cfg: cfg}
}

// Compose draws rc onto canvas. awaitNarrative is called only once every
// other section has been written; it may block. The final cursor is returned.
func (c *Composer) Compose(canvas layout.Canvas, rc *report.Context, awaitNarrative func() string) layout.Cursor {
	e := layout.New(canvas, c.cfg)

	c.header(e, rc)
	c.summary(e, rc)
	c.breakdown(e, rc)

	incomes := make([]core.Record, len(rc.Incomes))
	for i, in := range rc.Incomes {
		incomes[i] = in
	}
	c.transactions(e, IncomeTitle, incomes)

	expenses := make([]core.Record, len(rc.Expenses))
	for i, ex := range rc.Expenses {
		expenses[i] = ex
	}
	c.transactions(e, ExpenseTitle, expenses)

	text := ""
	if awaitNarrative != nil {
		text = awaitNarrative()
	}
	c.insights(e, text)
	return e.Cursor()
}

func (c *Composer) header(e *layout.Engine, rc *report.Context) {
	h1 := layout.Style{Size: c.cfg.Fonts.H1, Color: c.cfg.Colors.Primary, Align: layout.AlignCenter}
	e.WriteLine(Title, h1)
	e.MoveDown(1, h1)

	body := c.cfg.Body()
	e.WriteLine(PeriodLine(rc.PeriodStart, rc.PeriodEnd), body)
	e.MoveDown(2, body)
}

func (c *Composer) summary(e *layout.Engine, rc *report.Context) {
	e.Section(SummaryTitle, false)
	body := c.cfg.Body()
	e.WriteLine("Total Income: "+core.FormatAmount(rc.TotalIncome), body)
	e.WriteLine("Total Expenses: "+core.FormatAmount(rc.TotalExpenses), body)
	e.WriteLine("Net Savings: "+core.FormatAmount(rc.NetSavings), body)
	e.MoveDown(1, body)

	if overspent := rc.OverspentCategories(); len(overspent) > 0 {
		st := body
		st.Color = c.cfg.Colors.Danger
		e.WriteLine("Overspent Categories: "+strings.Join(overspent, ", "), st)
	} else {
		st := body
		st.Color = c.cfg.Colors.Success
		e.WriteLine(NoOverspending, st)
	}
	e.MoveDown(2, body)
}

func (c *Composer) breakdown(e *layout.Engine, rc *report.Context) {
	e.Section(BreakdownTitle, false)
	cols := c.cfg.Columns
	body := c.cfg.Body()

	e.WriteRow([]layout.Column{
		{Text: "Category", X: cols.Category},
		{Text: "Total Spent", X: cols.Amount},
		{Text: "Budget", X: cols.Budget},
		{Text: "Status", X: cols.Status},
	}, body)
	e.Rule(cols.Category, cols.End)

	for _, category := range rc.Categories() {
		agg := rc.ByCategory[category]
		budget := NoBudgetLimit
		if limit, ok := rc.Budgets.Limit(category); ok {
			budget = core.FormatAmount(limit)
		}
		status := rc.StatusFor(category)
		color := c.statusColor(status)
		e.WriteRow([]layout.Column{
			{Text: category, X: cols.Category},
			{Text: core.FormatAmount(agg.Total), X: cols.Amount},
			{Text: budget, X: cols.Budget},
			{Text: string(status), X: cols.Status, Color: &color},
		}, body)
	}
}

func (c *Composer) statusColor(s report.Status) layout.Color {
	switch s {
	case report.StatusOverspent:
		return c.cfg.Colors.Danger
	case report.StatusWithinBudget:
		return c.cfg.Colors.Success
	default:
		return c.cfg.Colors.Primary
	}
}

// transactions writes records, already sorted by date, one per line with a
// gap wherever the calendar day changes.
func (c *Composer) transactions(e *layout.Engine, title string, records []core.Record) {
	e.Section(title, true)
	st := layout.Style{Size: c.cfg.Fonts.Small, Color: c.cfg.Colors.Primary}

	lastDay := ""
	for _, r := range records {
		day := r.RecordDate().DayKey()
		if lastDay != "" && day != lastDay {
			e.MoveDown(c.cfg.GroupGap, st)
		}
		e.WriteLine(RecordLine(r), st)
		e.MoveDown(c.cfg.ItemGap, st)
		lastDay = day
	}
}

func (c *Composer) insights(e *layout.Engine, text string) {
	e.Section(InsightsTitle, true)
	st := c.cfg.Body()
	st.Color = c.cfg.Colors.Secondary
	e.WriteParagraph(text, st)
}

// PeriodLine is the reporting period label of the header.
func PeriodLine(start, end core.Date) string {
	return fmt.Sprintf("Period: %s to %s", start.Format(periodLayout), end.Format(periodLayout))
}

// RecordLine formats one transaction list entry.
func RecordLine(r core.Record) string {
	switch v := r.(type) {
	case core.Income:
		source := v.Source
		if strings.TrimSpace(source) == "" {
			source = DefaultIncomeBy
		}
		return fmt.Sprintf("[%s] %s - %s", v.Date.Format(itemLayout), source, core.FormatAmount(v.Amount))
	case core.Expense:
		return fmt.Sprintf("[%s] %s: %s - %s", v.Date.Format(itemLayout), v.Category, v.Description, core.FormatAmount(v.Amount))
	default:
		panic(fmt.Sprintf("document: unknown record type %T", r))
	}
}
