package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/report"
)

// DefaultInstruction is used by Ask when the caller gives none.
const DefaultInstruction = "Summarize my current income, categorized expenses, and budgets. List overspending categories and offer savings advice."

// Summarize asks for a summary of rc with savings advice.
func (c *Client) Summarize(ctx context.Context, rc *report.Context) Result {
	return c.generate(ctx, Prompt(rc))
}

type budgetData struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
}

type expenseData struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
}

type incomeData struct {
	Date   string `json:"date"`
	Source string `json:"source,omitempty"`
	Amount string `json:"amount"`
}

// FinanceData is the JSON-ready view of every record in rc.
func FinanceData(rc *report.Context) map[string]any {
	incomes := make([]incomeData, 0, len(rc.Incomes))
	for _, in := range rc.Incomes {
		incomes = append(incomes, incomeData{Date: in.Date.DayKey(), Source: in.Source, Amount: in.Amount.String()})
	}
	return map[string]any{
		"incomes":  incomes,
		"expenses": expensesOf(rc),
		"budgets":  budgetsOf(rc),
	}
}

func budgetsOf(rc *report.Context) []budgetData {
	budgets := make([]budgetData, 0, len(rc.Budgets))
	for _, category := range sortedKeys(rc.Budgets) {
		budgets = append(budgets, budgetData{Category: category, Limit: rc.Budgets[category].Limit.String()})
	}
	return budgets
}

func expensesOf(rc *report.Context) []expenseData {
	expenses := make([]expenseData, 0, len(rc.Expenses))
	for _, e := range rc.Expenses {
		expenses = append(expenses, expenseData{
			Date:        e.Date.DayKey(),
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount.String(),
		})
	}
	return expenses
}

// Prompt renders the summary request for rc.
func Prompt(rc *report.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following financial period. Total income was %s and total expenses were %s.",
		core.FormatAmount(rc.TotalIncome), core.FormatAmount(rc.TotalExpenses))
	b.WriteString(" Highlight any overspending compared to budgets and provide actionable savings tips.\n")

	for _, category := range rc.Categories() {
		fmt.Fprintf(&b, "- %s: spent %s", category, core.FormatAmount(rc.ByCategory[category].Total))
		if limit, ok := rc.Budgets.Limit(category); ok {
			fmt.Fprintf(&b, " of a %s budget", core.FormatAmount(limit))
		}
		b.WriteByte('\n')
	}
	if overspent := rc.OverspentCategories(); len(overspent) > 0 {
		fmt.Fprintf(&b, "Overspent categories: %s\n", strings.Join(overspent, ", "))
	}

	b.WriteString("Data: ")
	b.WriteString(encode(map[string]any{"budgets": budgetsOf(rc), "expenses": expensesOf(rc)}))
	return b.String()
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func sortedKeys(b core.Budgets) []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
