package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// CategoryTotal is one row of the tabular report.
type CategoryTotal struct {
	Category    string
	TotalAmount decimal.Decimal
	Records     []core.Expense
}

// CategoryReport groups the expenses dated within [start, end] by category,
// largest total first. Both bounds are inclusive calendar days.
//
// Unlike the PDF document, this report does filter by the requested range.
func CategoryReport(expenses []core.Expense, start, end core.Date) []CategoryTotal {
	from := start.StartOfDay().Time
	to := end.EndOfDay().Time

	index := make(map[string]int)
	var out []CategoryTotal
	for _, e := range expenses {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category, TotalAmount: decimal.Zero, Records: []core.Expense{}})
		}
		out[i].TotalAmount = out[i].TotalAmount.Add(e.Amount)
		out[i].Records = append(out[i].Records, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	if out == nil {
		out = []CategoryTotal{}
	}
	return out
}
