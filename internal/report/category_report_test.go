package report

import (
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestCategoryReport(t *testing.T) {
	endDay := core.Date{Time: time.Date(2025, 9, 30, 21, 15, 0, 0, time.UTC)}
	expenses := []core.Expense{
		{ID: "before", Amount: dec("1000"), Category: "Rent", Date: core.NewDate(2025, 8, 31)},
		{ID: "f1", Amount: dec("120"), Category: "Food", Date: core.NewDate(2025, 9, 1)},
		{ID: "t1", Amount: dec("300"), Category: "Travel", Date: core.NewDate(2025, 9, 10)},
		{ID: "f2", Amount: dec("250"), Category: "Food", Date: endDay},
		{ID: "after", Amount: dec("5"), Category: "Food", Date: core.NewDate(2025, 10, 1)},
	}

	got := CategoryReport(expenses, core.NewDate(2025, 9, 1), core.NewDate(2025, 9, 30))
	if len(got) != 2 {
		t.Fatalf("got %d categories, want 2: %+v", len(got), got)
	}
	if got[0].Category != "Food" || !got[0].TotalAmount.Equal(dec("370")) || len(got[0].Records) != 2 {
		t.Errorf("first row = %+v", got[0])
	}
	if got[1].Category != "Travel" || !got[1].TotalAmount.Equal(dec("300")) {
		t.Errorf("second row = %+v", got[1])
	}
}

func TestCategoryReport_TimestampBounds(t *testing.T) {
	expenses := []core.Expense{
		{ID: "morning", Amount: dec("40"), Category: "Food", Date: core.Date{Time: time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC)}},
		{ID: "evening", Amount: dec("60"), Category: "Food", Date: core.Date{Time: time.Date(2025, 1, 12, 22, 0, 0, 0, time.UTC)}},
		{ID: "late", Amount: dec("5"), Category: "Food", Date: core.NewDate(2025, 1, 13)},
	}
	start, err := core.ParseDate("2025-01-10T12:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	end, err := core.ParseDate("2025-01-12T06:00:00Z")
	if err != nil {
		t.Fatal(err)
	}

	got := CategoryReport(expenses, start, end)
	if len(got) != 1 || len(got[0].Records) != 2 || !got[0].TotalAmount.Equal(dec("100")) {
		t.Fatalf("got %+v, want morning and evening of the bounding days", got)
	}
}

func TestCategoryReport_Empty(t *testing.T) {
	got := CategoryReport(nil, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCategoryReport_TieBreak(t *testing.T) {
	day := core.NewDate(2025, 1, 5)
	got := CategoryReport([]core.Expense{
		{Amount: dec("10"), Category: "Zoo", Date: day},
		{Amount: dec("10"), Category: "Art", Date: day},
	}, day, day)
	if got[0].Category != "Art" || got[1].Category != "Zoo" {
		t.Fatalf("tie order = %s, %s", got[0].Category, got[1].Category)
	}
}
