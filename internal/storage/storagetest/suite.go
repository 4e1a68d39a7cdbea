// Package storagetest holds behavior tests shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// Run exercises store, which must start empty.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("incomes", func(t *testing.T) { testIncomes(t, newStore(t)) })
	t.Run("budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("not found", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func testExpenses(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := core.Expense{
		ID:          "e-1",
		Description: "Groceries",
		Amount:      decimal.RequireFromString("1234.56"),
		Category:    "Food",
		Date:        core.NewDate(2025, 3, 14),
	}
	if _, err := s.CreateExpense(ctx, e); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	got, err := s.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	assertExpense(t, got[0], e)

	e.Amount = decimal.RequireFromString("0.10")
	e.Category = "Dining"
	if _, err := s.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	got, _ = s.ListExpenses(ctx)
	assertExpense(t, got[0], e)

	if err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	got, _ = s.ListExpenses(ctx)
	if len(got) != 0 {
		t.Errorf("expense not deleted: %+v", got)
	}
}

func testIncomes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	in := core.Income{ID: "i-1", Source: "Salary", Amount: decimal.NewFromInt(50000), Date: core.NewDate(2025, 3, 1)}
	if _, err := s.CreateIncome(ctx, in); err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	in.Source = ""
	if _, err := s.UpdateIncome(ctx, in); err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}

	got, err := s.ListIncomes(ctx)
	if err != nil {
		t.Fatalf("ListIncomes: %v", err)
	}
	if len(got) != 1 || got[0].ID != in.ID || got[0].Source != "" || !got[0].Amount.Equal(in.Amount) || !got[0].Date.Equal(in.Date.Time) {
		t.Fatalf("incomes = %+v", got)
	}

	if err := s.DeleteIncome(ctx, in.ID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
}

func testBudgets(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first, err := s.UpsertBudget(ctx, core.Budget{ID: "b-1", Category: "Food", Limit: decimal.NewFromInt(500)})
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	second, err := s.UpsertBudget(ctx, core.Budget{ID: "b-2", Category: "Food", Limit: decimal.NewFromInt(700)})
	if err != nil {
		t.Fatalf("UpsertBudget again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed ID: %s -> %s", first.ID, second.ID)
	}

	list, err := s.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(list) != 1 || !list[0].Limit.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("budgets = %+v", list)
	}

	zero := core.Budget{ID: "b-3", Category: "Travel", Limit: decimal.Zero}
	if _, err := s.UpsertBudget(ctx, zero); err != nil {
		t.Fatalf("UpsertBudget zero: %v", err)
	}
	if limit, ok := budgetsOf(t, s).Limit("Travel"); !ok || !limit.IsZero() {
		t.Errorf("zero limit not kept: %v %v", limit, ok)
	}

	upd := core.Budget{ID: first.ID, Category: "Groceries", Limit: decimal.NewFromInt(300)}
	if _, err := s.UpdateBudget(ctx, upd); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}
	if _, ok := budgetsOf(t, s).Limit("Groceries"); !ok {
		t.Error("budget not renamed")
	}

	if err := s.DeleteBudget(ctx, first.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if len(budgetsOf(t, s)) != 1 {
		t.Error("budget not deleted")
	}
}

func testNotFound(t *testing.T, s storage.Store) {
	ctx := context.Background()
	checks := map[string]error{
		"update expense": second(s.UpdateExpense(ctx, core.Expense{ID: "missing", Category: "x", Date: core.NewDate(2025, 1, 1)})),
		"delete expense": s.DeleteExpense(ctx, "missing"),
		"update income":  second(s.UpdateIncome(ctx, core.Income{ID: "missing", Date: core.NewDate(2025, 1, 1)})),
		"delete income":  s.DeleteIncome(ctx, "missing"),
		"update budget":  second(s.UpdateBudget(ctx, core.Budget{ID: "missing", Category: "x"})),
		"delete budget":  s.DeleteBudget(ctx, "missing"),
	}
	for name, err := range checks {
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", name, err)
		}
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func assertExpense(t *testing.T, got, want core.Expense) {
	t.Helper()
	if got.ID != want.ID || got.Description != want.Description || got.Category != want.Category {
		t.Errorf("expense = %+v, want %+v", got, want)
	}
	if !got.Amount.Equal(want.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, want.Amount)
	}
	if !got.Date.Equal(want.Date.Time) {
		t.Errorf("date = %s, want %s", got.Date, want.Date)
	}
}

func budgetsOf(t *testing.T, s storage.Store) core.Budgets {
	t.Helper()
	list, err := s.ListBudgets(context.Background())
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	return core.BudgetsFrom(list)
}

func second[T any](_ T, err error) error { return err }
