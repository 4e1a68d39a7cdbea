// Package storage defines the persistence ports for financial records.
// Adapters live in the memory, sqlite and postgres subpackages.
package storage

import (
	"context"
	"errors"

	"expensetracker/internal/core"
)

// ErrNotFound is returned when a record with the given ID does not exist.
var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	ExpenseReader interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	IncomeReader interface {
		ListIncomes(ctx context.Context) ([]core.Income, error)
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	// RecordReader is everything a report needs.
	RecordReader interface {
		ExpenseReader
		IncomeReader
		BudgetReader
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	IncomeWriter interface {
		CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
		UpdateIncome(ctx context.Context, in core.Income) (core.Income, error)
		DeleteIncome(ctx context.Context, id string) error
	}

	BudgetWriter interface {
		// UpsertBudget creates the budget for its category or replaces the
		// limit of the existing one, keeping its ID.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id string) error
	}

	// Store is a complete storage backend.
	Store interface {
		RecordReader
		ExpenseWriter
		IncomeWriter
		BudgetWriter
		Ping(ctx context.Context) error
		Close() error
	}
)
