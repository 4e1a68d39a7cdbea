// Package memory is an in-process storage backend. Data lives as long as the
// process does.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps records in insertion order.
type Store struct {
	mu       sync.RWMutex
	expenses []core.Expense
	incomes  []core.Income
	budgets  []core.Budget
}

func New() *Store {
	return &Store{}
}

// Seed replaces the store contents. Intended for tests and local runs.
func (s *Store) Seed(expenses []core.Expense, incomes []core.Income, budgets []core.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append([]core.Expense(nil), expenses...)
	s.incomes = append([]core.Income(nil), incomes...)
	s.budgets = append([]core.Budget(nil), budgets...)
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Expense{}, s.expenses...), nil
}

func (s *Store) ListIncomes(_ context.Context) ([]core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Income{}, s.incomes...), nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget{}, s.budgets...), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.expenses, e.ID, core.Expense.RecordID) >= 0 {
		return core.Expense{}, fmt.Errorf("expense %s already exists", e.ID)
	}
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, e.ID, core.Expense.RecordID)
	if i < 0 {
		return core.Expense{}, storage.ErrNotFound
	}
	s.expenses[i] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, id, core.Expense.RecordID)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) CreateIncome(_ context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.incomes, in.ID, core.Income.RecordID) >= 0 {
		return core.Income{}, fmt.Errorf("income %s already exists", in.ID)
	}
	s.incomes = append(s.incomes, in)
	return in, nil
}

func (s *Store) UpdateIncome(_ context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.incomes, in.ID, core.Income.RecordID)
	if i < 0 {
		return core.Income{}, storage.ErrNotFound
	}
	s.incomes[i] = in
	return in, nil
}

func (s *Store) DeleteIncome(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.incomes, id, core.Income.RecordID)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.incomes = append(s.incomes[:i], s.incomes[i+1:]...)
	return nil
}

func budgetID(b core.Budget) string { return b.ID }

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.budgets {
		if s.budgets[i].Category == b.Category {
			s.budgets[i].Limit = b.Limit
			return s.budgets[i], nil
		}
	}
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.budgets, b.ID, budgetID)
	if i < 0 {
		return core.Budget{}, storage.ErrNotFound
	}
	for j := range s.budgets {
		if j != i && s.budgets[j].Category == b.Category {
			return core.Budget{}, fmt.Errorf("budget for %q already exists", b.Category)
		}
	}
	s.budgets[i] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.budgets, id, budgetID)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, it := range items {
		if key(it) == id {
			return i
		}
	}
	return -1
}
