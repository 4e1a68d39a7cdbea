// Package sqlite is the SQLite storage backend. Amounts are stored as decimal
// text so no precision is lost.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// New opens dbPath, creating its directory if needed, and migrates it.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description, amount, category, date FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		var amount, date string
		if err := rows.Scan(&e.ID, &e.Description, &amount, &e.Category, &date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("expense %s amount: %w", e.ID, err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("expense %s date: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, amount, date FROM incomes ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	out := []core.Income{}
	for rows.Next() {
		var in core.Income
		var amount, date string
		if err := rows.Scan(&in.ID, &in.Source, &amount, &date); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("income %s amount: %w", in.ID, err)
		}
		if in.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("income %s date: %w", in.ID, err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, category, limit_amount FROM budgets ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		var limit string
		if err := rows.Scan(&b.ID, &b.Category, &limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("budget %s limit: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, category, date) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.Amount.String(), e.Category, formatDate(e.Date))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense saved to SQLite", "id", e.ID, "category", e.Category)
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, category = ?, date = ? WHERE id = ?`,
		e.Description, e.Amount.String(), e.Category, formatDate(e.Date), e.ID)
	if err := affected(res, err, "update expense"); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	return affected(res, err, "delete expense")
}

func (s *Store) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incomes (id, source, amount, date) VALUES (?, ?, ?, ?)`,
		in.ID, in.Source, in.Amount.String(), formatDate(in.Date))
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE incomes SET source = ?, amount = ?, date = ? WHERE id = ?`,
		in.Source, in.Amount.String(), formatDate(in.Date), in.ID)
	if err := affected(res, err, "update income"); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	return affected(res, err, "delete income")
}

func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, category, limit_amount) VALUES (?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET limit_amount = excluded.limit_amount`,
		b.ID, b.Category, b.Limit.String())
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	var stored core.Budget
	var limit string
	err = s.db.QueryRowContext(ctx, `SELECT id, category, limit_amount FROM budgets WHERE category = ?`, b.Category).
		Scan(&stored.ID, &stored.Category, &limit)
	if err != nil {
		return core.Budget{}, fmt.Errorf("read budget: %w", err)
	}
	if stored.Limit, err = decimal.NewFromString(limit); err != nil {
		return core.Budget{}, fmt.Errorf("budget %s limit: %w", stored.ID, err)
	}
	return stored, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, limit_amount = ? WHERE id = ?`,
		b.Category, b.Limit.String(), b.ID)
	if err := affected(res, err, "update budget"); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	return affected(res, err, "delete budget")
}

// affected maps a statement that touched no rows to storage.ErrNotFound.
func affected(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func formatDate(d core.Date) string {
	return d.UTC().Format(time.RFC3339Nano)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if d, derr := core.ParseDate(s); derr == nil {
			return d, nil
		}
		return core.Date{}, errors.Join(core.ErrInvalidDate, err)
	}
	return core.Date{Time: t}, nil
}
