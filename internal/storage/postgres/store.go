// Package postgres is the PostgreSQL storage backend on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS expenses (
    id          TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT '',
    amount      NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
    category    TEXT NOT NULL,
    date        TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date);

CREATE TABLE IF NOT EXISTS incomes (
    id         TEXT PRIMARY KEY,
    source     TEXT NOT NULL DEFAULT '',
    amount     NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
    date       TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_incomes_date ON incomes(date);

CREATE TABLE IF NOT EXISTS budgets (
    id           TEXT PRIMARY KEY,
    category     TEXT NOT NULL UNIQUE,
    limit_amount NUMERIC(14,2) NOT NULL CHECK (limit_amount >= 0),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type Store struct {
	pool *pgxpool.Pool
}

// New connects to url and creates the schema when missing.
func New(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, description, amount::text, category, date FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		var amount string
		var date time.Time
		if err := rows.Scan(&e.ID, &e.Description, &amount, &e.Category, &date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("expense %s amount: %w", e.ID, err)
		}
		e.Date = core.Date{Time: date.UTC()}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, source, amount::text, date FROM incomes ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	out := []core.Income{}
	for rows.Next() {
		var in core.Income
		var amount string
		var date time.Time
		if err := rows.Scan(&in.ID, &in.Source, &amount, &date); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("income %s amount: %w", in.ID, err)
		}
		in.Date = core.Date{Time: date.UTC()}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, category, limit_amount::text FROM budgets ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO expenses (id, description, amount, category, date) VALUES ($1, $2, $3::numeric, $4, $5)`,
		e.ID, e.Description, e.Amount.String(), e.Category, e.Date.Time)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE expenses SET description = $1, amount = $2::numeric, category = $3, date = $4 WHERE id = $5`,
		e.Description, e.Amount.String(), e.Category, e.Date.Time, e.ID)
	if err := affected(tag, err, "update expense"); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return affected(tag, err, "delete expense")
}

func (s *Store) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO incomes (id, source, amount, date) VALUES ($1, $2, $3::numeric, $4)`,
		in.ID, in.Source, in.Amount.String(), in.Date.Time)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE incomes SET source = $1, amount = $2::numeric, date = $3 WHERE id = $4`,
		in.Source, in.Amount.String(), in.Date.Time, in.ID)
	if err := affected(tag, err, "update income"); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM incomes WHERE id = $1`, id)
	return affected(tag, err, "delete income")
}

func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO budgets (id, category, limit_amount) VALUES ($1, $2, $3::numeric)
		 ON CONFLICT (category) DO UPDATE SET limit_amount = EXCLUDED.limit_amount
		 RETURNING id, category, limit_amount::text`,
		b.ID, b.Category, b.Limit.String())
	stored, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return stored, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE budgets SET category = $1, limit_amount = $2::numeric WHERE id = $3`,
		b.Category, b.Limit.String(), b.ID)
	if err := affected(tag, err, "update budget"); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	return affected(tag, err, "delete budget")
}

func scanBudget(row pgx.Row) (core.Budget, error) {
	var b core.Budget
	var limit string
	if err := row.Scan(&b.ID, &b.Category, &limit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Budget{}, storage.ErrNotFound
		}
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	var err error
	if b.Limit, err = decimal.NewFromString(limit); err != nil {
		return core.Budget{}, fmt.Errorf("budget %s limit: %w", b.ID, err)
	}
	return b, nil
}

func affected(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
