// Package services coordinates record changes across storage and the event
// publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// Publisher announces record changes.
type Publisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChangedMessage) error
	Close() error
}

var _ storage.Store = (*RecordService)(nil)

// RecordService saves records to storage first, then publishes a change
// event. Publishing is best-effort: a failure is logged and the change stands.
// It is itself a storage.Store so callers need not tell the two apart.
type RecordService struct {
	store     storage.Store
	publisher Publisher
}

// NewRecordService wraps store. publisher may be nil.
func NewRecordService(store storage.Store, publisher Publisher) *RecordService {
	return &RecordService{store: store, publisher: publisher}
}

func (s *RecordService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *RecordService) ListIncomes(ctx context.Context) ([]core.Income, error) {
	return s.store.ListIncomes(ctx)
}

func (s *RecordService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}

// CreateExpense assigns an ID when e has none.
func (s *RecordService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, amqp.KindExpense, amqp.ActionCreated, saved.ID)
	return saved, nil
}

func (s *RecordService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.publish(ctx, amqp.KindExpense, amqp.ActionUpdated, saved.ID)
	return saved, nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, amqp.KindExpense, amqp.ActionDeleted, id)
	return nil
}

// CreateIncome assigns an ID when in has none.
func (s *RecordService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	saved, err := s.store.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.publish(ctx, amqp.KindIncome, amqp.ActionCreated, saved.ID)
	return saved, nil
}

func (s *RecordService) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	saved, err := s.store.UpdateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.publish(ctx, amqp.KindIncome, amqp.ActionUpdated, saved.ID)
	return saved, nil
}

func (s *RecordService) DeleteIncome(ctx context.Context, id string) error {
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.publish(ctx, amqp.KindIncome, amqp.ActionDeleted, id)
	return nil
}

// UpsertBudget assigns an ID when b has none; an existing budget for the
// category keeps its own.
func (s *RecordService) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	action := amqp.ActionUpdated
	if saved.ID == b.ID {
		action = amqp.ActionCreated
	}
	s.publish(ctx, amqp.KindBudget, action, saved.ID)
	return saved, nil
}

func (s *RecordService) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	saved, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.publish(ctx, amqp.KindBudget, amqp.ActionUpdated, saved.ID)
	return saved, nil
}

func (s *RecordService) DeleteBudget(ctx context.Context, id string) error {
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.publish(ctx, amqp.KindBudget, amqp.ActionDeleted, id)
	return nil
}

func (s *RecordService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *RecordService) publish(ctx context.Context, kind, action, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping record change", "kind", kind, "id", id)
		return
	}
	if err := s.publisher.PublishRecordChange(ctx, amqp.NewRecordChangedMessage(kind, action, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			"kind", kind, "action", action, "id", id, "error", err)
	}
}

// Close closes both storage and the publisher.
func (s *RecordService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
