package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"cinecalc/internal/amqp"
	"cinecalc/internal/core"
	"cinecalc/internal/storage"
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService is the only write path into the store: every create and
// update is normalized and validated here before anything is persisted.
type ExpenseService struct {
	store     storage.ExpenseStore
	publisher EventPublisher
}

// NewExpenseService wires a store and an optional publisher (nil disables events).
func NewExpenseService(store storage.ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// Create validates the input and persists it under a new id.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	if err := core.Validate(in); err != nil {
		return core.Expense{}, err
	}

	e, err := s.store.Create(ctx, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseCreated, e.ID, &e))
	return e, nil
}

// Update re-validates the input and overwrites the record with id.
func (s *ExpenseService) Update(ctx context.Context, id int64, in core.ExpenseInput) error {
	in = in.Normalized()
	if err := core.Validate(in); err != nil {
		return err
	}

	if err := s.store.Update(ctx, id, in); err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}

	e := core.NewExpense(id, in)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseUpdated, id, &e))
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseDeleted, id, nil))
	return nil
}

// Total sums the derived total of every expense.
func (s *ExpenseService) Total(ctx context.Context) (decimal.Decimal, error) {
	sum, err := s.store.SumAll(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return sum, nil
}

// Ready reports whether the store is reachable.
func (s *ExpenseService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the caller: the write already succeeded.
func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", ev.Type)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event_id", ev.ID,
			"type", ev.Type,
			"expense_id", ev.ExpenseID,
			"error", err)
	}
}

// Close closes the store and the publisher when it can be closed.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
