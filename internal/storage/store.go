// Package storage provides the persistence boundary for expenses.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
)

var (
	ErrNotFound = errors.New("expense not found")
	// ErrConflict reports an update that touched no row although the row
	// still exists.
	ErrConflict = errors.New("expense update conflict")
)

// ExpenseStore persists expenses. Implementations assign ids on Create and
// never reuse them. Inputs are expected to be normalized and validated by
// the caller; the store only persists them.
type ExpenseStore interface {
	// List returns all expenses ordered by id.
	List(ctx context.Context) ([]core.Expense, error)

	// Get returns ErrNotFound when no expense has the id.
	Get(ctx context.Context, id int64) (core.Expense, error)

	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)

	// Update overwrites the editable fields. Returns ErrNotFound or ErrConflict.
	Update(ctx context.Context, id int64, in core.ExpenseInput) error

	Delete(ctx context.Context, id int64) error

	Exists(ctx context.Context, id int64) (bool, error)

	// SumAll sums the totals of all rows, recomputed from price and markup.
	SumAll(ctx context.Context) (decimal.Decimal, error)

	Ping(ctx context.Context) error

	Close() error
}

// EventRecord is one entry of the expense audit trail.
type EventRecord struct {
	ID         string
	Type       string
	ExpenseID  int64
	Payload    []byte
	OccurredAt time.Time
}

// EventLog stores the audit trail written by the worker. Appending an
// event whose id is already stored is a no-op, so redelivered messages are
// recorded once.
type EventLog interface {
	AppendEvent(ctx context.Context, e EventRecord) error
	ListEvents(ctx context.Context, expenseID int64) ([]EventRecord, error)
}

// SumTotals recomputes and sums the total of every expense.
func SumTotals(expenses []core.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(core.ComputeTotal(e.Price, e.PercentageMarkup))
	}
	return sum
}
