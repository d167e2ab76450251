package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cinecalc/internal/amqp"
	"cinecalc/internal/core"
	"cinecalc/internal/storage/memory"
)

type fakeMirror struct {
	calls int
	rows  int
	total decimal.Decimal
	err   error
}

func (f *fakeMirror) Mirror(_ context.Context, expenses []core.Expense, total decimal.Decimal) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.rows = len(expenses)
	f.total = total
	return nil
}

func seeded() *memory.Store {
	return memory.NewSeeded(
		core.ExpenseInput{Name: "Catering", Price: decimal.RequireFromString("500"), PercentageMarkup: decimal.RequireFromString("10")},
		core.ExpenseInput{Name: "Lights", Price: decimal.RequireFromString("200"), PercentageMarkup: decimal.RequireFromString("25")},
	)
}

func TestHandleEventRecordsOnce(t *testing.T) {
	ctx := context.Background()
	store := seeded()
	w := NewAuditWorker(store, store, nil)

	ev := amqp.NewExpenseEvent(amqp.ExpenseDeleted, 2, nil)
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("redelivered HandleEvent failed: %v", err)
	}

	events, _ := store.ListEvents(ctx, 2)
	if len(events) != 1 || events[0].Type != string(amqp.ExpenseDeleted) {
		t.Fatalf("expected a single deleted event, got %+v", events)
	}
}

func TestHandleEventMirrorsLedger(t *testing.T) {
	ctx := context.Background()
	store := seeded()
	mirror := &fakeMirror{}
	w := NewAuditWorker(store, store, mirror)

	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.ExpenseUpdated, 1, nil)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if mirror.calls != 1 || mirror.rows != 2 || mirror.total.StringFixed(2) != "800.00" {
		t.Fatalf("unexpected mirror call: %+v", mirror)
	}
}

func TestHandleEventMirrorFailureRequeues(t *testing.T) {
	store := seeded()
	w := NewAuditWorker(store, store, &fakeMirror{err: errors.New("quota exceeded")})

	if err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.ExpenseCreated, 1, nil)); err == nil {
		t.Fatal("expected mirror error to be returned")
	}
}
