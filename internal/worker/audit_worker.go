// Package worker consumes expense events outside the request path.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"cinecalc/internal/amqp"
	"cinecalc/internal/sheets"
	"cinecalc/internal/storage"
)

// AuditWorker records every expense event in the audit trail and, when a
// mirror is configured, refreshes the external copy of the ledger.
type AuditWorker struct {
	store  storage.ExpenseStore
	events storage.EventLog
	mirror sheets.LedgerMirror
}

// NewAuditWorker wires the worker. mirror may be nil.
func NewAuditWorker(store storage.ExpenseStore, events storage.EventLog, mirror sheets.LedgerMirror) *AuditWorker {
	return &AuditWorker{
		store:  store,
		events: events,
		mirror: mirror,
	}
}

// HandleEvent is an amqp.Handler. Any error requeues the message; the
// audit insert ignores ids it has already stored.
func (w *AuditWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	payload, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	err = w.events.AppendEvent(ctx, storage.EventRecord{
		ID:         ev.ID,
		Type:       string(ev.Type),
		ExpenseID:  ev.ExpenseID,
		Payload:    payload,
		OccurredAt: ev.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	slog.InfoContext(ctx, "Recorded expense event",
		"event_id", ev.ID,
		"type", ev.Type,
		"expense_id", ev.ExpenseID)

	if w.mirror == nil {
		return nil
	}
	return w.SyncMirror(ctx)
}

// SyncMirror writes the current ledger and total to the mirror.
func (w *AuditWorker) SyncMirror(ctx context.Context) error {
	if w.mirror == nil {
		slog.WarnContext(ctx, "No ledger mirror configured, skipping sync")
		return nil
	}

	expenses, err := w.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	if err := w.mirror.Mirror(ctx, expenses, storage.SumTotals(expenses)); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}
	return nil
}
