// Package ledger keeps the editable, ordered list of expenses a user works
// on and reconciles each row with the store as edits are committed.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cinecalc/internal/core"
	applog "cinecalc/internal/log"
)

// Store is the remote side of the ledger. Errors wrap the kinds declared in
// errors.go.
type Store interface {
	List(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id int64, in core.ExpenseInput) error
	Delete(ctx context.Context, id int64) error
	Total(ctx context.Context) (decimal.Decimal, error)
}

// Focus is the cell that receives input.
type Focus struct {
	Row   RowID
	Field Field
}

type Option func(*Controller)

// WithClock replaces time.Now, which drives the saved indicator.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(logger *applog.Logger) Option {
	return func(c *Controller) { c.logger = logger.WithComponent(applog.ComponentLedger) }
}

// Controller owns the rows. All methods are safe for concurrent use; no
// lock is held across a store call.
type Controller struct {
	store  Store
	now    func() time.Time
	logger *applog.Logger

	mu       sync.Mutex
	rows     []*row
	nextTemp RowID
	focus    Focus
	total    decimal.Decimal
	version  uint64

	// Total requests are numbered when issued; a response older than the
	// last one applied is dropped.
	totalIssued  uint64
	totalApplied uint64
}

func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		now:      time.Now,
		logger:   applog.FromContext(context.Background()).WithComponent(applog.ComponentLedger),
		nextTemp: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the list and the total together and replaces every row,
// drafts included.
func (c *Controller) Load(ctx context.Context) error {
	var (
		expenses []core.Expense
		total    decimal.Decimal
	)
	seq := c.nextTotalSeq()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = c.store.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = c.store.Total(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = make([]*row, 0, len(expenses))
	for _, e := range expenses {
		c.rows = append(c.rows, newRow(e))
	}
	c.applyTotal(seq, total)
	if c.find(c.focus.Row) == nil {
		c.focus = Focus{}
	}
	c.version++

	c.logger.Debug("Ledger loaded", "rows", len(expenses), "total", total.StringFixed(core.Scale))
	return nil
}

// AddDraft appends an empty row and focuses its name.
func (c *Controller) AddDraft() RowID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextTemp
	c.nextTemp--
	c.rows = append(c.rows, newDraft(id))
	c.focus = Focus{Row: id, Field: FieldName}
	c.version++
	return id
}

func (c *Controller) Edit(id RowID, f Field, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.find(id)
	if r == nil {
		return ErrUnknownRow
	}
	if err := r.edit(f, raw); err != nil {
		return err
	}
	c.version++
	return nil
}

// Commit saves the row. Unchanged rows are not sent. Failures are reported
// once and never retried.
func (c *Controller) Commit(ctx context.Context, id RowID) error {
	c.mu.Lock()
	r := c.find(id)
	if r == nil {
		c.mu.Unlock()
		return ErrUnknownRow
	}
	if r.status == StatusSaving {
		c.mu.Unlock()
		return ErrRowBusy
	}

	in, err := r.input()
	if err == nil && !r.isNew && r.original != nil && in.Equal(*r.original) {
		r.setValues(in)
		if r.status != StatusSaved {
			r.status = StatusIdle
		}
		r.err = nil
		c.version++
		c.mu.Unlock()
		return nil
	}
	if err == nil {
		err = core.Validate(in)
	}
	if err != nil {
		r.status = StatusDirty
		r.err = err
		c.version++
		c.mu.Unlock()
		return err
	}

	isNew := r.isNew
	r.status = StatusSaving
	r.err = nil
	c.version++
	c.mu.Unlock()

	var created core.Expense
	if isNew {
		created, err = c.store.Create(ctx, in)
	} else {
		err = c.store.Update(ctx, int64(id), in)
	}

	if err == nil {
		c.mu.Lock()
		if c.indexOf(r) < 0 {
			c.mu.Unlock()
			return nil
		}
		if isNew {
			c.reconcile(id, created)
			in = created.Input()
		}
		r.markSaved(in, c.now())
		c.version++
		c.mu.Unlock()

		c.refreshAfterMutation(ctx)
		return nil
	}

	c.commitFailed(ctx, r, err)
	return err
}

// commitFailed applies the outcome of a failed save to r.
func (c *Controller) commitFailed(ctx context.Context, r *row, err error) {
	var stillThere bool
	if errors.Is(err, ErrConflict) && !r.isNew {
		stillThere = c.exists(ctx, int64(r.id))
	}

	c.mu.Lock()
	if c.indexOf(r) < 0 {
		c.mu.Unlock()
		return
	}
	r.err = err

	refresh := true
	switch {
	case errors.Is(err, ErrInvalidInput):
		r.status = StatusDirty
		refresh = false
	case errors.Is(err, ErrNotFound):
		c.removeRow(r)
	case errors.Is(err, ErrConflict) && !r.isNew && !stillThere:
		c.removeRow(r)
	default:
		// Network failures, conflicts on a row that still exists, and
		// anything unexpected all restore the last committed values.
		r.rollback()
	}
	c.version++
	c.mu.Unlock()

	c.logger.WarnContext(ctx, "Commit failed",
		applog.FieldExpenseID, int64(r.id),
		applog.FieldError, err)

	if refresh {
		c.refreshAfterMutation(ctx)
	}
}

// exists reports whether the store still has id. A failed lookup counts as
// present so the row is rolled back instead of dropped.
func (c *Controller) exists(ctx context.Context, id int64) bool {
	expenses, err := c.store.List(ctx)
	if err != nil {
		return true
	}
	for _, e := range expenses {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Remove deletes the row. A draft that was never created is dropped
// locally; a row the store no longer has is dropped too.
func (c *Controller) Remove(ctx context.Context, id RowID) error {
	c.mu.Lock()
	r := c.find(id)
	if r == nil {
		c.mu.Unlock()
		return ErrUnknownRow
	}
	if r.status == StatusSaving {
		c.mu.Unlock()
		return ErrRowBusy
	}
	if r.isNew {
		c.removeRow(r)
		c.version++
		c.mu.Unlock()
		return nil
	}
	prev := r.status
	r.status = StatusSaving
	c.version++
	c.mu.Unlock()

	err := c.store.Delete(ctx, int64(id))
	if errors.Is(err, ErrNotFound) {
		err = nil
	}

	c.mu.Lock()
	if c.indexOf(r) < 0 {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		r.status = prev
		r.err = err
		c.version++
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "Delete failed", applog.FieldExpenseID, int64(id), applog.FieldError, err)
		return err
	}
	c.removeRow(r)
	c.version++
	c.mu.Unlock()

	c.refreshAfterMutation(ctx)
	return nil
}

// reconcile gives a created draft its server id in place, keeping its
// position and moving focus with it. Callers hold c.mu.
func (c *Controller) reconcile(tempID RowID, e core.Expense) bool {
	r := c.find(tempID)
	if r == nil {
		return false
	}
	r.id = RowID(e.ID)
	r.isNew = false
	if c.focus.Row == tempID {
		c.focus.Row = r.id
	}
	return true
}

// RefreshTotal asks the store for the total. On failure the total falls
// back to the sum of the rows as displayed and the error is returned.
// A response that arrives after a newer one was applied is discarded.
func (c *Controller) RefreshTotal(ctx context.Context) error {
	seq := c.nextTotalSeq()
	total, err := c.store.Total(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if seq > c.totalApplied {
			c.totalApplied = seq
			c.total = c.localTotal()
			c.version++
		}
		return fmt.Errorf("refresh total: %w", err)
	}
	c.applyTotal(seq, total)
	return nil
}

func (c *Controller) nextTotalSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalIssued++
	return c.totalIssued
}

// applyTotal records total unless a newer response is already applied.
// Callers hold c.mu.
func (c *Controller) applyTotal(seq uint64, total decimal.Decimal) {
	if seq <= c.totalApplied {
		return
	}
	c.totalApplied = seq
	c.total = total
	c.version++
}

func (c *Controller) refreshAfterMutation(ctx context.Context) {
	if err := c.RefreshTotal(ctx); err != nil {
		c.logger.WarnContext(ctx, "Using local total", applog.FieldError, err)
	}
}

func (c *Controller) localTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range c.rows {
		sum = sum.Add(r.displayTotal())
	}
	return sum
}

// Rows returns a snapshot in display order.
func (c *Controller) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]Row, len(c.rows))
	for i, r := range c.rows {
		out[i] = r.view(now)
	}
	return out
}

func (c *Controller) Row(id RowID) (Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.find(id)
	if r == nil {
		return Row{}, false
	}
	return r.view(c.now()), true
}

func (c *Controller) Focus() Focus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

func (c *Controller) SetFocus(id RowID, f Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.find(id) == nil {
		return ErrUnknownRow
	}
	c.focus = Focus{Row: id, Field: f}
	return nil
}

func (c *Controller) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Version increases on every change visible through Rows, Focus or Total.
func (c *Controller) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Controller) find(id RowID) *row {
	for _, r := range c.rows {
		if r.id == id {
			return r
		}
	}
	return nil
}

func (c *Controller) indexOf(target *row) int {
	for i, r := range c.rows {
		if r == target {
			return i
		}
	}
	return -1
}

func (c *Controller) removeRow(target *row) {
	i := c.indexOf(target)
	if i < 0 {
		return
	}
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
	if c.focus.Row == target.id {
		c.focus = Focus{}
	}
}
