package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
)

// RowID identifies a row. Saved rows use the server id; drafts use negative
// temporary ids until their first successful create.
type RowID int64

// Field is one of the editable columns.
type Field int

const (
	FieldName Field = iota
	FieldPrice
	FieldMarkup
)

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldPrice:
		return "price"
	case FieldMarkup:
		return "markup"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

type Status int

const (
	StatusIdle Status = iota
	StatusDirty
	StatusSaving
	StatusSaved
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusDirty:
		return "dirty"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// SavedDisplay is how long a row reports StatusSaved before reading as idle.
const SavedDisplay = 2 * time.Second

// Row is a read-only view of one ledger row.
type Row struct {
	ID     RowID
	Name   string
	Price  string
	Markup string
	// Total is derived from Price and Markup as currently typed.
	Total  decimal.Decimal
	Status Status
	IsNew  bool
	Err    error
}

type row struct {
	id     RowID
	name   string
	price  string
	markup string

	// original is the last committed record; nil until a draft is created.
	original *core.ExpenseInput
	isNew    bool
	status   Status
	savedAt  time.Time
	err      error
}

func newRow(e core.Expense) *row {
	r := &row{id: RowID(e.ID)}
	in := e.Input()
	r.setValues(in)
	r.original = &in
	return r
}

// newDraft starts with an empty name and zeroed amounts.
func newDraft(id RowID) *row {
	r := &row{id: id, isNew: true}
	r.setValues(core.ExpenseInput{})
	return r
}

func (r *row) setValues(in core.ExpenseInput) {
	r.name = in.Name
	r.price = in.Price.StringFixed(core.Scale)
	r.markup = in.PercentageMarkup.StringFixed(core.Scale)
}

func (r *row) edit(f Field, raw string) error {
	if r.status == StatusSaving {
		return ErrRowBusy
	}
	switch f {
	case FieldName:
		r.name = raw
	case FieldPrice:
		r.price = raw
	case FieldMarkup:
		r.markup = raw
	default:
		return fmt.Errorf("unknown field %v", f)
	}
	r.status = StatusDirty
	return nil
}

// displayTotal treats anything unparsable as zero.
func (r *row) displayTotal() decimal.Decimal {
	return core.ComputeTotal(core.ParseAmountOrZero(r.price), core.ParseAmountOrZero(r.markup))
}

// input parses and normalizes the typed values. Empty numbers are zero.
func (r *row) input() (core.ExpenseInput, error) {
	price, err := core.ParseAmount(r.price)
	if err != nil {
		return core.ExpenseInput{}, &core.ValidationError{Reason: "Price must be a number"}
	}
	markup, err := core.ParseAmount(r.markup)
	if err != nil {
		return core.ExpenseInput{}, &core.ValidationError{Reason: "Markup must be a number"}
	}
	return core.Normalize(r.name, price, markup), nil
}

// rollback restores the last committed values, or zeroes a draft.
func (r *row) rollback() {
	if r.original == nil {
		r.setValues(core.ExpenseInput{})
	} else {
		r.setValues(*r.original)
	}
	r.status = StatusIdle
}

func (r *row) markSaved(in core.ExpenseInput, now time.Time) {
	r.setValues(in)
	r.original = &in
	r.isNew = false
	r.status = StatusSaved
	r.savedAt = now
	r.err = nil
}

func (r *row) statusAt(now time.Time) Status {
	if r.status == StatusSaved && now.Sub(r.savedAt) >= SavedDisplay {
		return StatusIdle
	}
	return r.status
}

func (r *row) view(now time.Time) Row {
	return Row{
		ID:     r.id,
		Name:   r.name,
		Price:  r.price,
		Markup: r.markup,
		Total:  r.displayTotal(),
		Status: r.statusAt(now),
		IsNew:  r.isNew,
		Err:    r.err,
	}
}
