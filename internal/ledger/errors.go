package ledger

import (
	"errors"

	"cinecalc/internal/core"
	"cinecalc/internal/storage"
)

// Error kinds a Store reports. Implementations wrap these so callers can
// use errors.Is regardless of transport.
var (
	ErrInvalidInput = core.ErrInvalidInput
	ErrNotFound     = storage.ErrNotFound
	ErrConflict     = storage.ErrConflict
	ErrNetwork      = errors.New("network error")
)

var (
	// ErrRowBusy is returned for any change to a row while its save is in flight.
	ErrRowBusy    = errors.New("row is saving")
	ErrUnknownRow = errors.New("unknown row")
)
