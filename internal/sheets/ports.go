package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror keeps an external copy of the ledger in sync. Every call
	// replaces the previous copy with the given expenses and total.
	LedgerMirror interface {
		Mirror(ctx context.Context, expenses []core.Expense, total decimal.Decimal) error
	}
)
