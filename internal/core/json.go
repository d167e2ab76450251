package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AmountJSON renders a decimal as a JSON number with exactly two decimals.
func AmountJSON(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(Scale))
}

type expenseJSON struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Price            json.Number `json:"price"`
	PercentageMarkup json.Number `json:"percentageMarkup"`
	TotalPrice       json.Number `json:"totalPrice"`
}

// MarshalJSON writes amounts as numbers rather than decimal's default quoted
// strings, so browser clients can use them directly.
func (e Expense) MarshalJSON() ([]byte, error) {
	return json.Marshal(expenseJSON{
		ID:               e.ID,
		Name:             e.Name,
		Price:            AmountJSON(e.Price),
		PercentageMarkup: AmountJSON(e.PercentageMarkup),
		TotalPrice:       AmountJSON(e.TotalPrice),
	})
}

func (in ExpenseInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name             string      `json:"name"`
		Price            json.Number `json:"price"`
		PercentageMarkup json.Number `json:"percentageMarkup"`
	}{
		Name:             in.Name,
		Price:            AmountJSON(in.Price),
		PercentageMarkup: AmountJSON(in.PercentageMarkup),
	})
}
