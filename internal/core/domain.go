package core

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of fractional digits kept for every stored amount.
	Scale = 2

	MaxNameLength = 100
	DefaultName   = "Unnamed Expense"
)

var (
	MaxPrice  = decimal.NewFromInt(1_000_000_000)
	MaxMarkup = decimal.NewFromInt(100)
)

type (
	// Expense is a persisted line item. TotalPrice is always derived from
	// Price and PercentageMarkup and is never taken from client input.
	Expense struct {
		ID               int64           `json:"id"`
		Name             string          `json:"name"`
		Price            decimal.Decimal `json:"price"`
		PercentageMarkup decimal.Decimal `json:"percentageMarkup"`
		TotalPrice       decimal.Decimal `json:"totalPrice"`
	}

	// ExpenseInput holds the editable fields of an expense.
	ExpenseInput struct {
		Name             string          `json:"name"`
		Price            decimal.Decimal `json:"price"`
		PercentageMarkup decimal.Decimal `json:"percentageMarkup"`
	}
)

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrNegativePrice  = &ValidationError{Reason: "Price cannot be negative"}
	ErrPriceTooHigh   = &ValidationError{Reason: "Price exceeds maximum"}
	ErrNegativeMarkup = &ValidationError{Reason: "Markup cannot be negative"}
	ErrMarkupTooHigh  = &ValidationError{Reason: "Markup exceeds 100%"}
	ErrTotalTooHigh   = &ValidationError{Reason: "Total exceeds maximum"}
	ErrNameTooLong    = &ValidationError{Reason: "Name exceeds 100 characters"}
)

// ValidationError carries the human readable reason a record was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ComputeTotal returns price + price*markup/100 rounded to two decimals,
// half away from zero. Inputs are not clamped.
func ComputeTotal(price, markup decimal.Decimal) decimal.Decimal {
	return price.Add(price.Mul(markup).Shift(-2)).Round(Scale)
}

// Validate checks an input against the price, markup and total bounds.
// The order of checks is part of the contract: both the store and the
// client report the first failing rule.
//
// The total bound is checked against the rounded total, the same value
// that is displayed and returned by the store.
func Validate(in ExpenseInput) error {
	switch {
	case in.Price.IsNegative():
		return ErrNegativePrice
	case in.Price.GreaterThan(MaxPrice):
		return ErrPriceTooHigh
	case in.PercentageMarkup.IsNegative():
		return ErrNegativeMarkup
	case in.PercentageMarkup.GreaterThan(MaxMarkup):
		return ErrMarkupTooHigh
	case ComputeTotal(in.Price, in.PercentageMarkup).GreaterThan(MaxPrice):
		return ErrTotalTooHigh
	case utf8.RuneCountInString(strings.TrimSpace(in.Name)) > MaxNameLength:
		return ErrNameTooLong
	}
	return nil
}

// NormalizeName trims the name and substitutes DefaultName when empty.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return name
}

// Normalize produces the canonical form of an input: trimmed name with the
// default substituted, amounts rounded to two decimals.
func Normalize(name string, price, markup decimal.Decimal) ExpenseInput {
	return ExpenseInput{
		Name:             NormalizeName(name),
		Price:            price.Round(Scale),
		PercentageMarkup: markup.Round(Scale),
	}
}

// Normalized returns the canonical form of the input.
func (in ExpenseInput) Normalized() ExpenseInput {
	return Normalize(in.Name, in.Price, in.PercentageMarkup)
}

// Total returns the derived total price.
func (in ExpenseInput) Total() decimal.Decimal {
	return ComputeTotal(in.Price, in.PercentageMarkup)
}

// Equal reports whether both inputs render identically at two decimals.
func (in ExpenseInput) Equal(other ExpenseInput) bool {
	return in.Name == other.Name &&
		in.Price.StringFixed(Scale) == other.Price.StringFixed(Scale) &&
		in.PercentageMarkup.StringFixed(Scale) == other.PercentageMarkup.StringFixed(Scale)
}

// NewExpense builds an expense for id from an input, deriving TotalPrice.
func NewExpense(id int64, in ExpenseInput) Expense {
	return Expense{
		ID:               id,
		Name:             in.Name,
		Price:            in.Price,
		PercentageMarkup: in.PercentageMarkup,
		TotalPrice:       in.Total(),
	}
}

// Input returns the editable fields of the expense.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Name:             e.Name,
		Price:            e.Price,
		PercentageMarkup: e.PercentageMarkup,
	}
}

// Recomputed returns a copy whose TotalPrice is derived again from the
// stored price and markup.
func (e Expense) Recomputed() Expense {
	e.TotalPrice = ComputeTotal(e.Price, e.PercentageMarkup)
	return e
}
