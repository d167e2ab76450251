package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"cinecalc/internal/core"
)

// EventType names the change an ExpenseEvent reports.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is published after every successful write to the ledger.
// ID is unique per event so consumers can drop redeliveries.
type ExpenseEvent struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	ExpenseID int64         `json:"expenseId"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseEvent creates an event with a fresh id. expense is nil for deletions.
func NewExpenseEvent(t EventType, expenseID int64, expense *core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		ExpenseID: expenseID,
		Expense:   expense,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects bodies without an id or type.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.Type == "" {
		return nil, errInvalidEvent
	}
	return &msg, nil
}
