package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"closed delivery channel", errors.New("message channel closed"), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isConnectionError(tt.err); result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed initially")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("Circuit breaker should be open after max failures")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("Failure count should be reset to 0 after success")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("Circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("State should be StateHalfOpen after timeout")
		}
	})
}

func TestClient_PublishFailsFast(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	ev := NewExpenseEvent(ExpenseDeleted, 1, nil)

	t.Run("open circuit", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.Publish(context.Background(), ev)
		if !errors.Is(err, errCircuitOpen) {
			t.Errorf("expected circuit breaker error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := client.Publish(ctx, ev); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestExpenseEvent_JSON(t *testing.T) {
	e := core.NewExpense(7, core.ExpenseInput{
		Name:             "Catering",
		Price:            decimal.RequireFromString("500"),
		PercentageMarkup: decimal.RequireFromString("10"),
	})
	ev := NewExpenseEvent(ExpenseCreated, e.ID, &e)

	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(body), `"totalPrice":550.00`) {
		t.Errorf("expected numeric total in %s", body)
	}

	parsed, err := ExpenseEventFromJSON(body)
	if err != nil {
		t.Fatalf("ExpenseEventFromJSON() error = %v", err)
	}
	if parsed.ID != ev.ID || parsed.Type != ExpenseCreated || parsed.ExpenseID != 7 {
		t.Errorf("unexpected event: %+v", parsed)
	}
	if parsed.Expense == nil || !parsed.Expense.Price.Equal(e.Price) {
		t.Errorf("expense not carried: %+v", parsed.Expense)
	}
}

func TestDispatch(t *testing.T) {
	valid, _ := NewExpenseEvent(ExpenseDeleted, 3, nil).ToJSON()

	tests := []struct {
		name    string
		body    []byte
		handler Handler
		want    ackAction
	}{
		{
			name:    "handled",
			body:    valid,
			handler: func(context.Context, *ExpenseEvent) error { return nil },
			want:    ack,
		},
		{
			name:    "handler error requeues",
			body:    valid,
			handler: func(context.Context, *ExpenseEvent) error { return errors.New("db down") },
			want:    requeue,
		},
		{
			name:    "malformed body is dropped",
			body:    []byte(`{"id":`),
			handler: func(context.Context, *ExpenseEvent) error { return nil },
			want:    drop,
		},
		{
			name:    "missing id is dropped",
			body:    []byte(`{"type":"expense.deleted","expenseId":1}`),
			handler: func(context.Context, *ExpenseEvent) error { return nil },
			want:    drop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dispatch(context.Background(), tt.body, tt.handler); got != tt.want {
				t.Errorf("dispatch() = %v, want %v", got, tt.want)
			}
		})
	}
}
