package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
	apphttp "cinecalc/internal/http"
	"cinecalc/internal/ledger"
	applog "cinecalc/internal/log"
	"cinecalc/internal/services"
	"cinecalc/internal/storage/memory"
)

func newAPI(t *testing.T) (*Client, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := apphttp.NewServer(apphttp.Config{Logger: applog.Discard(), RateLimitPerMinute: 1000},
		services.NewExpenseService(store, nil))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return New(Config{BaseURL: ts.URL + "/api/"}), store
}

func input(name, price, markup string) core.ExpenseInput {
	return core.ExpenseInput{
		Name:             name,
		Price:            decimal.RequireFromString(price),
		PercentageMarkup: decimal.RequireFromString(markup),
	}
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := newAPI(t)
	ctx := context.Background()

	e, err := c.Create(ctx, input("Catering", "500", "10"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID != 1 || e.TotalPrice.StringFixed(core.Scale) != "550.00" {
		t.Fatalf("unexpected expense %+v", e)
	}

	if err := c.Update(ctx, e.ID, input("Catering", "500", "25")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list, err := c.List(ctx)
	if err != nil || len(list) != 1 || list[0].PercentageMarkup.StringFixed(core.Scale) != "25.00" {
		t.Fatalf("List = %+v, %v", list, err)
	}

	total, err := c.Total(ctx)
	if err != nil || total.StringFixed(core.Scale) != "625.00" {
		t.Fatalf("Total = %s, %v", total, err)
	}

	if err := c.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if list, _ := c.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestClientErrorKinds(t *testing.T) {
	c, _ := newAPI(t)
	ctx := context.Background()

	_, err := c.Create(ctx, input("x", "-1", "0"))
	var verr *core.ValidationError
	if !errors.As(err, &verr) || verr.Reason != "Price cannot be negative" || !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := c.Update(ctx, 42, input("x", "1", "0")); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := c.Delete(ctx, 42); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"conflict", http.StatusConflict, `{"message":"modified"}`, ledger.ErrConflict},
		{"server error", http.StatusInternalServerError, `{"message":"Internal server error"}`, ledger.ErrNetwork},
		{"rate limited", http.StatusTooManyRequests, ``, ledger.ErrNetwork},
		{"bad request", http.StatusBadRequest, `not json`, ledger.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			err := New(Config{BaseURL: ts.URL}).Update(context.Background(), 1, input("x", "1", "0"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(Config{BaseURL: url}).List(context.Background())
	if !errors.Is(err, ledger.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestClientCreateSendsIdempotencyKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"name":"x","price":1.00,"percentageMarkup":0.00,"totalPrice":1.00}`))
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL})
	for i := 0; i < 2; i++ {
		if _, err := c.Create(context.Background(), input("x", "1", "0")); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("expected two distinct keys, got %q", keys)
	}
}

func TestControllerOverHTTP(t *testing.T) {
	c, _ := newAPI(t)
	ctx := context.Background()
	ctl := ledger.NewController(c, ledger.WithLogger(applog.Discard()))

	if err := ctl.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	id := ctl.AddDraft()
	ctl.Edit(id, ledger.FieldName, "Catering")
	ctl.Edit(id, ledger.FieldPrice, "500")
	ctl.Edit(id, ledger.FieldMarkup, "10")
	if err := ctl.Commit(ctx, id); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	rows := ctl.Rows()
	if len(rows) != 1 || rows[0].ID != 1 || ctl.Total().StringFixed(core.Scale) != "550.00" {
		t.Fatalf("unexpected state %+v total %s", rows, ctl.Total())
	}
}
