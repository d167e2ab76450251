// Package memory is an in-process ExpenseStore used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
	"cinecalc/internal/storage"
)

var (
	_ storage.ExpenseStore = (*Store)(nil)
	_ storage.EventLog     = (*Store)(nil)
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Expense
	events []storage.EventRecord
	seen   map[string]struct{}
}

func New() *Store {
	return &Store{
		items: make(map[int64]core.Expense),
		seen:  make(map[string]struct{}),
	}
}

// NewSeeded returns a store holding the given inputs under ids 1..n.
func NewSeeded(inputs ...core.ExpenseInput) *Store {
	s := New()
	for _, in := range inputs {
		s.nextID++
		s.items[s.nextID] = core.NewExpense(s.nextID, in)
	}
	return s
}

func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e.Recomputed())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e.Recomputed(), nil
}

// Create assigns the next id. Ids of deleted rows are never handed out again.
func (s *Store) Create(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e := core.NewExpense(s.nextID, in)
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) Update(_ context.Context, id int64, in core.ExpenseInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	s.items[id] = core.NewExpense(id, in)
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Exists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok, nil
}

func (s *Store) SumAll(ctx context.Context) (decimal.Decimal, error) {
	expenses, _ := s.List(ctx)
	return storage.SumTotals(expenses), nil
}

func (s *Store) AppendEvent(_ context.Context, e storage.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[e.ID]; dup {
		return nil
	}
	s.seen[e.ID] = struct{}{}
	s.events = append(s.events, e)
	return nil
}

func (s *Store) ListEvents(_ context.Context, expenseID int64) ([]storage.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.EventRecord
	for _, e := range s.events {
		if e.ExpenseID == expenseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
