package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cinecalc/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL database behind a Repository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// rebind rewrites ? placeholders to $N for Postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ensure Repository implements the storage interfaces
var (
	_ ExpenseStore = (*Repository)(nil)
	_ EventLog     = (*Repository)(nil)
)

// Repository is the SQL implementation of ExpenseStore and EventLog.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the SQLite database at
// dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath)
}

// NewPostgresRepository connects to dsn and migrates the database.
func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(DialectPostgres, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if d == DialectSQLite {
		// A single writer avoids SQLITE_BUSY between concurrent requests.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: d}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price, percentage_markup FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT id, name, price, percentage_markup FROM expenses WHERE id = ?`), id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *Repository) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`INSERT INTO expenses (name, price, percentage_markup) VALUES (?, ?, ?) RETURNING id`),
		in.Name, in.Price.StringFixed(core.Scale), in.PercentageMarkup.StringFixed(core.Scale),
	).Scan(&id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"dialect", r.dialect,
		"name", in.Name,
		"price", in.Price.StringFixed(core.Scale),
		"percentage_markup", in.PercentageMarkup.StringFixed(core.Scale))

	return core.NewExpense(id, in), nil
}

func (r *Repository) Update(ctx context.Context, id int64, in core.ExpenseInput) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`UPDATE expenses SET name = ?, price = ?, percentage_markup = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		in.Name, in.Price.StringFixed(core.Scale), in.PercentageMarkup.StringFixed(core.Scale), id)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense %d rows affected: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT 1 FROM expenses WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check expense %d: %w", id, err)
	}
	return true, nil
}

// SumAll reads every row and recomputes its total instead of summing a
// stored column.
func (r *Repository) SumAll(ctx context.Context) (decimal.Decimal, error) {
	expenses, err := r.List(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return SumTotals(expenses), nil
}

func (r *Repository) AppendEvent(ctx context.Context, e EventRecord) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`INSERT INTO expense_events (id, event_type, expense_id, payload, occurred_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`),
		e.ID, e.Type, e.ExpenseID, string(e.Payload), e.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("append event %s: %w", e.ID, err)
	}
	return nil
}

func (r *Repository) ListEvents(ctx context.Context, expenseID int64) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(
		`SELECT id, event_type, expense_id, payload, occurred_at FROM expense_events WHERE expense_id = ? ORDER BY occurred_at, recorded_at`),
		expenseID)
	if err != nil {
		return nil, fmt.Errorf("list events for expense %d: %w", expenseID, err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			e          EventRecord
			payload    string
			occurredAt time.Time
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.ExpenseID, &payload, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = []byte(payload)
		e.OccurredAt = occurredAt
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var e core.Expense
	if err := s.Scan(&e.ID, &e.Name, &e.Price, &e.PercentageMarkup); err != nil {
		return core.Expense{}, err
	}
	return e.Recomputed(), nil
}
