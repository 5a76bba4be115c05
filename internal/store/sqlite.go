package store

import (
	"context"
	"database/sql"
	"time"

	"tradewire/internal/tradeapi"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ OrderJournal = (*SQLiteJournal)(nil)

// SQLiteJournal records placed and cancelled orders in a SQLite database, so
// the client keeps an audit trail independent of the venue.
type SQLiteJournal struct {
	db *sql.DB
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id        TEXT PRIMARY KEY,
	client_order_id TEXT NOT NULL,
	account_id      TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	side            INTEGER NOT NULL,
	quantity        REAL NOT NULL,
	limit_price     REAL NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders (symbol);
`

// NewSQLiteJournal opens (or creates) the journal database at dbPath and
// ensures the schema exists.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// RecordPlaced inserts a journal row for a freshly placed order. Replaying
// the same order id updates the row in place.
func (j *SQLiteJournal) RecordPlaced(ctx context.Context, state *tradeapi.OrderState) error {
	now := time.Now().UTC()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, client_order_id, account_id, symbol,
			side, quantity, limit_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		state.OrderID, state.Order.ClientOrderID, state.Order.AccountID,
		state.Order.Symbol, int32(state.Order.Side), state.Order.Quantity,
		state.Order.LimitPrice, state.Status.String(), now, now)
	return err
}

// RecordCancelled marks an order as cancelled. Unknown order ids are ignored.
func (j *SQLiteJournal) RecordCancelled(ctx context.Context, orderID string) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		tradeapi.OrderStatusCanceled.String(), time.Now().UTC(), orderID)
	return err
}

// Entries returns the most recent journal rows, newest first, up to limit.
func (j *SQLiteJournal) Entries(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT order_id, client_order_id, account_id, symbol, side,
			quantity, limit_price, status, created_at, updated_at
		FROM orders ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var side int32
		if err := rows.Scan(&e.OrderID, &e.ClientOrderID, &e.AccountID,
			&e.Symbol, &side, &e.Quantity, &e.LimitPrice, &e.Status,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Side = tradeapi.Side(side)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
