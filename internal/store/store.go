// Package store provides optional local persistence for the client: Parquet
// capture of streamed market data and a SQLite journal of the orders the
// client placed or cancelled.
package store

import (
	"context"
	"time"

	"tradewire/internal/tradeapi"
)

// BarWriter captures streamed bars.
type BarWriter interface {
	// WriteBars persists a batch of bars for the given timeframe.
	WriteBars(ctx context.Context, tf tradeapi.TimeFrame, bars []tradeapi.Bar) error
}

// TradeWriter captures streamed market trades.
type TradeWriter interface {
	// WriteTrades persists a batch of trades.
	WriteTrades(ctx context.Context, trades []tradeapi.MarketTrade) error
}

// BarReader reads captured bars back, for tooling built on a capture dir.
type BarReader interface {
	// ReadBars returns captured bars for symbol/timeframe within [start, end].
	ReadBars(ctx context.Context, symbol string, tf tradeapi.TimeFrame, start, end time.Time) ([]tradeapi.Bar, error)
}

// JournalEntry is one row of the client-side order journal.
type JournalEntry struct {
	OrderID       string
	ClientOrderID string
	AccountID     string
	Symbol        string
	Side          tradeapi.Side
	Quantity      float64
	LimitPrice    float64
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderJournal records the order lifecycle as seen from this client.
type OrderJournal interface {
	// RecordPlaced inserts a journal row for a freshly placed order.
	RecordPlaced(ctx context.Context, state *tradeapi.OrderState) error

	// RecordCancelled marks an order as cancelled.
	RecordCancelled(ctx context.Context, orderID string) error

	// Entries returns the most recent journal rows, newest first, up to limit.
	Entries(ctx context.Context, limit int) ([]JournalEntry, error)
}
