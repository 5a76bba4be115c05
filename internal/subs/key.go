// Package subs implements the subscription registry and the per-subscription
// stream workers: at most one live stream per key, bounded retry on
// transient stream errors, and fan-out of received events through a capped
// handler pool.
package subs

import (
	"fmt"
	"strings"

	"tradewire/internal/tradeapi"
)

// StreamKind names the server-streaming endpoint a subscription rides on.
// It is part of the key, so a quote and an order-book subscription for the
// same symbol are distinct subscriptions.
type StreamKind int

const (
	StreamQuote StreamKind = iota
	StreamOrderBook
	StreamLatestTrades
	StreamBars
)

func (s StreamKind) String() string {
	switch s {
	case StreamQuote:
		return "quote"
	case StreamOrderBook:
		return "order_book"
	case StreamLatestTrades:
		return "latest_trades"
	case StreamBars:
		return "bars"
	default:
		return "unknown"
	}
}

// Key identifies one logical subscription. Symbol sets are joined in the
// order the caller passed them, so the same set in the same order is the
// same subscription.
type Key struct {
	Stream    StreamKind
	Symbols   string
	Timeframe tradeapi.TimeFrame
}

// QuoteKey builds the key for a quote subscription over a symbol set.
func QuoteKey(symbols []string) Key {
	return Key{Stream: StreamQuote, Symbols: strings.Join(symbols, ",")}
}

// OrderBookKey builds the key for an order-book subscription.
func OrderBookKey(symbol string) Key {
	return Key{Stream: StreamOrderBook, Symbols: symbol}
}

// LatestTradesKey builds the key for a market-trade subscription.
func LatestTradesKey(symbol string) Key {
	return Key{Stream: StreamLatestTrades, Symbols: symbol}
}

// BarsKey builds the key for a bar subscription.
func BarsKey(symbol string, tf tradeapi.TimeFrame) Key {
	return Key{Stream: StreamBars, Symbols: symbol, Timeframe: tf}
}

func (k Key) String() string {
	if k.Stream == StreamBars {
		return fmt.Sprintf("%s/%s/%s", k.Stream, k.Symbols, k.Timeframe)
	}
	return fmt.Sprintf("%s/%s", k.Stream, k.Symbols)
}
