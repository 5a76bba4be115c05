package tradewire

import (
	"context"

	"tradewire/internal/events"
	"tradewire/internal/subs"
	"tradewire/internal/tradeapi"
	"tradewire/internal/transport"
)

// OnQuote replaces the quote stream handler. A nil handler restores the
// no-op default. Handlers may be swapped while streams are live.
func (c *Client) OnQuote(h QuoteHandler) {
	if h == nil {
		h = func(*tradeapi.QuoteEvent) {}
	}
	c.onQuote.Store(h)
}

// OnOrderBook replaces the order-book stream handler.
func (c *Client) OnOrderBook(h OrderBookHandler) {
	if h == nil {
		h = func(*tradeapi.OrderBookEvent) {}
	}
	c.onOrderBook.Store(h)
}

// OnLatestTrades replaces the market-trade stream handler.
func (c *Client) OnLatestTrades(h LatestTradesHandler) {
	if h == nil {
		h = func(*tradeapi.LatestTradesEvent) {}
	}
	c.onLatestTrades.Store(h)
}

// OnBars replaces the bar stream handler.
func (c *Client) OnBars(h BarsHandler) {
	if h == nil {
		h = func(*tradeapi.BarsEvent) {}
	}
	c.onBars.Store(h)
}

// OnOrder replaces the own-order event handler on the order/trade stream.
func (c *Client) OnOrder(h events.OrderHandler) { c.mux.SetOnOrder(h) }

// OnTrade replaces the own-trade event handler on the order/trade stream.
func (c *Client) OnTrade(h events.TradeHandler) { c.mux.SetOnTrade(h) }

// OnPortfolio replaces the portfolio event handler on the order/trade stream.
func (c *Client) OnPortfolio(h events.PortfolioHandler) { c.mux.SetOnPortfolio(h) }

// OnResponse replaces the command-acknowledgement handler on the order/trade
// stream.
func (c *Client) OnResponse(h events.ResponseHandler) { c.mux.SetOnResponse(h) }

// ---------------------------------------------------------------------------
// Market data subscriptions (server streams)
// ---------------------------------------------------------------------------

// SubscribeQuote opens a quote stream over a symbol set. Reports false if the
// same symbol set is already subscribed.
func (c *Client) SubscribeQuote(symbols []string) bool {
	open := c.opener(tradeapi.MethodSubscribeQuote,
		&tradeapi.SubscribeQuoteRequest{Symbols: symbols},
		func() any { return new(tradeapi.QuoteEvent) })
	return c.registry.Subscribe(subs.QuoteKey(symbols), open, func(msg any) {
		if ev, ok := msg.(*tradeapi.QuoteEvent); ok {
			c.onQuote.Load().(QuoteHandler)(ev)
		}
	})
}

// UnsubscribeQuote closes the quote stream for a symbol set.
func (c *Client) UnsubscribeQuote(symbols []string) {
	c.registry.Unsubscribe(subs.QuoteKey(symbols))
}

// SubscribeOrderBook opens an order-book stream for one symbol.
func (c *Client) SubscribeOrderBook(symbol string) bool {
	open := c.opener(tradeapi.MethodSubscribeOrderBook,
		&tradeapi.SubscribeOrderBookRequest{Symbol: symbol},
		func() any { return new(tradeapi.OrderBookEvent) })
	return c.registry.Subscribe(subs.OrderBookKey(symbol), open, func(msg any) {
		if ev, ok := msg.(*tradeapi.OrderBookEvent); ok {
			c.onOrderBook.Load().(OrderBookHandler)(ev)
		}
	})
}

// UnsubscribeOrderBook closes the order-book stream for a symbol.
func (c *Client) UnsubscribeOrderBook(symbol string) {
	c.registry.Unsubscribe(subs.OrderBookKey(symbol))
}

// SubscribeLatestTrades opens a market-trade stream for one symbol.
func (c *Client) SubscribeLatestTrades(symbol string) bool {
	open := c.opener(tradeapi.MethodSubscribeLatestTrades,
		&tradeapi.SubscribeLatestTradesRequest{Symbol: symbol},
		func() any { return new(tradeapi.LatestTradesEvent) })
	return c.registry.Subscribe(subs.LatestTradesKey(symbol), open, func(msg any) {
		if ev, ok := msg.(*tradeapi.LatestTradesEvent); ok {
			c.onLatestTrades.Load().(LatestTradesHandler)(ev)
		}
	})
}

// UnsubscribeLatestTrades closes the market-trade stream for a symbol.
func (c *Client) UnsubscribeLatestTrades(symbol string) {
	c.registry.Unsubscribe(subs.LatestTradesKey(symbol))
}

// SubscribeBars opens a bar stream for one symbol and timeframe.
func (c *Client) SubscribeBars(symbol string, tf tradeapi.TimeFrame) bool {
	open := c.opener(tradeapi.MethodSubscribeBars,
		&tradeapi.SubscribeBarsRequest{Symbol: symbol, Timeframe: tf},
		func() any { return new(tradeapi.BarsEvent) })
	return c.registry.Subscribe(subs.BarsKey(symbol, tf), open, func(msg any) {
		if ev, ok := msg.(*tradeapi.BarsEvent); ok {
			c.onBars.Load().(BarsHandler)(ev)
		}
	})
}

// UnsubscribeBars closes the bar stream for a symbol and timeframe.
func (c *Client) UnsubscribeBars(symbol string, tf tradeapi.TimeFrame) {
	c.registry.Unsubscribe(subs.BarsKey(symbol, tf))
}

// opener builds the registry's stream opener for one subscription. It reads
// the session metadata at open time, so reopened streams carry the current
// token, not the one from subscribe time.
func (c *Client) opener(method string, req any, newEvent func() any) subs.Opener {
	return func(ctx context.Context) (transport.EventStream, error) {
		return c.tp.OpenStream(ctx, method, req, newEvent, c.sess.Metadata())
	}
}

// ---------------------------------------------------------------------------
// Order/trade subscription (bidirectional stream)
// ---------------------------------------------------------------------------

// SubscribeOrderTrade subscribes to own-order and own-trade events for an
// account. The first call opens the shared bidirectional stream.
func (c *Client) SubscribeOrderTrade(ctx context.Context, accountID string, dt tradeapi.DataType) error {
	return c.mux.Subscribe(ctx, accountID, dt)
}

// UnsubscribeOrderTrade withdraws the matching subscription.
func (c *Client) UnsubscribeOrderTrade(ctx context.Context, accountID string, dt tradeapi.DataType) error {
	return c.mux.Unsubscribe(ctx, accountID, dt)
}
