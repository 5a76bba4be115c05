package tradeapi

import "time"

// ---------------------------------------------------------------------------
// Server-streaming subscription requests and their events
// ---------------------------------------------------------------------------

// SubscribeQuoteRequest opens a quote stream for one or more symbols.
type SubscribeQuoteRequest struct {
	Symbols []string `json:"symbols"`
}

// QuoteEvent is one message on a quote stream.
type QuoteEvent struct {
	Quotes []Quote `json:"quotes"`
}

// SubscribeOrderBookRequest opens an order-book stream for one symbol.
type SubscribeOrderBookRequest struct {
	Symbol string `json:"symbol"`
}

// OrderBookEvent is one message on an order-book stream.
type OrderBookEvent struct {
	Symbol    string    `json:"symbol"`
	OrderBook OrderBook `json:"orderbook"`
	Timestamp time.Time `json:"timestamp"`
}

// SubscribeLatestTradesRequest opens a market-trade stream for one symbol.
type SubscribeLatestTradesRequest struct {
	Symbol string `json:"symbol"`
}

// LatestTradesEvent is one message on a market-trade stream.
type LatestTradesEvent struct {
	Symbol string        `json:"symbol"`
	Trades []MarketTrade `json:"trades"`
}

// SubscribeBarsRequest opens a bar stream for one symbol and timeframe.
type SubscribeBarsRequest struct {
	Symbol    string    `json:"symbol"`
	Timeframe TimeFrame `json:"timeframe"`
}

// BarsEvent is one message on a bar stream.
type BarsEvent struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// ---------------------------------------------------------------------------
// Bidirectional order/trade stream
// ---------------------------------------------------------------------------

// OrderTradeSubscription is the subscribe/unsubscribe payload on the
// bidirectional order/trade stream.
type OrderTradeSubscription struct {
	RequestID   string   `json:"request_id"`
	DataType    DataType `json:"data_type"`
	AccountID   string   `json:"account_id"`
	Unsubscribe bool     `json:"unsubscribe,omitempty"`
}

// KeepAlive is the periodic no-op payload that prevents idle-timeout
// teardown of the bidirectional stream.
type KeepAlive struct {
	RequestID string `json:"request_id"`
}

// SubscriptionCommand is one outbound message on the bidirectional stream.
// Exactly one field is set.
type SubscriptionCommand struct {
	OrderTrade *OrderTradeSubscription `json:"order_trade,omitempty"`
	KeepAlive  *KeepAlive              `json:"keep_alive,omitempty"`
}

// ---------------------------------------------------------------------------
// Multiplexed inbound event envelope
// ---------------------------------------------------------------------------

// EventKind tags the populated variant of an Event envelope.
type EventKind int

const (
	EventKindNone EventKind = iota
	EventKindOrder
	EventKindTrade
	EventKindOrderBook
	EventKindPortfolio
	EventKindResponse
)

func (k EventKind) String() string {
	switch k {
	case EventKindOrder:
		return "order"
	case EventKindTrade:
		return "trade"
	case EventKindOrderBook:
		return "order_book"
	case EventKindPortfolio:
		return "portfolio"
	case EventKindResponse:
		return "response"
	default:
		return "none"
	}
}

// OrderEvent reports a state change of one of the account's own orders.
type OrderEvent struct {
	AccountID string     `json:"account_id"`
	Order     OrderState `json:"order"`
}

// TradeEvent reports an execution against one of the account's own orders.
type TradeEvent struct {
	AccountID string       `json:"account_id"`
	Trade     AccountTrade `json:"trade"`
}

// PortfolioEvent is a pushed portfolio revaluation.
type PortfolioEvent struct {
	AccountID string     `json:"account_id"`
	Equity    float64    `json:"equity"`
	Cash      float64    `json:"cash"`
	Positions []Position `json:"positions"`
}

// ResponseEvent acknowledges a subscription command (including keep-alives).
type ResponseEvent struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// Event is the tagged union delivered on the bidirectional stream. The
// server populates exactly one variant per message.
type Event struct {
	Order     *OrderEvent     `json:"order,omitempty"`
	Trade     *TradeEvent     `json:"trade,omitempty"`
	OrderBook *OrderBookEvent `json:"order_book,omitempty"`
	Portfolio *PortfolioEvent `json:"portfolio,omitempty"`
	Response  *ResponseEvent  `json:"response,omitempty"`
}

// Kind reports which variant is populated. A well-formed server sets exactly
// one; if none is set, Kind returns EventKindNone and the event is dropped
// by the fan-out.
func (e *Event) Kind() EventKind {
	switch {
	case e.Order != nil:
		return EventKindOrder
	case e.Trade != nil:
		return EventKindTrade
	case e.OrderBook != nil:
		return EventKindOrderBook
	case e.Portfolio != nil:
		return EventKindPortfolio
	case e.Response != nil:
		return EventKindResponse
	default:
		return EventKindNone
	}
}
