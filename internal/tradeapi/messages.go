package tradeapi

import "time"

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// AuthRequest exchanges the long-lived API secret for a session token.
type AuthRequest struct {
	Secret string `json:"secret"`
}

// AuthResponse carries the freshly issued session token.
type AuthResponse struct {
	Token string `json:"token"`
}

// TokenDetailsRequest asks the venue to describe a session token.
type TokenDetailsRequest struct {
	Token string `json:"token"`
}

// TokenDetailsResponse describes a session token: when it expires and which
// accounts it grants access to.
type TokenDetailsResponse struct {
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	AccountIDs []string  `json:"account_ids"`
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

type GetAccountRequest struct {
	AccountID string `json:"account_id"`
}

// Position is one open position inside an account.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
}

// GetAccountResponse is a snapshot of an account's financial state.
type GetAccountResponse struct {
	AccountID string     `json:"account_id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Equity    float64    `json:"equity"`
	Cash      float64    `json:"cash"`
	Positions []Position `json:"positions"`
}

type TradesRequest struct {
	AccountID string    `json:"account_id"`
	Limit     int32     `json:"limit"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// AccountTrade is one executed trade from the account history.
type AccountTrade struct {
	TradeID   string    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Side      Side      `json:"side"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id"`
	AccountID string    `json:"account_id"`
}

type TradesResponse struct {
	Trades []AccountTrade `json:"trades"`
}

type TransactionsRequest struct {
	AccountID string    `json:"account_id"`
	Limit     int32     `json:"limit"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Transaction is a cash movement on the account (fees, transfers, fills).
type Transaction struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Change    float64   `json:"change"`
}

type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

type AssetsRequest struct{}

// Asset is one tradeable instrument.
type Asset struct {
	Symbol string `json:"symbol"`
	ID     string `json:"id"`
	Ticker string `json:"ticker"`
	MIC    string `json:"mic"`
	ISIN   string `json:"isin"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

type AssetsResponse struct {
	Assets []Asset `json:"assets"`
}

type ClockRequest struct{}

// ClockResponse is the venue's notion of current time.
type ClockResponse struct {
	Timestamp time.Time `json:"timestamp"`
}

type ExchangesRequest struct{}

type Exchange struct {
	MIC  string `json:"mic"`
	Name string `json:"name"`
}

type ExchangesResponse struct {
	Exchanges []Exchange `json:"exchanges"`
}

type GetAssetRequest struct {
	Symbol    string `json:"symbol"`
	AccountID string `json:"account_id"`
}

type GetAssetResponse struct {
	Asset
	Board    string  `json:"board"`
	Decimals int32   `json:"decimals"`
	MinStep  int64   `json:"min_step"`
	LotSize  float64 `json:"lot_size"`
}

type GetAssetParamsRequest struct {
	Symbol    string `json:"symbol"`
	AccountID string `json:"account_id"`
}

// GetAssetParamsResponse holds per-account trading permissions and margin
// rates for one instrument.
type GetAssetParamsResponse struct {
	Symbol        string  `json:"symbol"`
	AccountID     string  `json:"account_id"`
	Tradeable     bool    `json:"tradeable"`
	Longable      bool    `json:"longable"`
	Shortable     bool    `json:"shortable"`
	LongRiskRate  float64 `json:"long_risk_rate"`
	ShortRiskRate float64 `json:"short_risk_rate"`
}

type OptionsChainRequest struct {
	UnderlyingSymbol string `json:"underlying_symbol"`
}

type OptionContract struct {
	Symbol         string    `json:"symbol"`
	Type           string    `json:"type"`
	Strike         float64   `json:"strike"`
	ExpirationDate time.Time `json:"expiration_date"`
	Multiplier     float64   `json:"multiplier"`
}

type OptionsChainResponse struct {
	Symbol  string           `json:"symbol"`
	Options []OptionContract `json:"options"`
}

type ScheduleRequest struct {
	Symbol string `json:"symbol"`
}

// ScheduleSession is one named trading session window.
type ScheduleSession struct {
	Type      string    `json:"type"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ScheduleResponse struct {
	Symbol   string            `json:"symbol"`
	Sessions []ScheduleSession `json:"sessions"`
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// Leg is one component of a multi-leg order.
type Leg struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Side     Side    `json:"side"`
}

// Order is an order request body as accepted by PlaceOrder.
type Order struct {
	AccountID     string        `json:"account_id"`
	Symbol        string        `json:"symbol"`
	Quantity      float64       `json:"quantity"`
	Side          Side          `json:"side"`
	Type          OrderType     `json:"type"`
	TimeInForce   TimeInForce   `json:"time_in_force"`
	LimitPrice    float64       `json:"limit_price,omitempty"`
	StopPrice     float64       `json:"stop_price,omitempty"`
	StopCondition StopCondition `json:"stop_condition,omitempty"`
	Legs          []Leg         `json:"legs,omitempty"`
	ClientOrderID string        `json:"client_order_id,omitempty"`
}

// OrderState is the venue's view of a placed order.
type OrderState struct {
	OrderID      string      `json:"order_id"`
	ExecID       string      `json:"exec_id"`
	Status       OrderStatus `json:"status"`
	Order        Order       `json:"order"`
	TransactAt   time.Time   `json:"transact_at"`
	AcceptAt     time.Time   `json:"accept_at"`
	WithdrawAt   time.Time   `json:"withdraw_at,omitempty"`
	FilledQty    float64     `json:"filled_quantity"`
	AveragePrice float64     `json:"average_price"`
}

type CancelOrderRequest struct {
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id"`
}

type GetOrderRequest struct {
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id"`
}

type GetOrdersRequest struct {
	AccountID string `json:"account_id"`
}

type GetOrdersResponse struct {
	Orders []OrderState `json:"orders"`
}

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is one OHLCV candle.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

type BarsRequest struct {
	Symbol    string    `json:"symbol"`
	Timeframe TimeFrame `json:"timeframe"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type BarsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Quote is a best bid/offer snapshot with day statistics.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Bid       float64   `json:"bid"`
	BidSize   float64   `json:"bid_size"`
	Ask       float64   `json:"ask"`
	AskSize   float64   `json:"ask_size"`
	Last      float64   `json:"last"`
	LastSize  float64   `json:"last_size"`
	Volume    float64   `json:"volume"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Change    float64   `json:"change"`
}

type LastQuoteRequest struct {
	Symbol string `json:"symbol"`
}

type LastQuoteResponse struct {
	Symbol string `json:"symbol"`
	Quote  Quote  `json:"quote"`
}

// MarketTrade is one anonymized market trade (tick).
type MarketTrade struct {
	TradeID   string    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Side      Side      `json:"side"`
	Timestamp time.Time `json:"timestamp"`
}

type LatestTradesRequest struct {
	Symbol string `json:"symbol"`
}

type LatestTradesResponse struct {
	Symbol string        `json:"symbol"`
	Trades []MarketTrade `json:"trades"`
}

// OrderBookRow is one price level of the book.
type OrderBookRow struct {
	Price    float64 `json:"price"`
	BuySize  float64 `json:"buy_size"`
	SellSize float64 `json:"sell_size"`
}

type OrderBook struct {
	Rows []OrderBookRow `json:"rows"`
}

type OrderBookRequest struct {
	Symbol string `json:"symbol"`
}

type OrderBookResponse struct {
	Symbol    string    `json:"symbol"`
	OrderBook OrderBook `json:"orderbook"`
}

// ---------------------------------------------------------------------------
// Usage metrics
// ---------------------------------------------------------------------------

type GetUsageMetricsRequest struct{}

// GetUsageMetricsResponse reports API quota consumption.
type GetUsageMetricsResponse struct {
	RequestsUsed  int64 `json:"requests_used"`
	RequestsLimit int64 `json:"requests_limit"`
}
