// Package tradewire is the public SDK surface: a Client that owns the
// transport, the session credential, the subscription registry, and the
// bidirectional order/trade stream, and exposes the venue's unary calls.
package tradewire

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"

	"tradewire/internal/config"
	"tradewire/internal/events"
	"tradewire/internal/session"
	"tradewire/internal/store"
	"tradewire/internal/subs"
	"tradewire/internal/tradeapi"
	"tradewire/internal/transport"
	"tradewire/internal/util"
)

// Typed callbacks for the per-key market data streams.
type (
	QuoteHandler        func(*tradeapi.QuoteEvent)
	OrderBookHandler    func(*tradeapi.OrderBookEvent)
	LatestTradesHandler func(*tradeapi.LatestTradesEvent)
	BarsHandler         func(*tradeapi.BarsEvent)
)

// Client is the top-level API client. Construct with New, call Start before
// issuing calls, and Stop when done. All methods are safe for concurrent use.
type Client struct {
	cfg *config.Config
	log *slog.Logger

	tp       transport.Transport
	sess     *session.Manager
	registry *subs.Registry
	mux      *events.Mux
	limiter  *util.RateLimiter
	exec     failsafe.Executor[any]
	journal  store.OrderJournal

	onQuote        atomic.Value // QuoteHandler
	onOrderBook    atomic.Value // OrderBookHandler
	onLatestTrades atomic.Value // LatestTradesHandler
	onBars         atomic.Value // BarsHandler
}

// New dials the venue and assembles a Client from cfg. The connection is
// lazy; no credential is obtained until Start.
func New(cfg *config.Config, log *slog.Logger) (*Client, error) {
	tp, err := transport.Dial(cfg.API.URL, cfg.API.Plaintext)
	if err != nil {
		return nil, err
	}
	return NewWithTransport(tp, cfg, log), nil
}

// NewWithTransport assembles a Client over an existing transport. Used by
// tests and by callers that manage the connection themselves.
func NewWithTransport(tp transport.Transport, cfg *config.Config, log *slog.Logger) *Client {
	sess := session.NewManager(tp, cfg.API.Secret, session.Options{
		Lifetime:      cfg.Session.Lifetime,
		RefreshMargin: cfg.Session.RefreshMargin,
		RetryInterval: cfg.Session.RetryInterval,
	}, log)

	c := &Client{
		cfg:      cfg,
		log:      log,
		tp:       tp,
		sess:     sess,
		registry: subs.NewRegistry(cfg.Stream.RetryLimit, cfg.Stream.HandlerWorkers, log),
		limiter:  util.NewRateLimiter(cfg.API.RateLimitPerMin),
	}
	c.mux = events.New(tp, sess.Metadata, events.Options{
		KeepAliveInterval: cfg.Stream.KeepAliveInterval,
		QueueSize:         cfg.Stream.QueueSize,
		HandlerWorkers:    cfg.Stream.HandlerWorkers,
		Policy:            events.ParsePolicy(cfg.Stream.OnFailure),
		OnFailure:         func(err error) { c.Stop() },
	}, log)

	retry := retrypolicy.NewBuilder[any]().
		WithBackoff(100*time.Millisecond, 5*time.Second).
		WithMaxRetries(3).
		WithJitterFactor(0.1).
		HandleIf(func(_ any, err error) bool {
			return transport.Retryable(err)
		}).
		Build()
	c.exec = failsafe.With(retry)

	c.onQuote.Store(QuoteHandler(func(*tradeapi.QuoteEvent) {}))
	c.onOrderBook.Store(OrderBookHandler(func(*tradeapi.OrderBookEvent) {}))
	c.onLatestTrades.Store(LatestTradesHandler(func(*tradeapi.LatestTradesEvent) {}))
	c.onBars.Store(BarsHandler(func(*tradeapi.BarsEvent) {}))
	return c
}

// SetJournal attaches an order journal. Placed and cancelled orders are
// recorded in it; journal errors are logged, never returned to the caller.
func (c *Client) SetJournal(j store.OrderJournal) { c.journal = j }

// Start obtains the first session token and launches the refresh loop. It
// must complete before any other call.
func (c *Client) Start(ctx context.Context) error {
	return c.sess.Start(ctx)
}

// Stop tears the client down: subscriptions first, then the event stream,
// the session, and finally the connection. Safe to call more than once.
func (c *Client) Stop() {
	c.registry.Stop()
	c.mux.Close()
	c.sess.Stop()
	if err := c.tp.Close(); err != nil {
		c.log.Warn("closing transport failed", "error", err)
	}
}

// AccountIDs lists the accounts the session token grants access to.
func (c *Client) AccountIDs() []string { return c.sess.AccountIDs() }

// invoke is the shared unary call path: rate limit, then the call with
// bounded retry on transient transport errors, always carrying the current
// session token.
func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.exec.WithContext(ctx).Get(func() (any, error) {
		return nil, c.tp.Invoke(ctx, method, req, resp, c.sess.Metadata())
	})
	return err
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// GetAccount returns a snapshot of the account's financial state.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*tradeapi.GetAccountResponse, error) {
	var resp tradeapi.GetAccountResponse
	err := c.invoke(ctx, tradeapi.MethodGetAccount,
		&tradeapi.GetAccountRequest{AccountID: accountID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Trades returns the account's executed trades within [start, end].
func (c *Client) Trades(ctx context.Context, accountID string, limit int32, start, end time.Time) (*tradeapi.TradesResponse, error) {
	var resp tradeapi.TradesResponse
	err := c.invoke(ctx, tradeapi.MethodTrades, &tradeapi.TradesRequest{
		AccountID: accountID, Limit: limit, StartTime: start, EndTime: end,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transactions returns the account's cash movements within [start, end].
func (c *Client) Transactions(ctx context.Context, accountID string, limit int32, start, end time.Time) (*tradeapi.TransactionsResponse, error) {
	var resp tradeapi.TransactionsResponse
	err := c.invoke(ctx, tradeapi.MethodTransactions, &tradeapi.TransactionsRequest{
		AccountID: accountID, Limit: limit, StartTime: start, EndTime: end,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

// Assets lists every tradeable instrument.
func (c *Client) Assets(ctx context.Context) (*tradeapi.AssetsResponse, error) {
	var resp tradeapi.AssetsResponse
	err := c.invoke(ctx, tradeapi.MethodAssets, &tradeapi.AssetsRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clock returns the venue's current time.
func (c *Client) Clock(ctx context.Context) (*tradeapi.ClockResponse, error) {
	var resp tradeapi.ClockResponse
	err := c.invoke(ctx, tradeapi.MethodClock, &tradeapi.ClockRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Exchanges lists the venues reachable through the API.
func (c *Client) Exchanges(ctx context.Context) (*tradeapi.ExchangesResponse, error) {
	var resp tradeapi.ExchangesResponse
	err := c.invoke(ctx, tradeapi.MethodExchanges, &tradeapi.ExchangesRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAsset describes one instrument. The account id is required because some
// instrument parameters are account-specific.
func (c *Client) GetAsset(ctx context.Context, symbol, accountID string) (*tradeapi.GetAssetResponse, error) {
	var resp tradeapi.GetAssetResponse
	err := c.invoke(ctx, tradeapi.MethodGetAsset,
		&tradeapi.GetAssetRequest{Symbol: symbol, AccountID: accountID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAssetParams returns the account's trading permissions for an instrument.
func (c *Client) GetAssetParams(ctx context.Context, symbol, accountID string) (*tradeapi.GetAssetParamsResponse, error) {
	var resp tradeapi.GetAssetParamsResponse
	err := c.invoke(ctx, tradeapi.MethodGetAssetParams,
		&tradeapi.GetAssetParamsRequest{Symbol: symbol, AccountID: accountID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// OptionsChain lists the option contracts on an underlying.
func (c *Client) OptionsChain(ctx context.Context, underlying string) (*tradeapi.OptionsChainResponse, error) {
	var resp tradeapi.OptionsChainResponse
	err := c.invoke(ctx, tradeapi.MethodOptionsChain,
		&tradeapi.OptionsChainRequest{UnderlyingSymbol: underlying}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Schedule returns the trading session windows for an instrument.
func (c *Client) Schedule(ctx context.Context, symbol string) (*tradeapi.ScheduleResponse, error) {
	var resp tradeapi.ScheduleResponse
	err := c.invoke(ctx, tradeapi.MethodSchedule,
		&tradeapi.ScheduleRequest{Symbol: symbol}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// PlaceOrder submits an order. A missing client order id is filled in with a
// fresh UUID so the venue can deduplicate resubmissions.
func (c *Client) PlaceOrder(ctx context.Context, order tradeapi.Order) (*tradeapi.OrderState, error) {
	if order.ClientOrderID == "" {
		order.ClientOrderID = uuid.NewString()
	}
	var resp tradeapi.OrderState
	if err := c.invoke(ctx, tradeapi.MethodPlaceOrder, &order, &resp); err != nil {
		return nil, err
	}
	c.log.Info("order placed",
		"order_id", resp.OrderID,
		"symbol", order.Symbol,
		"side", order.Side.String(),
		"quantity", order.Quantity)
	if c.journal != nil {
		if err := c.journal.RecordPlaced(ctx, &resp); err != nil {
			c.log.Warn("journaling placed order failed", "order_id", resp.OrderID, "error", err)
		}
	}
	return &resp, nil
}

// CancelOrder withdraws a working order.
func (c *Client) CancelOrder(ctx context.Context, accountID, orderID string) (*tradeapi.OrderState, error) {
	var resp tradeapi.OrderState
	err := c.invoke(ctx, tradeapi.MethodCancelOrder,
		&tradeapi.CancelOrderRequest{AccountID: accountID, OrderID: orderID}, &resp)
	if err != nil {
		return nil, err
	}
	c.log.Info("order cancelled", "order_id", orderID)
	if c.journal != nil {
		if err := c.journal.RecordCancelled(ctx, orderID); err != nil {
			c.log.Warn("journaling cancelled order failed", "order_id", orderID, "error", err)
		}
	}
	return &resp, nil
}

// GetOrder returns the venue's view of one order.
func (c *Client) GetOrder(ctx context.Context, accountID, orderID string) (*tradeapi.OrderState, error) {
	var resp tradeapi.OrderState
	err := c.invoke(ctx, tradeapi.MethodGetOrder,
		&tradeapi.GetOrderRequest{AccountID: accountID, OrderID: orderID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrders lists the account's orders.
func (c *Client) GetOrders(ctx context.Context, accountID string) (*tradeapi.GetOrdersResponse, error) {
	var resp tradeapi.GetOrdersResponse
	err := c.invoke(ctx, tradeapi.MethodGetOrders,
		&tradeapi.GetOrdersRequest{AccountID: accountID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Market data (unary)
// ---------------------------------------------------------------------------

// Bars returns historical candles for a symbol and timeframe.
func (c *Client) Bars(ctx context.Context, symbol string, tf tradeapi.TimeFrame, start, end time.Time) (*tradeapi.BarsResponse, error) {
	var resp tradeapi.BarsResponse
	err := c.invoke(ctx, tradeapi.MethodBars, &tradeapi.BarsRequest{
		Symbol: symbol, Timeframe: tf, StartTime: start, EndTime: end,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LastQuote returns the current best bid/offer snapshot for a symbol.
func (c *Client) LastQuote(ctx context.Context, symbol string) (*tradeapi.LastQuoteResponse, error) {
	var resp tradeapi.LastQuoteResponse
	err := c.invoke(ctx, tradeapi.MethodLastQuote,
		&tradeapi.LastQuoteRequest{Symbol: symbol}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestTrades returns the most recent market trades for a symbol.
func (c *Client) LatestTrades(ctx context.Context, symbol string) (*tradeapi.LatestTradesResponse, error) {
	var resp tradeapi.LatestTradesResponse
	err := c.invoke(ctx, tradeapi.MethodLatestTrades,
		&tradeapi.LatestTradesRequest{Symbol: symbol}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// OrderBook returns the current book for a symbol.
func (c *Client) OrderBook(ctx context.Context, symbol string) (*tradeapi.OrderBookResponse, error) {
	var resp tradeapi.OrderBookResponse
	err := c.invoke(ctx, tradeapi.MethodOrderBook,
		&tradeapi.OrderBookRequest{Symbol: symbol}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUsageMetrics reports the API quota consumed by this token.
func (c *Client) GetUsageMetrics(ctx context.Context) (*tradeapi.GetUsageMetricsResponse, error) {
	var resp tradeapi.GetUsageMetricsResponse
	err := c.invoke(ctx, tradeapi.MethodGetUsageMetrics,
		&tradeapi.GetUsageMetricsRequest{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
