// Package events runs the bidirectional order/trade stream: a FIFO command
// queue drained by a single sender, an inbound receiver fanning each
// multiplexed event out to exactly one typed handler, and a keep-alive
// ticker that stops intermediaries from idling the stream out.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/metadata"

	"tradewire/internal/subs"
	"tradewire/internal/tradeapi"
	"tradewire/internal/transport"
)

// Policy selects what happens when the inbound stream fails.
type Policy int

const (
	// PolicyAbandon logs the failure and lets the stream end. The next
	// subscription command starts a fresh stream.
	PolicyAbandon Policy = iota

	// PolicyClose additionally invokes the OnFailure callback so the owner
	// can shut the whole client down.
	PolicyClose
)

// ParsePolicy maps the config string to a Policy, defaulting to abandon.
func ParsePolicy(s string) Policy {
	if s == "close" {
		return PolicyClose
	}
	return PolicyAbandon
}

// OrderHandler and friends are the typed callbacks for each event variant.
type (
	OrderHandler     func(*tradeapi.OrderEvent)
	TradeHandler     func(*tradeapi.TradeEvent)
	OrderBookHandler func(*tradeapi.OrderBookEvent)
	PortfolioHandler func(*tradeapi.PortfolioEvent)
	ResponseHandler  func(*tradeapi.ResponseEvent)
)

// Options tune the mux. Zero values use the venue defaults: 120-second
// keep-alive, 20-slot queue, abandon policy, 6 handler workers.
type Options struct {
	KeepAliveInterval time.Duration
	QueueSize         int
	HandlerWorkers    int
	Policy            Policy
	OnFailure         func(error)
}

// Mux owns the single bidirectional call and its three background tasks.
// All three start lazily on the first subscription command and stop together
// on Close.
type Mux struct {
	tp   transport.Transport
	meta func() metadata.MD
	log  *slog.Logger
	opts Options

	keepAliveID string

	onOrder     atomic.Value // OrderHandler
	onTrade     atomic.Value // TradeHandler
	onOrderBook atomic.Value // OrderBookHandler
	onPortfolio atomic.Value // PortfolioHandler
	onResponse  atomic.Value // ResponseHandler

	mu      sync.Mutex
	started bool
	queue   chan *tradeapi.SubscriptionCommand
	cancel  context.CancelFunc
	group   *errgroup.Group
	pool    *subs.Pool
}

// New creates a Mux. meta supplies the current session metadata each time a
// stream is opened. All handlers default to no-ops.
func New(tp transport.Transport, meta func() metadata.MD, opts Options, log *slog.Logger) *Mux {
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = 120 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 20
	}
	if opts.HandlerWorkers <= 0 {
		opts.HandlerWorkers = 6
	}
	m := &Mux{
		tp:          tp,
		meta:        meta,
		log:         log,
		opts:        opts,
		keepAliveID: uuid.NewString(),
	}
	m.onOrder.Store(OrderHandler(func(*tradeapi.OrderEvent) {}))
	m.onTrade.Store(TradeHandler(func(*tradeapi.TradeEvent) {}))
	m.onOrderBook.Store(OrderBookHandler(func(*tradeapi.OrderBookEvent) {}))
	m.onPortfolio.Store(PortfolioHandler(func(*tradeapi.PortfolioEvent) {}))
	m.onResponse.Store(ResponseHandler(func(*tradeapi.ResponseEvent) {}))
	return m
}

// SetOnOrder replaces the order event handler. A nil handler restores the
// no-op default. Handlers may be swapped while the stream is live.
func (m *Mux) SetOnOrder(h OrderHandler) {
	if h == nil {
		h = func(*tradeapi.OrderEvent) {}
	}
	m.onOrder.Store(h)
}

// SetOnTrade replaces the trade event handler.
func (m *Mux) SetOnTrade(h TradeHandler) {
	if h == nil {
		h = func(*tradeapi.TradeEvent) {}
	}
	m.onTrade.Store(h)
}

// SetOnOrderBook replaces the order-book event handler.
func (m *Mux) SetOnOrderBook(h OrderBookHandler) {
	if h == nil {
		h = func(*tradeapi.OrderBookEvent) {}
	}
	m.onOrderBook.Store(h)
}

// SetOnPortfolio replaces the portfolio event handler.
func (m *Mux) SetOnPortfolio(h PortfolioHandler) {
	if h == nil {
		h = func(*tradeapi.PortfolioEvent) {}
	}
	m.onPortfolio.Store(h)
}

// SetOnResponse replaces the command-acknowledgement handler.
func (m *Mux) SetOnResponse(h ResponseHandler) {
	if h == nil {
		h = func(*tradeapi.ResponseEvent) {}
	}
	m.onResponse.Store(h)
}

// Subscribe enqueues a subscription command for the given account and data
// type. The first call starts the stream and its background tasks.
func (m *Mux) Subscribe(ctx context.Context, accountID string, dt tradeapi.DataType) error {
	return m.enqueue(ctx, &tradeapi.SubscriptionCommand{
		OrderTrade: &tradeapi.OrderTradeSubscription{
			RequestID: uuid.NewString(),
			DataType:  dt,
			AccountID: accountID,
		},
	})
}

// Unsubscribe enqueues the matching unsubscribe command.
func (m *Mux) Unsubscribe(ctx context.Context, accountID string, dt tradeapi.DataType) error {
	return m.enqueue(ctx, &tradeapi.SubscriptionCommand{
		OrderTrade: &tradeapi.OrderTradeSubscription{
			RequestID:   uuid.NewString(),
			DataType:    dt,
			AccountID:   accountID,
			Unsubscribe: true,
		},
	})
}

// enqueue appends cmd to the FIFO queue, lazily starting the stream. It
// blocks only when the queue is full (backpressure), never on network I/O.
func (m *Mux) enqueue(ctx context.Context, cmd *tradeapi.SubscriptionCommand) error {
	queue, err := m.ensureStarted()
	if err != nil {
		return err
	}
	select {
	case queue <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureStarted opens the bidirectional call and launches the sender,
// receiver, and keep-alive tasks if they are not already running.
func (m *Mux) ensureStarted() (chan *tradeapi.SubscriptionCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return m.queue, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := m.tp.OpenBidi(ctx, tradeapi.MethodSubscribeOrderTrade,
		func() any { return new(tradeapi.Event) }, m.meta())
	if err != nil {
		cancel()
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *tradeapi.SubscriptionCommand, m.opts.QueueSize)
	pool := subs.NewPool(m.opts.HandlerWorkers)

	// One lane per event kind: handlers of a kind fire in stream order while
	// different kinds still run concurrently on the shared pool.
	lanes := map[tradeapi.EventKind]*subs.Lane{
		tradeapi.EventKindOrder:     pool.NewLane(),
		tradeapi.EventKindTrade:     pool.NewLane(),
		tradeapi.EventKindOrderBook: pool.NewLane(),
		tradeapi.EventKindPortfolio: pool.NewLane(),
		tradeapi.EventKindResponse:  pool.NewLane(),
	}

	g.Go(func() error { return m.sender(gctx, stream, queue) })
	g.Go(func() error { return m.receiver(gctx, stream, lanes) })
	g.Go(func() error { return m.keepAlive(gctx, queue) })

	m.started = true
	m.queue = queue
	m.cancel = cancel
	m.group = g
	m.pool = pool
	m.log.Info("order/trade event stream started",
		"keep_alive_interval", m.opts.KeepAliveInterval)
	return queue, nil
}

// Close stops the background tasks and waits for them. Idempotent.
func (m *Mux) Close() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel, group, pool := m.cancel, m.group, m.pool
	m.started = false
	m.queue = nil
	m.cancel = nil
	m.group = nil
	m.pool = nil
	m.mu.Unlock()

	cancel()
	_ = group.Wait()
	pool.Close()
	m.log.Info("order/trade event stream stopped")
}

// teardown is Close for the failure path: it runs only if this stream
// generation is still the live one.
func (m *Mux) teardown(cancel context.CancelFunc) {
	m.mu.Lock()
	if m.cancel == nil || !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.queue = nil
	m.cancel = nil
	m.group = nil
	pool := m.pool
	m.pool = nil
	m.mu.Unlock()

	cancel()
	if pool != nil {
		go pool.Close()
	}
}

// sender drains the command queue into the stream, preserving enqueue order.
func (m *Mux) sender(ctx context.Context, stream transport.BidiStream, queue chan *tradeapi.SubscriptionCommand) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-queue:
			if err := stream.Send(cmd); err != nil {
				if transport.Classify(err) != transport.KindCancelled {
					m.log.Warn("sending subscription command failed", "error", err)
				}
				return nil
			}
			m.log.Debug("subscription command sent",
				"keep_alive", cmd.KeepAlive != nil)
		}
	}
}

// receiver fans inbound events out to the typed handlers. Stream errors are
// contained here: logged, optionally reported via OnFailure, never
// propagated.
func (m *Mux) receiver(ctx context.Context, stream transport.BidiStream, lanes map[tradeapi.EventKind]*subs.Lane) error {
	for {
		msg, err := stream.Recv()
		if err != nil {
			if transport.Classify(err) == transport.KindCancelled {
				return nil
			}
			m.log.Warn("order/trade event stream failed", "error", err)
			m.mu.Lock()
			cancel := m.cancel
			m.mu.Unlock()
			if cancel != nil {
				m.teardown(cancel)
			}
			if m.opts.Policy == PolicyClose && m.opts.OnFailure != nil {
				m.opts.OnFailure(err)
			}
			return nil
		}
		ev, ok := msg.(*tradeapi.Event)
		if !ok {
			m.log.Warn("unexpected message type on event stream")
			continue
		}
		m.dispatch(ev, lanes)
	}
}

// dispatch invokes exactly the handler matching the populated variant, on
// that variant's serial lane. Empty envelopes are dropped.
func (m *Mux) dispatch(ev *tradeapi.Event, lanes map[tradeapi.EventKind]*subs.Lane) {
	kind := ev.Kind()
	m.log.Debug("event received", "kind", kind.String())
	switch kind {
	case tradeapi.EventKindOrder:
		h := m.onOrder.Load().(OrderHandler)
		lanes[kind].Submit(func() { h(ev.Order) })
	case tradeapi.EventKindTrade:
		h := m.onTrade.Load().(TradeHandler)
		lanes[kind].Submit(func() { h(ev.Trade) })
	case tradeapi.EventKindOrderBook:
		h := m.onOrderBook.Load().(OrderBookHandler)
		lanes[kind].Submit(func() { h(ev.OrderBook) })
	case tradeapi.EventKindPortfolio:
		h := m.onPortfolio.Load().(PortfolioHandler)
		lanes[kind].Submit(func() { h(ev.Portfolio) })
	case tradeapi.EventKindResponse:
		h := m.onResponse.Load().(ResponseHandler)
		lanes[kind].Submit(func() { h(ev.Response) })
	}
}

// keepAlive enqueues a keep-alive command at the configured interval.
func (m *Mux) keepAlive(ctx context.Context, queue chan *tradeapi.SubscriptionCommand) error {
	ticker := time.NewTicker(m.opts.KeepAliveInterval)
	defer ticker.Stop()
	cmd := &tradeapi.SubscriptionCommand{
		KeepAlive: &tradeapi.KeepAlive{RequestID: m.keepAliveID},
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			select {
			case queue <- cmd:
				m.log.Debug("keep-alive enqueued")
			case <-ctx.Done():
				return nil
			}
		}
	}
}
