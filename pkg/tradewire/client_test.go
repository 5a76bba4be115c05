package tradewire

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"tradewire/internal/config"
	"tradewire/internal/tradeapi"
	"tradewire/internal/transport"
)

// fakeTransport answers unary calls from a script and hands out scripted
// event streams. It records every invocation for assertions.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []call
	unary   map[string]func(req, resp any) error
	streams map[string]func(ctx context.Context) (transport.EventStream, error)
}

type call struct {
	method string
	md     metadata.MD
	req    any
}

func newFakeTransport() *fakeTransport {
	f := &fakeTransport{
		unary:   map[string]func(req, resp any) error{},
		streams: map[string]func(ctx context.Context) (transport.EventStream, error){},
	}
	f.unary[tradeapi.MethodAuth] = func(_, resp any) error {
		resp.(*tradeapi.AuthResponse).Token = "jwt-1"
		return nil
	}
	f.unary[tradeapi.MethodTokenDetails] = func(_, resp any) error {
		r := resp.(*tradeapi.TokenDetailsResponse)
		r.ExpiresAt = time.Now().Add(15 * time.Minute)
		r.AccountIDs = []string{"ACC-1"}
		return nil
	}
	return f
}

func (f *fakeTransport) Invoke(_ context.Context, method string, req, resp any, md metadata.MD) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, md: md, req: req})
	h := f.unary[method]
	f.mu.Unlock()
	if h == nil {
		return status.Error(codes.Unimplemented, method)
	}
	return h(req, resp)
}

func (f *fakeTransport) OpenStream(ctx context.Context, method string, req any, _ func() any, md metadata.MD) (transport.EventStream, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, md: md, req: req})
	h := f.streams[method]
	f.mu.Unlock()
	if h == nil {
		return nil, status.Error(codes.Unimplemented, method)
	}
	return h(ctx)
}

func (f *fakeTransport) OpenBidi(ctx context.Context, method string, _ func() any, md metadata.MD) (transport.BidiStream, error) {
	return nil, status.Error(codes.Unimplemented, method)
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) callsTo(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// blockingStream yields its messages, then blocks until cancelled.
type blockingStream struct {
	ctx  context.Context
	msgs []any
	i    int
}

func (s *blockingStream) Recv() (any, error) {
	if s.i < len(s.msgs) {
		m := s.msgs[s.i]
		s.i++
		return m, nil
	}
	<-s.ctx.Done()
	return nil, context.Canceled
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.API.Secret = "secret"
	cfg.API.RateLimitPerMin = 600000 // keep tests fast
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startedClient(t *testing.T, tp *fakeTransport) *Client {
	t.Helper()
	c := NewWithTransport(tp, testConfig(), testLogger())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func TestUnaryCallCarriesSessionToken(t *testing.T) {
	tp := newFakeTransport()
	tp.unary[tradeapi.MethodClock] = func(_, resp any) error {
		resp.(*tradeapi.ClockResponse).Timestamp = time.Unix(1700000000, 0)
		return nil
	}
	c := startedClient(t, tp)

	if _, err := c.Clock(context.Background()); err != nil {
		t.Fatalf("Clock returned error: %v", err)
	}

	calls := tp.callsTo(tradeapi.MethodClock)
	if len(calls) != 1 {
		t.Fatalf("Clock invoked %d times, want 1", len(calls))
	}
	if got := calls[0].md.Get("authorization"); len(got) != 1 || got[0] != "jwt-1" {
		t.Errorf("authorization metadata = %v, want [jwt-1]", got)
	}
}

func TestUnaryCallRetriesTransientErrors(t *testing.T) {
	tp := newFakeTransport()
	attempts := 0
	tp.unary[tradeapi.MethodGetAccount] = func(_, resp any) error {
		attempts++
		if attempts == 1 {
			return status.Error(codes.Unavailable, "balancer hiccup")
		}
		resp.(*tradeapi.GetAccountResponse).AccountID = "ACC-1"
		return nil
	}
	c := startedClient(t, tp)

	acc, err := c.GetAccount(context.Background(), "ACC-1")
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if acc.AccountID != "ACC-1" {
		t.Errorf("AccountID = %q, want ACC-1", acc.AccountID)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (one retry)", attempts)
	}
}

func TestUnaryCallDoesNotRetryRejections(t *testing.T) {
	tp := newFakeTransport()
	attempts := 0
	tp.unary[tradeapi.MethodPlaceOrder] = func(_, _ any) error {
		attempts++
		return status.Error(codes.InvalidArgument, "bad quantity")
	}
	c := startedClient(t, tp)

	_, err := c.PlaceOrder(context.Background(), tradeapi.Order{Symbol: "SBER@MISX"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("PlaceOrder error code = %v, want InvalidArgument", status.Code(err))
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on rejection)", attempts)
	}
}

func TestPlaceOrderAssignsClientOrderID(t *testing.T) {
	tp := newFakeTransport()
	tp.unary[tradeapi.MethodPlaceOrder] = func(req, resp any) error {
		order := req.(*tradeapi.Order)
		state := resp.(*tradeapi.OrderState)
		state.OrderID = "ord-1"
		state.Status = tradeapi.OrderStatusNew
		state.Order = *order
		return nil
	}
	c := startedClient(t, tp)

	state, err := c.PlaceOrder(context.Background(), tradeapi.Order{
		AccountID: "ACC-1",
		Symbol:    "SBER@MISX",
		Quantity:  10,
		Side:      tradeapi.SideBuy,
		Type:      tradeapi.OrderTypeMarket,
	})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if state.Order.ClientOrderID == "" {
		t.Error("ClientOrderID was not assigned")
	}

	// An explicit client order id is passed through untouched.
	state, err = c.PlaceOrder(context.Background(), tradeapi.Order{
		AccountID:     "ACC-1",
		Symbol:        "SBER@MISX",
		Quantity:      10,
		Side:          tradeapi.SideBuy,
		ClientOrderID: "mine",
	})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if state.Order.ClientOrderID != "mine" {
		t.Errorf("ClientOrderID = %q, want mine", state.Order.ClientOrderID)
	}
}

func TestStartSurfacesAuthFailure(t *testing.T) {
	tp := newFakeTransport()
	tp.unary[tradeapi.MethodAuth] = func(_, _ any) error {
		return status.Error(codes.Unauthenticated, "bad secret")
	}
	c := NewWithTransport(tp, testConfig(), testLogger())
	defer c.Stop()

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded with a rejected secret")
	}
}

func TestAccountIDsComeFromTokenDetails(t *testing.T) {
	tp := newFakeTransport()
	c := startedClient(t, tp)

	ids := c.AccountIDs()
	if len(ids) != 1 || ids[0] != "ACC-1" {
		t.Errorf("AccountIDs = %v, want [ACC-1]", ids)
	}
}

func TestSubscribeQuoteDeliversToHandler(t *testing.T) {
	tp := newFakeTransport()
	tp.streams[tradeapi.MethodSubscribeQuote] = func(ctx context.Context) (transport.EventStream, error) {
		return &blockingStream{ctx: ctx, msgs: []any{
			&tradeapi.QuoteEvent{Quotes: []tradeapi.Quote{{Symbol: "SBER@MISX", Last: 300.5}}},
		}}, nil
	}
	c := startedClient(t, tp)

	got := make(chan *tradeapi.QuoteEvent, 1)
	c.OnQuote(func(ev *tradeapi.QuoteEvent) { got <- ev })

	if ok := c.SubscribeQuote([]string{"SBER@MISX"}); !ok {
		t.Fatal("SubscribeQuote returned false")
	}
	if ok := c.SubscribeQuote([]string{"SBER@MISX"}); ok {
		t.Fatal("duplicate SubscribeQuote returned true")
	}

	select {
	case ev := <-got:
		if len(ev.Quotes) != 1 || ev.Quotes[0].Last != 300.5 {
			t.Errorf("quote event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("quote handler never fired")
	}

	c.UnsubscribeQuote([]string{"SBER@MISX"})
}

func TestStreamOpenCarriesSessionToken(t *testing.T) {
	tp := newFakeTransport()
	tp.streams[tradeapi.MethodSubscribeBars] = func(ctx context.Context) (transport.EventStream, error) {
		return &blockingStream{ctx: ctx}, nil
	}
	c := startedClient(t, tp)

	if ok := c.SubscribeBars("SBER@MISX", tradeapi.TimeFrameM1); !ok {
		t.Fatal("SubscribeBars returned false")
	}
	waitCalls := func() []call { return tp.callsTo(tradeapi.MethodSubscribeBars) }
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(waitCalls()) == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	calls := waitCalls()
	if len(calls) == 0 {
		t.Fatal("bar stream was never opened")
	}
	if got := calls[0].md.Get("authorization"); len(got) != 1 || got[0] != "jwt-1" {
		t.Errorf("authorization metadata = %v, want [jwt-1]", got)
	}
	req, err := json.Marshal(calls[0].req)
	if err != nil {
		t.Fatalf("marshalling recorded request: %v", err)
	}
	var decoded tradeapi.SubscribeBarsRequest
	if err := json.Unmarshal(req, &decoded); err != nil {
		t.Fatalf("decoding recorded request: %v", err)
	}
	if decoded.Symbol != "SBER@MISX" || decoded.Timeframe != tradeapi.TimeFrameM1 {
		t.Errorf("subscribe request = %+v", decoded)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tp := newFakeTransport()
	c := startedClient(t, tp)
	c.Stop()
	c.Stop()
}

func TestRateLimiterRespectsContext(t *testing.T) {
	tp := newFakeTransport()
	cfg := testConfig()
	cfg.API.RateLimitPerMin = 1 // one token, then a long refill
	c := NewWithTransport(tp, cfg, testLogger())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer c.Stop()

	// Start consumed no rate-limit tokens; the first unary call takes the
	// only one. The second call must give up when the context expires.
	tp.unary[tradeapi.MethodClock] = func(_, resp any) error { return nil }
	if _, err := c.Clock(context.Background()); err != nil {
		t.Fatalf("first Clock returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Clock(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Clock error = %v, want context.DeadlineExceeded", err)
	}
}
