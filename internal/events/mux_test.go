package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"tradewire/internal/tradeapi"
	"tradewire/internal/transport"
)

// fakeBidi records sent commands and replays scripted inbound events.
type fakeBidi struct {
	ctx    context.Context
	events chan any
	fail   error // returned after events drains, if set

	mu   sync.Mutex
	sent []*tradeapi.SubscriptionCommand
}

func (f *fakeBidi) Send(msg any) error {
	cmd, ok := msg.(*tradeapi.SubscriptionCommand)
	if !ok {
		return errors.New("unexpected outbound type")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeBidi) Recv() (any, error) {
	select {
	case ev, ok := <-f.events:
		if !ok {
			if f.fail != nil {
				return nil, f.fail
			}
			<-f.ctx.Done()
			return nil, context.Canceled
		}
		return ev, nil
	case <-f.ctx.Done():
		return nil, context.Canceled
	}
}

func (f *fakeBidi) sentCommands() []*tradeapi.SubscriptionCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*tradeapi.SubscriptionCommand, len(f.sent))
	copy(out, f.sent)
	return out
}

// bidiTransport hands out one fakeBidi per OpenBidi call.
type bidiTransport struct {
	mu      sync.Mutex
	streams []*fakeBidi
	script  func() *fakeBidi
}

func (t *bidiTransport) Invoke(context.Context, string, any, any, metadata.MD) error {
	return errors.New("not implemented")
}

func (t *bidiTransport) OpenStream(context.Context, string, any, func() any, metadata.MD) (transport.EventStream, error) {
	return nil, errors.New("not implemented")
}

func (t *bidiTransport) OpenBidi(ctx context.Context, _ string, _ func() any, _ metadata.MD) (transport.BidiStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.script()
	s.ctx = ctx
	t.streams = append(t.streams, s)
	return s, nil
}

func (t *bidiTransport) Close() error { return nil }

func (t *bidiTransport) stream(i int) *fakeBidi {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.streams) {
		return nil
	}
	return t.streams[i]
}

func emptyMeta() metadata.MD { return metadata.MD{} }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestCommandsSentInEnqueueOrder(t *testing.T) {
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{events: make(chan any)}
	}}
	m := New(tp, emptyMeta, Options{}, discardLogger())
	defer m.Close()

	ctx := context.Background()
	for _, acc := range []string{"A", "B", "C"} {
		if err := m.Subscribe(ctx, acc, tradeapi.DataTypeAll); err != nil {
			t.Fatalf("Subscribe(%s) returned error: %v", acc, err)
		}
	}

	s := tp.stream(0)
	if s == nil {
		t.Fatal("no bidi stream was opened")
	}
	if !waitFor(t, time.Second, func() bool { return len(s.sentCommands()) == 3 }) {
		t.Fatalf("sent %d commands, want 3", len(s.sentCommands()))
	}
	for i, want := range []string{"A", "B", "C"} {
		got := s.sentCommands()[i]
		if got.OrderTrade == nil || got.OrderTrade.AccountID != want {
			t.Errorf("command %d account = %+v, want %s", i, got.OrderTrade, want)
		}
	}
}

func TestFanOutFiresExactlyMatchingHandler(t *testing.T) {
	events := make(chan any, 1)
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{events: events}
	}}
	m := New(tp, emptyMeta, Options{}, discardLogger())
	defer m.Close()

	var mu sync.Mutex
	counts := map[tradeapi.EventKind]int{}
	bump := func(k tradeapi.EventKind) {
		mu.Lock()
		counts[k]++
		mu.Unlock()
	}
	m.SetOnOrder(func(*tradeapi.OrderEvent) { bump(tradeapi.EventKindOrder) })
	m.SetOnTrade(func(*tradeapi.TradeEvent) { bump(tradeapi.EventKindTrade) })
	m.SetOnOrderBook(func(*tradeapi.OrderBookEvent) { bump(tradeapi.EventKindOrderBook) })
	m.SetOnPortfolio(func(*tradeapi.PortfolioEvent) { bump(tradeapi.EventKindPortfolio) })
	m.SetOnResponse(func(*tradeapi.ResponseEvent) { bump(tradeapi.EventKindResponse) })

	if err := m.Subscribe(context.Background(), "ACC-1", tradeapi.DataTypeAll); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	events <- &tradeapi.Event{OrderBook: &tradeapi.OrderBookEvent{Symbol: "VTBR@MISX"}}

	if !waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts[tradeapi.EventKindOrderBook] == 1
	}) {
		t.Fatal("order-book handler never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, k := range []tradeapi.EventKind{
		tradeapi.EventKindOrder, tradeapi.EventKindTrade,
		tradeapi.EventKindPortfolio, tradeapi.EventKindResponse,
	} {
		if counts[k] != 0 {
			t.Errorf("%s handler fired %d times, want 0", k, counts[k])
		}
	}
}

func TestEventsOfOneKindDeliveredInOrder(t *testing.T) {
	// A burst large enough that shared-pool dispatch would reorder it.
	const n = 300
	events := make(chan any, n)
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{events: events}
	}}
	m := New(tp, emptyMeta, Options{}, discardLogger())
	defer m.Close()

	var mu sync.Mutex
	var got []string
	m.SetOnResponse(func(ev *tradeapi.ResponseEvent) {
		mu.Lock()
		got = append(got, ev.RequestID)
		mu.Unlock()
	})

	if err := m.Subscribe(context.Background(), "ACC-1", tradeapi.DataTypeAll); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	for i := 0; i < n; i++ {
		events <- &tradeapi.Event{Response: &tradeapi.ResponseEvent{
			RequestID: strconv.Itoa(i), Success: true,
		}}
	}

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}
	if !waitFor(t, 5*time.Second, func() bool { return count() == n }) {
		t.Fatalf("delivered %d events, want %d", count(), n)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, id := range got {
		if id != strconv.Itoa(i) {
			t.Fatalf("got[%d] = %s, want %d", i, id, i)
		}
	}
}

func TestEmptyEnvelopeIsDropped(t *testing.T) {
	events := make(chan any, 2)
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{events: events}
	}}
	m := New(tp, emptyMeta, Options{}, discardLogger())
	defer m.Close()

	var fired sync.Map
	m.SetOnResponse(func(*tradeapi.ResponseEvent) { fired.Store("response", true) })

	if err := m.Subscribe(context.Background(), "ACC-1", tradeapi.DataTypeAll); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	// An empty envelope, then a real one so we know the first was processed.
	events <- &tradeapi.Event{}
	events <- &tradeapi.Event{Response: &tradeapi.ResponseEvent{RequestID: "r1", Success: true}}

	if !waitFor(t, time.Second, func() bool {
		_, ok := fired.Load("response")
		return ok
	}) {
		t.Fatal("response handler never fired")
	}
}

func TestKeepAliveEnqueuedPeriodically(t *testing.T) {
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{events: make(chan any)}
	}}
	m := New(tp, emptyMeta, Options{KeepAliveInterval: 20 * time.Millisecond}, discardLogger())
	defer m.Close()

	if err := m.Subscribe(context.Background(), "ACC-1", tradeapi.DataTypeAll); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	s := tp.stream(0)
	keepAlives := func() int {
		n := 0
		for _, cmd := range s.sentCommands() {
			if cmd.KeepAlive != nil {
				n++
			}
		}
		return n
	}
	if !waitFor(t, time.Second, func() bool { return keepAlives() >= 2 }) {
		t.Fatalf("keep-alives sent = %d, want at least 2", keepAlives())
	}

	// All keep-alives carry the mux's fixed request id.
	var ids []string
	for _, cmd := range s.sentCommands() {
		if cmd.KeepAlive != nil {
			ids = append(ids, cmd.KeepAlive.RequestID)
		}
	}
	for _, id := range ids {
		if id != ids[0] || id == "" {
			t.Errorf("keep-alive request ids inconsistent: %v", ids)
		}
	}
}

func TestClosePolicyInvokesOnFailure(t *testing.T) {
	events := make(chan any)
	close(events)
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{
			events: events,
			fail:   status.Error(codes.Unavailable, "stream lost"),
		}
	}}

	failed := make(chan error, 1)
	m := New(tp, emptyMeta, Options{
		Policy:    PolicyClose,
		OnFailure: func(err error) { failed <- err },
	}, discardLogger())
	defer m.Close()

	if err := m.Subscribe(context.Background(), "ACC-1", tradeapi.DataTypeAll); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	select {
	case err := <-failed:
		if status.Code(err) != codes.Unavailable {
			t.Errorf("OnFailure error code = %v, want Unavailable", status.Code(err))
		}
	case <-time.After(time.Second):
		t.Fatal("OnFailure was never invoked")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tp := &bidiTransport{script: func() *fakeBidi {
		return &fakeBidi{events: make(chan any)}
	}}
	m := New(tp, emptyMeta, Options{}, discardLogger())

	if err := m.Subscribe(context.Background(), "ACC-1", tradeapi.DataTypeOrders); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	m.Close()
	m.Close()
}
