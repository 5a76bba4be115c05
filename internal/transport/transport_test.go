package transport

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradewire/internal/tradeapi"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"context cancel", context.Canceled, KindCancelled},
		{"wrapped context cancel", errors.Join(errors.New("recv"), context.Canceled), KindCancelled},
		{"grpc cancelled", status.Error(codes.Canceled, "torn down"), KindCancelled},
		{"internal", status.Error(codes.Internal, "boom"), KindTransient},
		{"unknown", status.Error(codes.Unknown, "???"), KindTransient},
		{"unavailable", status.Error(codes.Unavailable, "lb"), KindTransient},
		{"permission denied", status.Error(codes.PermissionDenied, "nope"), KindUnrecoverable},
		{"unauthenticated", status.Error(codes.Unauthenticated, "expired"), KindUnrecoverable},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad"), KindUnrecoverable},
		{"plain error", errors.New("socket gone"), KindTransient}, // status.Code says Unknown
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(codes.Unavailable, "lb"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"throttled", status.Error(codes.ResourceExhausted, "quota"), true},
		{"aborted", status.Error(codes.Aborted, "conflict"), true},
		{"internal", status.Error(codes.Internal, "boom"), false},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad"), false},
		{"unauthenticated", status.Error(codes.Unauthenticated, "expired"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	if c.Name() != "json" {
		t.Errorf("Name() = %q, want json", c.Name())
	}

	in := &tradeapi.SubscriptionCommand{
		OrderTrade: &tradeapi.OrderTradeSubscription{
			RequestID: "req-1",
			DataType:  tradeapi.DataTypeOrders,
			AccountID: "ACC-1",
		},
	}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var out tradeapi.SubscriptionCommand
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if out.OrderTrade == nil || out.KeepAlive != nil {
		t.Fatalf("decoded command = %+v, want only OrderTrade set", out)
	}
	if out.OrderTrade.RequestID != "req-1" || out.OrderTrade.AccountID != "ACC-1" {
		t.Errorf("decoded payload = %+v", out.OrderTrade)
	}
	if out.OrderTrade.DataType != tradeapi.DataTypeOrders {
		t.Errorf("decoded data type = %v, want orders", out.OrderTrade.DataType)
	}
}

func TestCodecRejectsMalformedInput(t *testing.T) {
	var ev tradeapi.Event
	if err := (jsonCodec{}).Unmarshal([]byte("{not json"), &ev); err == nil {
		t.Error("Unmarshal accepted malformed input")
	}
}
