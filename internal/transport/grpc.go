package transport

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Compile-time interface check.
var _ Transport = (*GRPCTransport)(nil)

// GRPCTransport implements Transport over a single shared grpc.ClientConn.
// The connection is shared read-only by every worker; only Close tears it
// down.
type GRPCTransport struct {
	conn *grpc.ClientConn
}

// Dial connects to the venue at addr. With plaintext set, TLS is skipped
// (local test servers only).
func Dial(addr string, plaintext bool) (*GRPCTransport, error) {
	creds := credentials.NewTLS(&tls.Config{})
	if plaintext {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &GRPCTransport{conn: conn}, nil
}

// Invoke performs a unary call with the given metadata attached.
func (t *GRPCTransport) Invoke(ctx context.Context, method string, req, resp any, md metadata.MD) error {
	return t.conn.Invoke(withMetadata(ctx, md), method, req, resp)
}

// OpenStream starts a server-streaming call and immediately half-closes the
// send side after writing the subscription request.
func (t *GRPCTransport) OpenStream(ctx context.Context, method string, req any, newEvent func() any, md metadata.MD) (EventStream, error) {
	desc := &grpc.StreamDesc{ServerStreams: true}
	cs, err := t.conn.NewStream(withMetadata(ctx, md), desc, method)
	if err != nil {
		return nil, fmt.Errorf("opening stream %s: %w", method, err)
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, fmt.Errorf("sending subscription request on %s: %w", method, err)
	}
	if err := cs.CloseSend(); err != nil {
		return nil, fmt.Errorf("half-closing %s: %w", method, err)
	}
	return &grpcStream{cs: cs, newEvent: newEvent}, nil
}

// OpenBidi starts a bidirectional streaming call.
func (t *GRPCTransport) OpenBidi(ctx context.Context, method string, newEvent func() any, md metadata.MD) (BidiStream, error) {
	desc := &grpc.StreamDesc{ServerStreams: true, ClientStreams: true}
	cs, err := t.conn.NewStream(withMetadata(ctx, md), desc, method)
	if err != nil {
		return nil, fmt.Errorf("opening bidi stream %s: %w", method, err)
	}
	return &grpcStream{cs: cs, newEvent: newEvent}, nil
}

// Close releases the underlying connection.
func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}

func withMetadata(ctx context.Context, md metadata.MD) context.Context {
	if len(md) == 0 {
		return ctx
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// grpcStream adapts grpc.ClientStream to EventStream/BidiStream.
type grpcStream struct {
	cs       grpc.ClientStream
	newEvent func() any
}

func (s *grpcStream) Send(msg any) error {
	return s.cs.SendMsg(msg)
}

func (s *grpcStream) Recv() (any, error) {
	ev := s.newEvent()
	if err := s.cs.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}
