// Package transport abstracts the gRPC channel the client rides on: unary
// invocation, server-streaming and bidirectional calls, and classification
// of remote errors into the retry taxonomy used by the subscription core.
package transport

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// EventStream is the receive side of a server-streaming call. Recv blocks
// until the next event, the stream ends, or the call's context is cancelled.
type EventStream interface {
	// Recv returns the next decoded event.
	Recv() (any, error)
}

// BidiStream is a bidirectional call: commands go out via Send, events come
// back via Recv. Send and Recv may be used from different goroutines.
type BidiStream interface {
	Send(msg any) error
	Recv() (any, error)
}

// Transport is the connection collaborator. It attaches the supplied
// per-call metadata (the session credential) to every outbound call.
type Transport interface {
	// Invoke performs a unary call, decoding the reply into resp.
	Invoke(ctx context.Context, method string, req, resp any, md metadata.MD) error

	// OpenStream starts a server-streaming call. newEvent allocates the
	// value each received message is decoded into.
	OpenStream(ctx context.Context, method string, req any, newEvent func() any, md metadata.MD) (EventStream, error)

	// OpenBidi starts a bidirectional call.
	OpenBidi(ctx context.Context, method string, newEvent func() any, md metadata.MD) (BidiStream, error)

	// Close releases the underlying connection.
	Close() error
}
