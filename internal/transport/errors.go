package transport

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind buckets a remote error for the stream workers' retry decision.
type ErrorKind int

const (
	// KindCancelled is the expected outcome of unsubscribe/stop. Clean exit,
	// never logged as a failure.
	KindCancelled ErrorKind = iota

	// KindTransient covers INTERNAL, UNKNOWN, and UNAVAILABLE: the stream is
	// reopened up to the configured retry bound.
	KindTransient

	// KindUnrecoverable is every other remote error: the subscription is
	// abandoned immediately.
	KindUnrecoverable
)

func (k ErrorKind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindTransient:
		return "transient"
	default:
		return "unrecoverable"
	}
}

// Classify maps a stream error to its retry bucket. Context cancellation is
// treated the same as a CANCELLED status: both mean the caller tore the
// stream down on purpose.
func Classify(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	switch status.Code(err) {
	case codes.Canceled:
		return KindCancelled
	case codes.Internal, codes.Unknown, codes.Unavailable:
		return KindTransient
	default:
		return KindUnrecoverable
	}
}

// Retryable reports whether a unary call error is worth retrying. Mirrors
// the stream taxonomy but also covers deadline and throttling codes, which
// only make sense to retry for one-shot calls.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
