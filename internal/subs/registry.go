package subs

import (
	"context"
	"log/slog"
	"sync"

	"tradewire/internal/transport"
)

// Opener starts (or restarts) the server stream backing a subscription. It
// is called with the worker's context and must attach the current session
// credential, so a reopened stream always carries a fresh token.
type Opener func(ctx context.Context) (transport.EventStream, error)

// handle is the cancellation capability of one live subscription. Owned by
// its worker goroutine; the registry only references it.
type handle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Registry is the single source of truth for which subscription keys are
// active. Subscribe, Unsubscribe, and worker self-removal race freely, so
// every map access goes through the mutex.
type Registry struct {
	log        *slog.Logger
	retryLimit int
	workers    int

	mu     sync.Mutex
	active map[Key]*handle
	pool   *Pool
}

// NewRegistry creates an empty registry. retryLimit bounds consecutive
// transient stream failures; workers caps concurrent handler executions.
func NewRegistry(retryLimit, workers int, log *slog.Logger) *Registry {
	if retryLimit <= 0 {
		retryLimit = 3
	}
	return &Registry{
		log:        log,
		retryLimit: retryLimit,
		workers:    workers,
		active:     make(map[Key]*handle),
	}
}

// Subscribe registers key and launches its stream worker. A second call with
// an already-active key logs a warning and reports false without touching
// the existing stream.
func (r *Registry) Subscribe(key Key, open Opener, deliver func(any)) bool {
	r.mu.Lock()
	if _, ok := r.active[key]; ok {
		r.mu.Unlock()
		r.log.Warn("subscription already exists", "key", key.String())
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{ctx: ctx, cancel: cancel}
	r.active[key] = h
	if r.pool == nil {
		r.pool = NewPool(r.workers)
	}
	pool := r.pool
	r.mu.Unlock()

	r.log.Info("subscription created", "key", key.String())
	go r.run(key, h, open, deliver, pool)
	return true
}

// Unsubscribe cancels and removes the subscription for key. Absent keys are
// a silent no-op.
func (r *Registry) Unsubscribe(key Key) {
	r.mu.Lock()
	h, ok := r.active[key]
	if ok {
		delete(r.active, key)
	}
	r.mu.Unlock()
	if ok {
		h.cancel()
		r.log.Info("subscription removed", "key", key.String())
	}
}

// Active reports whether key currently has a live stream.
func (r *Registry) Active(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[key]
	return ok
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Stop cancels every live subscription, clears the registry, and drains the
// handler pool. Idempotent.
func (r *Registry) Stop() {
	r.mu.Lock()
	handles := r.active
	pool := r.pool
	r.active = make(map[Key]*handle)
	r.pool = nil
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	if pool != nil {
		pool.Close()
	}
}

// remove deletes key from the registry if it still points at h. A worker
// exiting after Unsubscribe+Subscribe replaced its entry must not remove the
// newer subscription.
func (r *Registry) remove(key Key, h *handle) {
	r.mu.Lock()
	if cur, ok := r.active[key]; ok && cur == h {
		delete(r.active, key)
	}
	r.mu.Unlock()
}

// run is the stream worker: it owns the receive/retry loop for one
// subscription and removes itself from the registry on exit. Errors never
// escape this goroutine.
func (r *Registry) run(key Key, h *handle, open Opener, deliver func(any), pool *Pool) {
	defer r.remove(key, h)
	defer h.cancel()

	// One lane per subscription: handlers for this key run in receive order
	// even though the pool is shared.
	lane := pool.NewLane()
	retries := 0
	for {
		stream, err := open(h.ctx)
		if err != nil {
			if !r.retryDecision(key, err, &retries) {
				return
			}
			continue
		}

		for {
			msg, err := stream.Recv()
			if err != nil {
				if !r.retryDecision(key, err, &retries) {
					return
				}
				break // reopen the stream
			}
			retries = 0
			r.log.Debug("event received", "key", key.String())
			lane.Submit(func() { deliver(msg) })
		}
	}
}

// retryDecision classifies a stream error and reports whether the worker
// should reopen the stream.
func (r *Registry) retryDecision(key Key, err error, retries *int) bool {
	switch transport.Classify(err) {
	case transport.KindCancelled:
		r.log.Info("subscription cancelled", "key", key.String())
		return false
	case transport.KindTransient:
		*retries++
		if *retries > r.retryLimit {
			r.log.Error("retry limit exceeded, abandoning subscription",
				"key", key.String(), "retries", r.retryLimit, "error", err)
			return false
		}
		r.log.Warn("transient stream error, reopening",
			"key", key.String(), "attempt", *retries, "error", err)
		return true
	default:
		r.log.Error("unrecoverable stream error, abandoning subscription",
			"key", key.String(), "error", err)
		return false
	}
}
