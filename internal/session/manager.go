// Package session owns the short-lived session credential: it obtains the
// first token at Start, refreshes it on a timer for as long as the client
// runs, and hands point-in-time snapshots to every outbound call.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/metadata"

	"tradewire/internal/tradeapi"
	"tradewire/internal/transport"
)

// AuthError reports a failed credential call. It is fatal when returned from
// Start; the refresh loop logs it and keeps retrying.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Manager keeps the session token alive. The token is written only by the
// refresh path and read by everyone else through an atomic snapshot, so no
// reader can observe a half-written value.
type Manager struct {
	tp     transport.Transport
	secret string
	log    *slog.Logger

	lifetime      time.Duration
	refreshMargin time.Duration
	retryInterval time.Duration

	token      atomic.Value // string
	accountIDs atomic.Value // []string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Options tune the refresh schedule. Zero values fall back to the venue's
// documented defaults: 15-minute tokens refreshed 10 seconds early, with a
// 10-second pause after a failed refresh.
type Options struct {
	Lifetime      time.Duration
	RefreshMargin time.Duration
	RetryInterval time.Duration
}

// NewManager creates a Manager for the given transport and API secret.
func NewManager(tp transport.Transport, secret string, opts Options, log *slog.Logger) *Manager {
	if opts.Lifetime <= 0 {
		opts.Lifetime = 15 * time.Minute
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 10 * time.Second
	}
	m := &Manager{
		tp:            tp,
		secret:        secret,
		log:           log,
		lifetime:      opts.Lifetime,
		refreshMargin: opts.RefreshMargin,
		retryInterval: opts.RetryInterval,
	}
	m.token.Store("")
	return m
}

// Start performs the initial authentication and launches the refresh loop.
// It blocks until the first token is obtained; an initial failure is fatal.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil // already started
	}

	if err := m.authenticate(ctx); err != nil {
		return err
	}
	if err := m.fetchTokenDetails(ctx); err != nil {
		// The token itself is valid; details are informational.
		m.log.Warn("fetching token details failed", "error", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.refreshLoop(loopCtx, done)

	m.log.Info("session started", "lifetime", m.lifetime)
	return nil
}

// Stop cancels the refresh loop and clears the token. Safe to call twice.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.token.Store("")
	m.log.Info("session stopped")
}

// Token returns a snapshot of the current session token. Empty only before
// Start has completed or after Stop.
func (m *Manager) Token() string {
	return m.token.Load().(string)
}

// Metadata returns the per-call metadata carrying the current token.
func (m *Manager) Metadata() metadata.MD {
	return metadata.Pairs("authorization", m.Token())
}

// AccountIDs lists the accounts the session token grants access to.
func (m *Manager) AccountIDs() []string {
	ids, _ := m.accountIDs.Load().([]string)
	return ids
}

func (m *Manager) authenticate(ctx context.Context) error {
	m.log.Debug("requesting session token")
	var resp tradeapi.AuthResponse
	err := m.tp.Invoke(ctx, tradeapi.MethodAuth, &tradeapi.AuthRequest{Secret: m.secret}, &resp, nil)
	if err != nil {
		return &AuthError{Op: "token request", Err: err}
	}
	if resp.Token == "" {
		return &AuthError{Op: "token request", Err: fmt.Errorf("empty token in response")}
	}
	m.token.Store(resp.Token)
	m.log.Debug("session token received")
	return nil
}

func (m *Manager) fetchTokenDetails(ctx context.Context) error {
	var resp tradeapi.TokenDetailsResponse
	err := m.tp.Invoke(ctx, tradeapi.MethodTokenDetails,
		&tradeapi.TokenDetailsRequest{Token: m.Token()}, &resp, m.Metadata())
	if err != nil {
		return err
	}
	m.accountIDs.Store(resp.AccountIDs)
	m.log.Debug("token details received",
		"expires_at", resp.ExpiresAt,
		"accounts", len(resp.AccountIDs))
	return nil
}

// refreshLoop re-authenticates shortly before the token lifetime elapses.
// A failed refresh is logged and retried after retryInterval; the loop never
// gives up on its own.
func (m *Manager) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	m.log.Info("session token refresh loop started")

	timer := time.NewTimer(m.lifetime - m.refreshMargin)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("session token refresh loop stopped")
			return
		case <-timer.C:
		}

		if err := m.authenticate(ctx); err != nil {
			if ctx.Err() != nil {
				m.log.Info("session token refresh loop stopped")
				return
			}
			m.log.Error("session token refresh failed", "error", err)
			timer.Reset(m.retryInterval)
			continue
		}
		m.log.Debug("session token refreshed")
		timer.Reset(m.lifetime - m.refreshMargin)
	}
}
