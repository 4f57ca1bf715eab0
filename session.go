package tsubakuro

import (
	"context"
	"sync/atomic"
)

// ShutdownType names the kind of shutdown a caller passes to Shutdown. The
// kind is not encoded in the shutdown request: both kinds send the same
// request and close the Wire the same way.
type ShutdownType int

const (
	// ShutdownGraceful names a graceful shutdown.
	ShutdownGraceful ShutdownType = iota
	// ShutdownForceful names a forceful shutdown; in-flight requests are not
	// cancelled by the client.
	ShutdownForceful
)

// Session owns one Wire (and therefore one TCP connection) for the
// lifetime of a logical connection to the server. It is the top-level
// handle a caller obtains from Connect/ConnectFor and uses to build service
// clients via MakeClient.
type Session struct {
	wire      *Wire
	option    *ConnectionOption
	sessionID uint64
	closed    int32 // atomic bool
}

// Connect dials option.endpoint, performs the handshake, and returns a
// ready Session. It blocks with no deadline beyond ctx's own.
func Connect(ctx context.Context, option *ConnectionOption) (*Session, error) {
	return ConnectFor(ctx, option, NewTimeout(0))
}

// ConnectFor is Connect with an explicit deadline applied to the handshake
// step (the TCP dial itself is still bounded only by ctx).
func ConnectFor(ctx context.Context, option *ConnectionOption, timeout Timeout) (*Session, error) {
	if err := option.Validate(); err != nil {
		return nil, err
	}
	host, port, err := option.endpoint.HostPort()
	if err != nil {
		return nil, err
	}

	l, err := connectLink(ctx, host, port)
	if err != nil {
		return nil, err
	}
	wire := NewWire(l)

	clientInfo := ClientInformation{
		ApplicationName: option.applicationName,
		Label:           option.label,
	}
	sessionID, err := Handshake(wire, clientInfo, DefaultWireInformation(), option.credential, option.keyProvider, timeout)
	if err != nil {
		_ = wire.Close(NewTimeout(0))
		return nil, err
	}

	return &Session{wire: wire, option: option, sessionID: sessionID}, nil
}

// sessionConnectResult is the value carried across a SessionFuture.
type sessionConnectResult struct {
	session *Session
	err     error
}

// SessionFuture is the handle ConnectAsync returns: a connect+handshake
// sequence running on its own goroutine, awaited via Take. Unlike Job[T],
// this does not correlate through a Wire slot (no Wire exists yet before
// the handshake completes), so it is a plain buffered-channel future,
// grounded on original_source/session/mod.rs's connect_async.
type SessionFuture struct {
	resultCh chan sessionConnectResult
}

// ConnectAsync starts Connect on a background goroutine and returns
// immediately with a future.
func ConnectAsync(ctx context.Context, option *ConnectionOption) *SessionFuture {
	return ConnectAsyncFor(ctx, option, NewTimeout(0))
}

// ConnectAsyncFor is ConnectAsync with an explicit handshake deadline.
func ConnectAsyncFor(ctx context.Context, option *ConnectionOption, timeout Timeout) *SessionFuture {
	fut := &SessionFuture{resultCh: make(chan sessionConnectResult, 1)}
	go func() {
		s, err := ConnectFor(ctx, option, timeout)
		fut.resultCh <- sessionConnectResult{session: s, err: err}
	}()
	return fut
}

// Take awaits the connection, blocking until it completes or timeout
// expires.
func (f *SessionFuture) Take(timeout Timeout) (*Session, error) {
	deadlineC, stop := timeout.channel()
	defer stop()
	select {
	case r := <-f.resultCh:
		return r.session, r.err
	case <-deadlineC:
		return nil, TimeoutError("SessionFuture.Take()")
	}
}

// SessionID returns the server-assigned session identifier bound during
// the handshake.
func (s *Session) SessionID() uint64 { return s.sessionID }

// DefaultTimeout returns the Timeout derived from this session's configured
// default, for operations that don't specify their own deadline.
func (s *Session) DefaultTimeout() Timeout {
	return NewTimeout(s.option.defaultTimeout)
}

// IsClosed reports whether this session has been closed (locally or by a
// Wire-level failure it has observed via Shutdown/Close).
func (s *Session) IsClosed() bool {
	return atomic.LoadInt32(&s.closed) != 0 || s.wire.IsClosed()
}

// Close is Shutdown(ShutdownGraceful, session's default timeout).
func (s *Session) Close() error {
	return s.Shutdown(ShutdownGraceful, s.DefaultTimeout())
}

// Shutdown sends a session-shutdown request and closes the underlying Wire,
// failing every still-pending request with ErrClosed. kind does not change
// the request that is sent. Safe to call more than once; only the first
// call has effect.
func (s *Session) Shutdown(kind ShutdownType, timeout Timeout) error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	_ = kind // both shutdown kinds currently drive the same wire-level close; kind is surfaced for a future service-level distinction.
	return s.wire.Close(timeout)
}
