package tsubakuro

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sagernet/sing/common/bufio"
	"github.com/sirupsen/logrus"
)

// linkState tracks connection liveness: a link is single-producer for
// receive and multi-producer-serialised for send; a half-closed socket
// transitions it to closed, failing every subsequent send/receive with an
// IoErr.
type linkState int32

const (
	linkOpen linkState = iota
	linkClosed
)

// link owns the TCP socket. It is single-producer for receive (only the
// Wire's dispatch loop calls receiveNext) and serialises concurrent sends
// behind writeMu.
type link struct {
	conn net.Conn

	writeMu sync.Mutex
	bw      io.Writer
	vec     bool // true if conn supports vectorised writes

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
	closeMu   sync.Mutex
}

// connectLink dials host:port over TCP, tunes the socket (TCP_NODELAY,
// keepalive) and wraps it as a link. It fails with an IoErr on refusal or
// timeout.
func connectLink(ctx context.Context, host string, port uint16) (*link, error) {
	dialer := net.Dialer{}
	addr := net.JoinHostPort(host, portToString(port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, IoError("connect to "+addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		tuneTCPSocket(tcpConn)
	}

	l := &link{conn: conn, closed: make(chan struct{})}
	if bw, ok := bufio.CreateVectorisedWriter(conn); ok {
		l.bw = bw
		l.vec = true
	}
	logrus.WithField("addr", addr).Debug("tsubakuro: link connected")
	return l, nil
}

func portToString(p uint16) string {
	// net.JoinHostPort wants a string; avoid strconv import churn by using
	// the same small helper style as the rest of this file.
	const digits = "0123456789"
	if p == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for p > 0 {
		i--
		buf[i] = digits[p%10]
		p /= 10
	}
	return string(buf[i:])
}

// sendFrame serialises concurrent sends behind writeMu; on IO failure it
// marks the link closed, recording the error for every current and future
// waiter, and refuses further sends.
func (l *link) sendFrame(raw []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.isClosed() {
		return l.closeErrOrDefault()
	}

	var err error
	if l.vec {
		_, err = bufio.WriteVectorised(l.bw, [][]byte{raw})
	} else {
		_, err = l.conn.Write(raw)
	}
	if err != nil {
		l.fail(IoError("write frame", err))
		return l.closeErrOrDefault()
	}
	return nil
}

// receiveNext blocks on socket readiness and decodes the next frame. It
// returns io.EOF once the peer has cleanly closed and no frame is
// in-flight; any other failure transitions the link to closed.
func (l *link) receiveNext() (Frame, error) {
	f, err := readResponseFrame(l.conn)
	if err != nil {
		if err == io.EOF {
			l.fail(ErrClosed)
			return Frame{}, io.EOF
		}
		l.fail(err)
		return Frame{}, err
	}
	return f, nil
}

func (l *link) fail(err error) {
	l.closeMu.Lock()
	if l.closeErr == nil {
		l.closeErr = err
	}
	l.closeMu.Unlock()
	l.closeOnce.Do(func() {
		logrus.WithError(err).Warn("tsubakuro: link failed")
		close(l.closed)
	})
}

func (l *link) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

func (l *link) closeErrOrDefault() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closeErr != nil {
		return l.closeErr
	}
	return ErrClosed
}

// done returns a channel closed once the link has failed or been closed.
func (l *link) done() <-chan struct{} { return l.closed }

// close closes the underlying socket and marks the link closed.
func (l *link) close() error {
	l.fail(ErrClosed)
	return l.conn.Close()
}
