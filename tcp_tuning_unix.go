//go:build linux || darwin

package tsubakuro

import (
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// tuneTCPSocket applies socket-level tuning beyond what net.TCPConn exposes
// directly, grounded on the pack's low-level socket-option idiom
// (mdlayher/socket's golang.org/x/sys/unix usage; runZeroInc/sockstats'
// TCP_INFO handling). Best-effort and never fatal: SyscallConn/Control
// failures are logged at Debug and a setsockopt failure is ignored, since
// TCP_NODELAY/keepalive are already set via the portable net.TCPConn API in
// link.go and this is pure additional tuning.
func tuneTCPSocket(conn *net.TCPConn) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		logrus.WithError(err).Debug("tsubakuro: SyscallConn unavailable, skipping socket tuning")
		return
	}
	ctrlErr := rawConn.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if ctrlErr != nil {
		logrus.WithError(ctrlErr).Debug("tsubakuro: socket tuning control call failed")
	}
}
