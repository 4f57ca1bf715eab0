//go:build !linux && !darwin

package tsubakuro

import "net"

// tuneTCPSocket is a no-op on platforms where golang.org/x/sys/unix's
// socket-option constants don't apply; TCP_NODELAY/keepalive are still set
// via the portable net.TCPConn API in link.go.
func tuneTCPSocket(*net.TCPConn) {}
