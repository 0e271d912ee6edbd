package telnet

import (
	"net"
	"time"
)

// SetTCPKeepalive turns on TCP keepalive probing for conn
// idle: time before first probe
// interval: time between probes
// count: unanswered probes before the peer is declared dead
func SetTCPKeepalive(conn net.Conn, idle, interval time.Duration, count int) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // net.Pipe in tests, TLS wrappers, etc.
	}

	// the kernel takes whole seconds and rejects 0
	idle, interval = atLeastSecond(idle), atLeastSecond(interval)
	if count < 1 {
		count = 1
	}

	if err := tcpConn.SetKeepAlive(true); err != nil {
		return err
	}
	if err := tcpConn.SetKeepAlivePeriod(interval); err != nil {
		return err
	}

	// TCP_KEEPIDLE / TCP_KEEPCNT are platform specific
	return tuneKeepalive(tcpConn, idle, interval, count)
}

func atLeastSecond(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}
