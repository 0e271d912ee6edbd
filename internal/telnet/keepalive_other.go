//go:build !linux && !darwin

package telnet

import (
	"net"
	"time"
)

func tuneKeepalive(conn *net.TCPConn, idle, interval time.Duration, count int) error {
	// only SetKeepAlive/SetKeepAlivePeriod are portable
	return nil
}
