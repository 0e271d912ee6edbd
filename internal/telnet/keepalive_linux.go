//go:build linux

package telnet

import (
	"net"
	"syscall"
	"time"
)

const (
	tcpKeepIdle    = 4    // TCP_KEEPIDLE, seconds
	tcpKeepIntvl   = 5    // TCP_KEEPINTVL, seconds
	tcpKeepCnt     = 6    // TCP_KEEPCNT
	tcpUserTimeout = 0x12 // TCP_USER_TIMEOUT, milliseconds
)

func tuneKeepalive(conn *net.TCPConn, idle, interval time.Duration, count int) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	// unacked writes to a dead access server fail after the same budget the probes get
	userTimeout := int(idle.Milliseconds()) + int(interval.Milliseconds())*count

	opts := []struct {
		name  int
		value int
	}{
		{tcpKeepIdle, int(idle.Seconds())},
		{tcpKeepIntvl, int(interval.Seconds())},
		{tcpKeepCnt, count},
		{tcpUserTimeout, userTimeout},
	}

	var sysErr error
	err = rawConn.Control(func(fd uintptr) {
		for _, o := range opts {
			if sysErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, o.name, o.value); sysErr != nil {
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return sysErr
}
