//go:build darwin

package telnet

import (
	"net"
	"syscall"
	"time"
)

const (
	tcpKeepAlive = 0x10 // TCP_KEEPALIVE: idle time on macOS
	tcpKeepIntvl = 0x101
	tcpKeepCnt   = 0x102
)

func tuneKeepalive(conn *net.TCPConn, idle, interval time.Duration, count int) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sysErr error
	err = rawConn.Control(func(fd uintptr) {
		sysErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, tcpKeepAlive, int(idle.Seconds()))
		if sysErr != nil {
			return
		}
		// older macOS lacks these two; best effort
		syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, tcpKeepIntvl, int(interval.Seconds()))
		syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, tcpKeepCnt, count)
	})
	if err != nil {
		return err
	}
	return sysErr
}
