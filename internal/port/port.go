// Package port exposes remote serial ports behind a small interface and
// keeps an explicit registry of the schemes that can open them.
package port

import (
	"context"
	"errors"
	"io"
	"time"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/telnet"
)

var (
	ErrNotOpen     = errors.New("port not open")
	ErrAlreadyOpen = errors.New("port already open")
)

// Port is a serial line reachable through some transport.
type Port interface {
	io.ReadWriteCloser
	Open(ctx context.Context) error
}

// Configurer is implemented by ports whose line settings can be changed
// while open.
type Configurer interface {
	Configure(s Settings) (Settings, error)
}

// Options configures a port created through the registry.
type Options struct {
	Telnet             telnet.Options
	NegotiationTimeout time.Duration
	ResponseTimeout    time.Duration
	Settings           *Settings // applied on open; nil leaves the line as the server has it
	Debug              bool
}

func (o Options) negotiationTimeout() time.Duration {
	if o.NegotiationTimeout <= 0 {
		return 5 * time.Second
	}
	return o.NegotiationTimeout
}

// Purger is implemented by ports that can flush server-side buffers.
type Purger interface {
	Purge(target rfc2217.PurgeTarget) (rfc2217.PurgeTarget, error)
}
