// Package telnet is the client side of a telnet connection to an RFC 2217
// access server: option negotiation, sub-negotiation framing and the
// IAC-escaped data path.
package telnet

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pires/go-proxyproto"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/waitcond"
)

// Options configures a Client.
type Options struct {
	DialTimeout   time.Duration
	KeepAlive     time.Duration // TCP keepalive idle time, 0 leaves the OS default
	IdleTimeout   time.Duration // send IAC NOP after this much write silence, 0 disables
	ProxyProtocol bool          // prepend a PROXY protocol v1 header
	Debug         bool
}

// Client is a telnet connection. Negotiation and sub-negotiation callbacks
// run on the receive goroutine and must not block.
type Client struct {
	conn net.Conn
	opts Options

	writeMu   sync.Mutex
	lastWrite atomic.Int64 // unix nanos

	data    *waitcond.Cond
	inbuf   bytes.Buffer
	readErr error

	hookMu        sync.Mutex
	onNegotiation []func(cmd, option byte)
	subHandlers   map[byte]func(data []int, length int)
	onClose       []func()

	options *optionTable

	started   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to addr and returns a Client that is not yet started.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if opts.KeepAlive > 0 {
		// idle=KeepAlive, 3 probes spread over another KeepAlive
		if err := SetTCPKeepalive(conn, opts.KeepAlive, opts.KeepAlive/3, 3); err != nil {
			log.Printf("[telnet] %s: failed to set TCP keepalive: %v", addr, err)
		}
	}

	if opts.ProxyProtocol {
		header := proxyproto.HeaderProxyFromAddrs(1, conn.LocalAddr(), conn.RemoteAddr())
		if _, err := header.WriteTo(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write PROXY header: %w", err)
		}
		log.Printf("[telnet] %s: sent PROXY protocol header", addr)
	}

	log.Printf("[telnet] connected to %s", addr)
	return NewClient(conn, opts), nil
}

// NewClient wraps an established connection. Register callbacks, then
// call Start.
func NewClient(conn net.Conn, opts Options) *Client {
	c := &Client{
		conn:        conn,
		opts:        opts,
		data:        waitcond.New(),
		subHandlers: make(map[byte]func([]int, int)),
		options: newOptionTable(
			rfc2217.TransmitBinaryOption,
			rfc2217.SuppressGoAheadOption,
			rfc2217.ComPortOption,
		),
		done: make(chan struct{}),
	}
	c.lastWrite.Store(time.Now().UnixNano())
	return c
}

// OnNegotiation registers a callback for every WILL/WONT/DO/DONT received.
func (c *Client) OnNegotiation(fn func(cmd, option byte)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onNegotiation = append(c.onNegotiation, fn)
}

// HandleSubnegotiation registers the handler for sub-negotiations of one
// option. data starts with the option code and is passed as received, with
// IAC IAC pairs still doubled.
func (c *Client) HandleSubnegotiation(option byte, fn func(data []int, length int)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.subHandlers[option] = fn
}

// OnClose registers a callback run once when the connection closes.
func (c *Client) OnClose(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onClose = append(c.onClose, fn)
}

// Start launches the receive loop and, if configured, the NOP keepalive.
func (c *Client) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.receive()
	if c.opts.IdleTimeout > 0 {
		go c.keepalive()
	}
}

// Done is closed once the connection is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// RequestWill offers to perform option locally.
func (c *Client) RequestWill(option byte) error {
	if !c.options.requestLocal(option) {
		return nil
	}
	return c.sendCommand(rfc2217.WILL, option)
}

// RequestDo asks the peer to perform option.
func (c *Client) RequestDo(option byte) error {
	if !c.options.requestRemote(option) {
		return nil
	}
	return c.sendCommand(rfc2217.DO, option)
}

// SendSubnegotiation sends IAC SB <data> IAC SE. data must already have
// its IAC bytes doubled.
func (c *Client) SendSubnegotiation(data []int) error {
	payload, err := rfc2217.FromUnsigned(data)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, rfc2217.IAC, rfc2217.SB)
	frame = append(frame, payload...)
	frame = append(frame, rfc2217.IAC, rfc2217.SE)

	if c.opts.Debug {
		log.Printf("[telnet] send subnegotiation: %s", hex.EncodeToString(frame))
	}
	return c.writeRaw(frame)
}

// Read returns application data received from the peer.
func (c *Client) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	var readErr error
	err := c.data.Wait(context.Background(), func() bool {
		if c.inbuf.Len() > 0 {
			n, _ = c.inbuf.Read(p)
			return true
		}
		readErr = c.readErr
		return readErr != nil
	})
	if n > 0 {
		return n, nil
	}
	if readErr != nil {
		return 0, readErr
	}
	if errors.Is(err, waitcond.ErrClosed) {
		return 0, net.ErrClosed
	}
	return 0, err
}

// Write sends application data, doubling IAC bytes.
func (c *Client) Write(p []byte) (int, error) {
	if err := c.writeRaw(escapeData(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection, fails blocked readers and runs OnClose hooks.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
		c.data.Update(func() {
			if c.readErr == nil {
				c.readErr = net.ErrClosed
			}
		})
		c.data.Close()

		c.hookMu.Lock()
		hooks := append([]func(){}, c.onClose...)
		c.hookMu.Unlock()
		for _, fn := range hooks {
			fn()
		}
		log.Printf("[telnet] %s: closed", c.conn.RemoteAddr())
	})
	return err
}

// RemoteAddr returns the peer address.
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Client) receive() {
	p := newParser(c.deliverData, c.handleOption, c.dispatchSubnegotiation)
	buf := make([]byte, 4096)

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if c.opts.Debug {
				log.Printf("[telnet] recv %d bytes\n%s", n, hex.Dump(buf[:n]))
			}
			p.feed(buf[:n])
		}
		if err != nil {
			select {
			case <-c.done:
			default:
				if err != io.EOF {
					log.Printf("[telnet] %s: read error: %v", c.conn.RemoteAddr(), err)
				} else {
					log.Printf("[telnet] %s: connection closed by server", c.conn.RemoteAddr())
				}
			}
			c.data.Update(func() {
				if c.readErr == nil {
					c.readErr = err
				}
			})
			c.Close()
			return
		}
	}
}

func (c *Client) deliverData(data []byte) {
	c.data.Update(func() {
		c.inbuf.Write(data)
	})
}

func (c *Client) handleOption(cmd, option byte) {
	if reply, ok := c.options.react(cmd, option); ok {
		if err := c.sendCommand(reply, option); err != nil {
			log.Printf("[telnet] reply %s %d: %v", commandName(reply), option, err)
		}
	}
	if c.opts.Debug {
		log.Printf("[telnet] received %s %d", commandName(cmd), option)
	}

	c.hookMu.Lock()
	hooks := append([]func(byte, byte){}, c.onNegotiation...)
	c.hookMu.Unlock()
	for _, fn := range hooks {
		fn(cmd, option)
	}
}

func (c *Client) dispatchSubnegotiation(payload []byte) {
	if len(payload) == 0 {
		return
	}
	c.hookMu.Lock()
	fn := c.subHandlers[payload[0]]
	c.hookMu.Unlock()
	if fn == nil {
		if c.opts.Debug {
			log.Printf("[telnet] no handler for subnegotiation of option %d", payload[0])
		}
		return
	}
	data := rfc2217.ToUnsigned(payload)
	fn(data, len(data))
}

func (c *Client) sendCommand(cmd, option byte) error {
	if c.opts.Debug {
		log.Printf("[telnet] send %s %d", commandName(cmd), option)
	}
	return c.writeRaw([]byte{rfc2217.IAC, cmd, option})
}

func (c *Client) writeRaw(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	if _, err := c.conn.Write(p); err != nil {
		return fmt.Errorf("telnet write: %w", err)
	}
	c.lastWrite.Store(time.Now().UnixNano())
	return nil
}

// keepalive sends IAC NOP when nothing was written for IdleTimeout
func (c *Client) keepalive() {
	ticker := time.NewTicker(c.opts.IdleTimeout / 2)
	defer ticker.Stop()

	nop := []byte{rfc2217.IAC, rfc2217.NOP}
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, c.lastWrite.Load()))
			if idle < c.opts.IdleTimeout {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := c.writeRaw(nop)
			c.conn.SetWriteDeadline(time.Time{})
			if err != nil {
				log.Printf("[telnet] %s: keepalive failed: %v", c.conn.RemoteAddr(), err)
				c.Close()
				return
			}
			if c.opts.Debug {
				log.Printf("[telnet] sent NOP (idle %v)", idle.Truncate(time.Second))
			}
		}
	}
}

// LocalEnabled reports whether the peer agreed that we perform option.
func (c *Client) LocalEnabled(option byte) bool { return c.options.localEnabled(option) }

// RemoteEnabled reports whether the peer performs option.
func (c *Client) RemoteEnabled(option byte) bool { return c.options.remoteEnabled(option) }
