// Package correlator matches RFC 2217 requests with the responses the
// transport delivers asynchronously.
package correlator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/waitcond"
)

// DefaultTimeout bounds how long Send waits for a response.
const DefaultTimeout = 1000 * time.Millisecond

// ErrNoResponse is returned when no response of the request's kind arrived
// in time. It is not a hard failure; callers decide whether to resend.
var ErrNoResponse = errors.New("no response")

// Sender is the transport's sub-negotiation send primitive.
type Sender interface {
	SendSubnegotiation(data []int) error
}

// Correlator sends commands and blocks until the response of the same kind
// arrives. Responses are matched by kind only; at most one response per
// kind is buffered, and Send serializes requests of one kind.
type Correlator struct {
	sender  Sender
	timeout time.Duration
	debug   bool

	cond    *waitcond.Cond
	pending map[rfc2217.Kind]rfc2217.ControlCmd

	inflightMu sync.Mutex
	inflight   map[rfc2217.Kind]chan struct{} // one slot per kind
}

// New creates a Correlator. A timeout <= 0 selects DefaultTimeout.
func New(sender Sender, timeout time.Duration, debug bool) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{
		sender:   sender,
		timeout:  timeout,
		debug:    debug,
		cond:     waitcond.New(),
		pending:  make(map[rfc2217.Kind]rfc2217.ControlCmd),
		inflight: make(map[rfc2217.Kind]chan struct{}),
	}
}

// Timeout returns the configured response timeout.
func (c *Correlator) Timeout() time.Duration { return c.timeout }

// Send transmits cmd and returns the matching response, or ErrNoResponse
// once the timeout elapses.
func (c *Correlator) Send(cmd rfc2217.ControlCmd) (rfc2217.ControlCmd, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.SendContext(ctx, cmd)
}

// SendContext is Send bounded by ctx instead of the configured timeout.
// Expiry of ctx's deadline is reported as ErrNoResponse.
func (c *Correlator) SendContext(ctx context.Context, cmd rfc2217.ControlCmd) (rfc2217.ControlCmd, error) {
	data, err := rfc2217.EncodeRequest(cmd)
	if err != nil {
		return nil, err
	}
	kind := cmd.Kind()

	release, err := c.acquire(ctx, kind)
	if err != nil {
		return nil, err
	}
	defer release()

	// a leftover reply from an earlier exchange must not answer this one
	c.cond.Update(func() {
		if stale, ok := c.pending[kind]; ok {
			log.Printf("[rfc2217] discarding stale response: %s", stale)
			delete(c.pending, kind)
		}
	})

	if c.debug {
		log.Printf("[rfc2217] request: %s", cmd)
	}
	if err := c.sender.SendSubnegotiation(data); err != nil {
		return nil, err
	}

	var resp rfc2217.ControlCmd
	err = c.cond.Wait(ctx, func() bool {
		r, ok := c.pending[kind]
		if ok {
			resp = r
			delete(c.pending, kind)
		}
		return ok
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrNoResponse
	}
	if err != nil {
		return nil, err
	}
	if c.debug {
		log.Printf("[rfc2217] response: %s", resp)
	}
	return resp, nil
}

// OnResponseReceived buffers a decoded response, replacing any unconsumed
// response of the same kind, and wakes blocked senders.
func (c *Correlator) OnResponseReceived(cmd rfc2217.ControlCmd) {
	if cmd == nil {
		return
	}
	if !cmd.IsResponse() {
		log.Printf("[rfc2217] ignoring non-response command: %s", cmd)
		return
	}
	c.cond.Update(func() {
		c.pending[cmd.Kind()] = cmd
	})
}

// Close fails blocked and future sends with waitcond.ErrClosed.
func (c *Correlator) Close() {
	c.cond.Close()
}

// acquire waits for the kind's slot. A caller whose ctx ends while waiting
// does not send.
func (c *Correlator) acquire(ctx context.Context, kind rfc2217.Kind) (func(), error) {
	c.inflightMu.Lock()
	slot, ok := c.inflight[kind]
	if !ok {
		slot = make(chan struct{}, 1)
		c.inflight[kind] = slot
	}
	c.inflightMu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, contextErr(ctx)
	}
	if ctx.Err() != nil {
		<-slot
		return nil, contextErr(ctx)
	}
	return func() { <-slot }, nil
}

// contextErr maps an expired deadline to ErrNoResponse.
func contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrNoResponse
	}
	return ctx.Err()
}
