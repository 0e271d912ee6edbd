package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/port"
)

// errStopped ends the bridge when one side reaches EOF.
var errStopped = errors.New("bridge side closed")

// Bridge creates a bidirectional data bridge between the local stream and the port
type Bridge struct {
	session *Session
}

// NewBridge creates a new bridge for a session
func NewBridge(session *Session) *Bridge {
	return &Bridge{session: session}
}

// Run pumps data in both directions until one side closes, an error occurs
// or ctx is cancelled. Both sides are closed on return. A clean close is
// not an error.
func (b *Bridge) Run(ctx context.Context) error {
	s := b.session
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.copyCounted(s.Port, s.Local, &s.BytesIn, "local->port", b.interceptVCOM)
	})
	g.Go(func() error {
		return b.copyCounted(s.Local, s.Port, &s.BytesOut, "port->local", nil)
	})
	g.Go(func() error {
		<-gctx.Done()
		// close both sides so both goroutines exit
		s.Local.Close()
		s.Port.Close()
		return nil
	})

	err := g.Wait()
	log.Printf("[bridge] %s: closed (in=%d, out=%d)", s.ID, s.BytesIn.Load(), s.BytesOut.Load())
	if errors.Is(err, errStopped) || ctx.Err() != nil {
		return nil
	}
	return err
}

// copyCounted transfers data from src to dst, counting bytes. filter may
// rewrite each chunk.
func (b *Bridge) copyCounted(dst io.Writer, src io.Reader, counter *atomic.Int64, direction string, filter func([]byte) []byte) error {
	buf := make([]byte, 4096)
	var total int64
	defer func() {
		log.Printf("[bridge] %s: %s total: %d bytes", b.session.ID, direction, total)
	}()

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if filter != nil {
				chunk = filter(chunk)
			}
			if b.session.Debug && len(chunk) > 0 {
				log.Printf("[bridge] %s %s: %d bytes\n%s",
					b.session.ID, direction, len(chunk), hex.Dump(chunk))
			}
			if len(chunk) > 0 {
				written, writeErr := dst.Write(chunk)
				if written > 0 {
					counter.Add(int64(written))
					total += int64(written)
				}
				if writeErr != nil {
					return fmt.Errorf("%s write: %w", direction, writeErr)
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return errStopped
			}
			return fmt.Errorf("%s read: %w", direction, readErr)
		}
	}
}

// interceptVCOM applies a USR-VCOM sync packet to the port and removes it
// from the stream. Packets split across reads pass through unchanged.
func (b *Bridge) interceptVCOM(chunk []byte) []byte {
	if !b.session.VCOMSync {
		return chunk
	}
	cfg, ok := b.session.Port.(port.Configurer)
	if !ok {
		return chunk
	}
	settings, idx := port.FindVCOMSync(chunk)
	if idx < 0 {
		return chunk
	}

	if cur, ok := b.session.Port.(interface{ Settings() port.Settings }); ok {
		settings.FlowControl = cur.Settings().FlowControl
	}
	log.Printf("[bridge] %s: USR-VCOM sync: %s", b.session.ID, settings)
	if _, err := cfg.Configure(settings); err != nil {
		log.Printf("[bridge] %s: failed to apply USR-VCOM settings: %v", b.session.ID, err)
	}

	out := append([]byte{}, chunk[:idx]...)
	return append(out, chunk[idx+port.VCOMSyncLen:]...)
}
