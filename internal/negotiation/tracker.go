// Package negotiation records the peer's answers to telnet option
// negotiation and lets callers block until a given option is settled.
package negotiation

import (
	"errors"
	"fmt"
	"log"
	"time"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
	"git2.jad.ru/MeterRS485/rfc2217-client/internal/waitcond"
)

var (
	ErrRefused = errors.New("option refused")
	ErrTimeout = errors.New("option negotiation timed out")
)

// RefusedError names the option the peer refused.
type RefusedError struct {
	Code byte
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("negotiation refused: option %d", e.Code)
}

func (e *RefusedError) Is(target error) bool { return target == ErrRefused }

// TimeoutError names the option that was not answered in time.
type TimeoutError struct {
	Code byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("negotiation timeout: option %d", e.Code)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

type state int

const (
	unknown state = iota
	willing
	refused
)

// Tracker holds, per direction, the terminal state of every option the
// peer answered. States never change once set.
type Tracker struct {
	cond *waitcond.Cond
	send map[byte]state // WILL / WONT from the peer
	recv map[byte]state // DO / DONT from the peer
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		cond: waitcond.New(),
		send: make(map[byte]state),
		recv: make(map[byte]state),
	}
}

// Notify records a WILL, WONT, DO or DONT from the peer. It is meant to be
// registered as the transport's negotiation callback.
func (t *Tracker) Notify(cmd, code byte) {
	var table map[byte]state
	var next state
	switch cmd {
	case rfc2217.WILL:
		table, next = t.send, willing
	case rfc2217.WONT:
		table, next = t.send, refused
	case rfc2217.DO:
		table, next = t.recv, willing
	case rfc2217.DONT:
		table, next = t.recv, refused
	default:
		log.Printf("[negotiation] ignoring command %d for option %d", cmd, code)
		return
	}

	t.cond.Update(func() {
		if prev := table[code]; prev != unknown {
			if prev != next {
				log.Printf("[negotiation] option %d already settled, ignoring command %d", code, cmd)
			}
			return
		}
		table[code] = next
	})
}

// AwaitWillSend waits for the peer's WILL (nil) or WONT (*RefusedError)
// for code.
func (t *Tracker) AwaitWillSend(code byte, timeout time.Duration) error {
	return t.await(t.send, code, timeout)
}

// AwaitWillAccept waits for the peer's DO (nil) or DONT (*RefusedError)
// for code.
func (t *Tracker) AwaitWillAccept(code byte, timeout time.Duration) error {
	return t.await(t.recv, code, timeout)
}

// Close fails every pending and future await with waitcond.ErrClosed.
func (t *Tracker) Close() {
	t.cond.Close()
}

func (t *Tracker) await(table map[byte]state, code byte, timeout time.Duration) error {
	var got state
	err := t.cond.WaitTimeout(timeout, func() bool {
		got = table[code]
		return got != unknown
	})
	switch {
	case errors.Is(err, waitcond.ErrTimeout):
		return &TimeoutError{Code: code}
	case err != nil:
		return err
	case got == refused:
		return &RefusedError{Code: code}
	}
	return nil
}
