// Package session connects a local byte stream to a remote serial port.
package session

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/port"
)

var counter atomic.Uint64

// Session is one local stream bridged to one port.
type Session struct {
	ID        string
	Target    string
	Local     io.ReadWriteCloser
	Port      port.Port
	StartedAt time.Time
	Debug     bool
	VCOMSync  bool // apply USR-VCOM sync packets found in local data to the port

	BytesIn  atomic.Int64 // local -> port
	BytesOut atomic.Int64 // port -> local
}

// New creates a session for an already opened port.
func New(target string, local io.ReadWriteCloser, p port.Port) *Session {
	return &Session{
		ID:        fmt.Sprintf("sess_%d_%d", time.Now().Unix(), counter.Add(1)),
		Target:    target,
		Local:     local,
		Port:      p,
		StartedAt: time.Now(),
	}
}

// Info is a snapshot of session counters.
type Info struct {
	ID           string
	Target       string
	StartedAt    time.Time
	DurationSecs float64
	BytesIn      int64
	BytesOut     int64
}

// Info returns the current counters.
func (s *Session) Info() Info {
	return Info{
		ID:           s.ID,
		Target:       s.Target,
		StartedAt:    s.StartedAt,
		DurationSecs: time.Since(s.StartedAt).Seconds(),
		BytesIn:      s.BytesIn.Load(),
		BytesOut:     s.BytesOut.Load(),
	}
}
