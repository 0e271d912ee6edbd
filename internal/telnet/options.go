package telnet

import (
	"fmt"
	"sync"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

type optionState struct {
	enabled   bool
	requested bool // we sent WILL/DO and wait for the answer
}

// optionTable tracks both sides of every option and decides the replies,
// answering each request at most once so the two peers cannot loop.
type optionTable struct {
	mu       sync.Mutex
	accepted map[byte]bool
	local    map[byte]*optionState // options we perform (WILL)
	remote   map[byte]*optionState // options the peer performs (DO)
}

func newOptionTable(accepted ...byte) *optionTable {
	t := &optionTable{
		accepted: make(map[byte]bool),
		local:    make(map[byte]*optionState),
		remote:   make(map[byte]*optionState),
	}
	for _, opt := range accepted {
		t.accepted[opt] = true
	}
	return t
}

func (t *optionTable) get(m map[byte]*optionState, opt byte) *optionState {
	s, ok := m[opt]
	if !ok {
		s = &optionState{}
		m[opt] = s
	}
	return s
}

// requestLocal marks a WILL as sent; false if nothing needs sending.
func (t *optionTable) requestLocal(opt byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(t.local, opt)
	if s.enabled || s.requested {
		return false
	}
	s.requested = true
	return true
}

// requestRemote marks a DO as sent; false if nothing needs sending.
func (t *optionTable) requestRemote(opt byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(t.remote, opt)
	if s.enabled || s.requested {
		return false
	}
	s.requested = true
	return true
}

// react updates the state for an inbound command and returns the reply
// to send, if any.
func (t *optionTable) react(cmd, opt byte) (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd {
	case rfc2217.WILL:
		s := t.get(t.remote, opt)
		if s.enabled {
			return 0, false
		}
		if !t.accepted[opt] {
			s.requested = false
			return rfc2217.DONT, true
		}
		wasRequested := s.requested
		s.enabled, s.requested = true, false
		if wasRequested {
			return 0, false
		}
		return rfc2217.DO, true

	case rfc2217.WONT:
		s := t.get(t.remote, opt)
		wasEnabled := s.enabled
		s.enabled, s.requested = false, false
		if wasEnabled {
			return rfc2217.DONT, true
		}
		return 0, false

	case rfc2217.DO:
		s := t.get(t.local, opt)
		if s.enabled {
			return 0, false
		}
		if !t.accepted[opt] {
			s.requested = false
			return rfc2217.WONT, true
		}
		wasRequested := s.requested
		s.enabled, s.requested = true, false
		if wasRequested {
			return 0, false
		}
		return rfc2217.WILL, true

	case rfc2217.DONT:
		s := t.get(t.local, opt)
		wasEnabled := s.enabled
		s.enabled, s.requested = false, false
		if wasEnabled {
			return rfc2217.WONT, true
		}
		return 0, false
	}
	return 0, false
}

// localEnabled reports whether we perform opt.
func (t *optionTable) localEnabled(opt byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(t.local, opt).enabled
}

// remoteEnabled reports whether the peer performs opt.
func (t *optionTable) remoteEnabled(opt byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(t.remote, opt).enabled
}

func commandName(cmd byte) string {
	switch cmd {
	case rfc2217.WILL:
		return "WILL"
	case rfc2217.WONT:
		return "WONT"
	case rfc2217.DO:
		return "DO"
	case rfc2217.DONT:
		return "DONT"
	default:
		return fmt.Sprintf("CMD(%d)", cmd)
	}
}
