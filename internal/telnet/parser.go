package telnet

import (
	"log"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

type parseState int

const (
	stateData parseState = iota
	stateIAC
	stateOption
	stateSB
	stateSBIAC
)

// parser splits the inbound byte stream into application data, option
// commands and sub-negotiations. It is driven only by the receive loop.
type parser struct {
	state  parseState
	cmd    byte
	sb     []byte
	data   []byte
	onData func(data []byte)
	onOpt  func(cmd, option byte)
	onSB   func(payload []byte)
}

func newParser(onData func([]byte), onOpt func(cmd, option byte), onSB func([]byte)) *parser {
	return &parser{
		sb:     make([]byte, 0, 64),
		onData: onData,
		onOpt:  onOpt,
		onSB:   onSB,
	}
}

// feed consumes one chunk. Data is handed over in batches, and always
// before any command that followed it in the stream.
func (p *parser) feed(chunk []byte) {
	for _, b := range chunk {
		switch p.state {
		case stateData:
			if b == rfc2217.IAC {
				p.state = stateIAC
			} else {
				p.data = append(p.data, b)
			}

		case stateIAC:
			switch b {
			case rfc2217.IAC:
				p.data = append(p.data, b)
				p.state = stateData
			case rfc2217.WILL, rfc2217.WONT, rfc2217.DO, rfc2217.DONT:
				p.cmd = b
				p.state = stateOption
			case rfc2217.SB:
				p.sb = p.sb[:0]
				p.state = stateSB
			default:
				// NOP, GA, DM, ... carry nothing for a serial line
				p.state = stateData
			}

		case stateOption:
			p.flush()
			p.onOpt(p.cmd, b)
			p.state = stateData

		case stateSB:
			if b == rfc2217.IAC {
				p.state = stateSBIAC
			} else {
				p.sb = append(p.sb, b)
			}

		case stateSBIAC:
			switch b {
			case rfc2217.IAC:
				// left doubled; the option's codec unescapes its payload
				p.sb = append(p.sb, rfc2217.IAC, rfc2217.IAC)
				p.state = stateSB
			case rfc2217.SE:
				p.flush()
				payload := make([]byte, len(p.sb))
				copy(payload, p.sb)
				p.onSB(payload)
				p.state = stateData
			default:
				log.Printf("[telnet] dropping unterminated subnegotiation (%d bytes), got IAC %d", len(p.sb), b)
				p.state = stateData
			}
		}
	}
	p.flush()
}

func (p *parser) flush() {
	if len(p.data) == 0 {
		return
	}
	p.onData(p.data)
	p.data = p.data[:0]
}

// escapeData doubles every IAC in outbound application data.
func escapeData(p []byte) []byte {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == rfc2217.IAC {
			out = append(out, rfc2217.IAC)
		}
		out = append(out, b)
	}
	return out
}
