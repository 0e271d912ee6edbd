package rfc2217

import (
	"fmt"
	"io"
)

// StopSizeCmd is SET-STOPSIZE. Wire values: 1 = 1 bit, 2 = 2 bits, 3 = 1.5 bits.
type StopSizeCmd struct {
	controlCmd
	wire byte
}

// NewStopSizeCmd builds a SET-STOPSIZE request.
func NewStopSizeCmd(s StopBits) (*StopSizeCmd, error) {
	wire, ok := StopBitsTable.Encode(s)
	if !ok {
		return nil, invalidArgument("unsupported stop bits %d", int(s))
	}
	return &StopSizeCmd{controlCmd: mustControlCmd(SetStopSizeC), wire: wire}, nil
}

// StopSizeQuery asks the server for its current stop size.
func StopSizeQuery() *StopSizeCmd {
	return &StopSizeCmd{controlCmd: mustControlCmd(SetStopSizeC)}
}

// DecodeStopSize reads a SET-STOPSIZE payload carrying the given code.
func DecodeStopSize(code byte, r io.Reader) (*StopSizeCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	b, err := readByte(r, "stop size")
	if err != nil {
		return nil, err
	}
	if b < 1 {
		return nil, malformed("stop size", int(b))
	}
	return &StopSizeCmd{controlCmd: base, wire: b}, nil
}

// Value returns the raw wire value.
func (c *StopSizeCmd) Value() int { return int(c.wire) }

// StopBits translates the wire value.
func (c *StopSizeCmd) StopBits() (StopBits, error) {
	return StopBitsTable.Decode(c.wire)
}

// IsQuery returns true if the command requests the current value.
func (c *StopSizeCmd) IsQuery() bool { return c.wire == 0 }

func (c *StopSizeCmd) Encode(w io.Writer) error {
	return writeBytes(w, "stop size", c.wire)
}

func (c *StopSizeCmd) String() string {
	if s, err := c.StopBits(); err == nil {
		return fmt.Sprintf("SET-STOPSIZE: %s", s)
	}
	return fmt.Sprintf("SET-STOPSIZE: %d", c.wire)
}
