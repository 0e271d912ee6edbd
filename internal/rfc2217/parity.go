package rfc2217

import (
	"fmt"
	"io"
)

// ParityCmd is SET-PARITY.
//
// Decoding retains the raw wire byte; Parity translates it and reports a
// MalformedMessageError for bytes outside the table.
type ParityCmd struct {
	controlCmd
	wire byte
}

// NewParityCmd builds a SET-PARITY request.
func NewParityCmd(p Parity) (*ParityCmd, error) {
	wire, ok := ParityTable.Encode(p)
	if !ok {
		return nil, invalidArgument("unsupported parity %d", int(p))
	}
	return &ParityCmd{controlCmd: mustControlCmd(SetParityC), wire: wire}, nil
}

// ParityQuery asks the server for its current parity.
func ParityQuery() *ParityCmd {
	return &ParityCmd{controlCmd: mustControlCmd(SetParityC)}
}

// DecodeParity reads a SET-PARITY payload carrying the given code.
func DecodeParity(code byte, r io.Reader) (*ParityCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	b, err := readByte(r, "parity")
	if err != nil {
		return nil, err
	}
	return &ParityCmd{controlCmd: base, wire: b}, nil
}

// Value returns the raw wire value.
func (c *ParityCmd) Value() int { return int(c.wire) }

// Parity translates the wire value.
func (c *ParityCmd) Parity() (Parity, error) {
	return ParityTable.Decode(c.wire)
}

// IsQuery returns true if the command requests the current value.
func (c *ParityCmd) IsQuery() bool { return c.wire == 0 }

func (c *ParityCmd) Encode(w io.Writer) error {
	return writeBytes(w, "parity", c.wire)
}

func (c *ParityCmd) String() string {
	if p, err := c.Parity(); err == nil {
		return fmt.Sprintf("SET-PARITY: %s", p)
	}
	return fmt.Sprintf("SET-PARITY: %d", c.wire)
}
