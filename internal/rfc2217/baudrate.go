package rfc2217

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// BaudRateCmd is SET-BAUDRATE. The payload is a 4-byte big-endian rate.
type BaudRateCmd struct {
	controlCmd
	rate uint32
}

// NewBaudRateCmd builds a SET-BAUDRATE request for rate (>= 1).
func NewBaudRateCmd(rate int) (*BaudRateCmd, error) {
	if rate < 1 || int64(rate) > math.MaxUint32 {
		return nil, invalidArgument("baud rate %d out of range", rate)
	}
	return &BaudRateCmd{controlCmd: mustControlCmd(SetBaudrateC), rate: uint32(rate)}, nil
}

// BaudRateQuery asks the server for its current baud rate.
func BaudRateQuery() *BaudRateCmd {
	return &BaudRateCmd{controlCmd: mustControlCmd(SetBaudrateC)}
}

// DecodeBaudRate reads a SET-BAUDRATE payload carrying the given code.
func DecodeBaudRate(code byte, r io.Reader) (*BaudRateCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	buf, err := readBytes(r, "baud rate", 4)
	if err != nil {
		return nil, err
	}
	rate := binary.BigEndian.Uint32(buf)
	if rate < 1 || rate > math.MaxInt32 {
		return nil, malformed("baud rate", int(int32(rate)))
	}
	return &BaudRateCmd{controlCmd: base, rate: rate}, nil
}

// BaudRate returns the rate; 0 for a query.
func (c *BaudRateCmd) BaudRate() int { return int(c.rate) }

// IsQuery returns true if the command requests the current value.
func (c *BaudRateCmd) IsQuery() bool { return c.rate == 0 }

func (c *BaudRateCmd) Encode(w io.Writer) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], c.rate)
	return writeBytes(w, "baud rate", buf[:]...)
}

func (c *BaudRateCmd) String() string {
	return fmt.Sprintf("SET-BAUDRATE: %d", c.rate)
}
