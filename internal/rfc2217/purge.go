package rfc2217

import (
	"fmt"
	"io"
)

// PurgeDataCmd is PURGE-DATA.
type PurgeDataCmd struct {
	controlCmd
	wire byte
}

// NewPurgeDataCmd builds a PURGE-DATA request.
func NewPurgeDataCmd(target PurgeTarget) (*PurgeDataCmd, error) {
	wire, ok := PurgeTable.Encode(target)
	if !ok {
		return nil, invalidArgument("unsupported purge target %d", int(target))
	}
	return &PurgeDataCmd{controlCmd: mustControlCmd(PurgeDataC), wire: wire}, nil
}

// DecodePurgeData reads a PURGE-DATA payload carrying the given code.
func DecodePurgeData(code byte, r io.Reader) (*PurgeDataCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	b, err := readByte(r, "purge target")
	if err != nil {
		return nil, err
	}
	if _, err := PurgeTable.Decode(b); err != nil {
		return nil, err
	}
	return &PurgeDataCmd{controlCmd: base, wire: b}, nil
}

// Target returns the purged buffer.
func (c *PurgeDataCmd) Target() PurgeTarget {
	t, _ := PurgeTable.Decode(c.wire)
	return t
}

func (c *PurgeDataCmd) Encode(w io.Writer) error {
	return writeBytes(w, "purge target", c.wire)
}

func (c *PurgeDataCmd) String() string {
	return fmt.Sprintf("PURGE-DATA: %s", c.Target())
}
