package rfc2217

import (
	"fmt"
	"io"
)

// DataSizeCmd is SET-DATASIZE. The payload is the number of data bits.
type DataSizeCmd struct {
	controlCmd
	wire byte
}

// NewDataSizeCmd builds a SET-DATASIZE request.
func NewDataSizeCmd(bits DataBits) (*DataSizeCmd, error) {
	wire, ok := DataBitsTable.Encode(bits)
	if !ok {
		return nil, invalidArgument("unsupported data bits %d", int(bits))
	}
	return &DataSizeCmd{controlCmd: mustControlCmd(SetDatasizeC), wire: wire}, nil
}

// DataSizeQuery asks the server for its current data size.
func DataSizeQuery() *DataSizeCmd {
	return &DataSizeCmd{controlCmd: mustControlCmd(SetDatasizeC)}
}

// DecodeDataSize reads a SET-DATASIZE payload carrying the given code.
func DecodeDataSize(code byte, r io.Reader) (*DataSizeCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	b, err := readByte(r, "data size")
	if err != nil {
		return nil, err
	}
	if b < 1 {
		return nil, malformed("data size", int(b))
	}
	if _, err := DataBitsTable.Decode(b); err != nil {
		return nil, err
	}
	return &DataSizeCmd{controlCmd: base, wire: b}, nil
}

// DataBits returns the decoded data size.
func (c *DataSizeCmd) DataBits() DataBits { return DataBits(c.wire) }

// IsQuery returns true if the command requests the current value.
func (c *DataSizeCmd) IsQuery() bool { return c.wire == 0 }

func (c *DataSizeCmd) Encode(w io.Writer) error {
	if c.wire != 0 && !DataBitsTable.Contains(c.wire) {
		return fmt.Errorf("%w: data size %d was never validated", ErrInternal, c.wire)
	}
	return writeBytes(w, "data size", c.wire)
}

func (c *DataSizeCmd) String() string {
	return fmt.Sprintf("SET-DATASIZE: %d bits", c.wire)
}
