package rfc2217

import (
	"fmt"
	"io"
)

// FlowControlCmd is SET-CONTROL restricted to the flow control settings.
type FlowControlCmd struct {
	controlCmd
	wire byte
}

// NewFlowControlCmd builds a SET-CONTROL request. Out-only modes are
// rejected: only the combined in-out variant can be requested.
func NewFlowControlCmd(f FlowControl) (*FlowControlCmd, error) {
	if f == FlowRtsCtsOut || f == FlowXonXoffOut {
		return nil, invalidArgument("flow control %s cannot be requested alone, use the in-out mode", f)
	}
	wire, ok := FlowControlTable.Encode(f)
	if !ok {
		return nil, invalidArgument("unsupported flow control %d", int(f))
	}
	return &FlowControlCmd{controlCmd: mustControlCmd(SetControlC), wire: wire}, nil
}

// FlowControlQuery asks the server for its current flow control setting.
func FlowControlQuery() *FlowControlCmd {
	return &FlowControlCmd{controlCmd: mustControlCmd(SetControlC)}
}

// DecodeFlowControl reads a SET-CONTROL payload carrying the given code.
func DecodeFlowControl(code byte, r io.Reader) (*FlowControlCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	b, err := readByte(r, "flow control")
	if err != nil {
		return nil, err
	}
	if _, err := FlowControlTable.Decode(b); err != nil {
		return nil, err
	}
	return &FlowControlCmd{controlCmd: base, wire: b}, nil
}

// FlowControl returns the decoded mode.
func (c *FlowControlCmd) FlowControl() FlowControl {
	f, _ := FlowControlTable.Decode(c.wire)
	return f
}

// IsQuery returns true if the command requests the current value.
func (c *FlowControlCmd) IsQuery() bool { return c.wire == 0 }

func (c *FlowControlCmd) Encode(w io.Writer) error {
	if c.wire != 0 && !FlowControlTable.Contains(c.wire) {
		return fmt.Errorf("%w: flow control %d was never validated", ErrInternal, c.wire)
	}
	return writeBytes(w, "flow control", c.wire)
}

func (c *FlowControlCmd) String() string {
	if c.wire == 0 {
		return "SET-CONTROL: query"
	}
	return fmt.Sprintf("SET-CONTROL: %s", c.FlowControl())
}
