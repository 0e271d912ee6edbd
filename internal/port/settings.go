package port

import (
	"fmt"
	"strconv"
	"strings"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

// Settings is the line configuration of a serial port.
type Settings struct {
	BaudRate    int
	DataBits    rfc2217.DataBits
	Parity      rfc2217.Parity
	StopBits    rfc2217.StopBits
	FlowControl rfc2217.FlowControl
}

// DefaultSettings returns 9600 8N1 without flow control.
func DefaultSettings() Settings {
	return Settings{
		BaudRate:    9600,
		DataBits:    rfc2217.DataBits8,
		Parity:      rfc2217.ParityNone,
		StopBits:    rfc2217.StopBits1,
		FlowControl: rfc2217.FlowNone,
	}
}

var parityChars = map[rfc2217.Parity]byte{
	rfc2217.ParityNone:  'N',
	rfc2217.ParityOdd:   'O',
	rfc2217.ParityEven:  'E',
	rfc2217.ParityMark:  'M',
	rfc2217.ParitySpace: 'S',
}

// ModeString returns mode string like "8N1", "7E2" or "8N1.5".
func (s Settings) ModeString() string {
	p, ok := parityChars[s.Parity]
	if !ok {
		p = '?'
	}
	return fmt.Sprintf("%d%c%s", s.DataBits, p, s.StopBits)
}

// String returns human-readable description
func (s Settings) String() string {
	return fmt.Sprintf("%d baud, %s, flow %s", s.BaudRate, s.ModeString(), s.FlowControl)
}

// ParseMode parses strings such as "8N1", "7e2" or "8N1.5".
func ParseMode(mode string) (rfc2217.DataBits, rfc2217.Parity, rfc2217.StopBits, error) {
	m := strings.ToUpper(strings.TrimSpace(mode))
	if len(m) < 3 {
		return 0, 0, 0, fmt.Errorf("%w: mode %q", rfc2217.ErrInvalidArgument, mode)
	}

	bits, err := strconv.Atoi(m[:1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: mode %q: data bits", rfc2217.ErrInvalidArgument, mode)
	}
	dataBits := rfc2217.DataBits(bits)
	if _, ok := rfc2217.DataBitsTable.Encode(dataBits); !ok {
		return 0, 0, 0, fmt.Errorf("%w: mode %q: %d data bits", rfc2217.ErrInvalidArgument, mode, bits)
	}

	parity := rfc2217.Parity(-1)
	for p, c := range parityChars {
		if c == m[1] {
			parity = p
		}
	}
	if parity < 0 {
		return 0, 0, 0, fmt.Errorf("%w: mode %q: parity %c", rfc2217.ErrInvalidArgument, mode, m[1])
	}

	var stopBits rfc2217.StopBits
	switch m[2:] {
	case "1":
		stopBits = rfc2217.StopBits1
	case "1.5":
		stopBits = rfc2217.StopBits1_5
	case "2":
		stopBits = rfc2217.StopBits2
	default:
		return 0, 0, 0, fmt.Errorf("%w: mode %q: stop bits %s", rfc2217.ErrInvalidArgument, mode, m[2:])
	}
	return dataBits, parity, stopBits, nil
}

// ParseFlowControl accepts none, rtscts, xonxoff and their -in variants.
// hardware and software are aliases.
func ParseFlowControl(s string) (rfc2217.FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return rfc2217.FlowNone, nil
	case "rtscts", "rts/cts", "hardware":
		return rfc2217.FlowRtsCtsInOut, nil
	case "rtscts-in", "rts/cts-in":
		return rfc2217.FlowRtsCtsIn, nil
	case "xonxoff", "xon/xoff", "software":
		return rfc2217.FlowXonXoffInOut, nil
	case "xonxoff-in", "xon/xoff-in":
		return rfc2217.FlowXonXoffIn, nil
	}
	return 0, fmt.Errorf("%w: flow control %q", rfc2217.ErrInvalidArgument, s)
}

// SetMode applies a mode string to s.
func (s *Settings) SetMode(mode string) error {
	dataBits, parity, stopBits, err := ParseMode(mode)
	if err != nil {
		return err
	}
	s.DataBits, s.Parity, s.StopBits = dataBits, parity, stopBits
	return nil
}

// Commands converts the settings to the RFC 2217 requests that apply them,
// in baud rate, data size, parity, stop size, flow control order.
func (s Settings) Commands() ([]rfc2217.ControlCmd, error) {
	baud, err := rfc2217.NewBaudRateCmd(s.BaudRate)
	if err != nil {
		return nil, err
	}
	dataSize, err := rfc2217.NewDataSizeCmd(s.DataBits)
	if err != nil {
		return nil, err
	}
	parity, err := rfc2217.NewParityCmd(s.Parity)
	if err != nil {
		return nil, err
	}
	stopSize, err := rfc2217.NewStopSizeCmd(s.StopBits)
	if err != nil {
		return nil, err
	}
	flow, err := rfc2217.NewFlowControlCmd(s.FlowControl)
	if err != nil {
		return nil, err
	}
	return []rfc2217.ControlCmd{baud, dataSize, parity, stopSize, flow}, nil
}
