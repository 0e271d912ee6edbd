package rfc2217

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
)

// EncodeRequest frames cmd as [COM-PORT-OPTION, code, payload...] in the
// unsigned form expected by the transport's sub-negotiation primitive.
func EncodeRequest(cmd ControlCmd) ([]int, error) {
	if cmd == nil {
		return nil, invalidArgument("command is nil")
	}
	var buf bytes.Buffer
	buf.WriteByte(ComPortOption)
	buf.WriteByte(cmd.Code())
	if err := cmd.Encode(&buf); err != nil {
		return nil, err
	}
	return ToUnsigned(buf.Bytes()), nil
}

// decodeFunc decodes the payload of one command kind.
type decodeFunc func(code byte, r io.Reader) (ControlCmd, error)

func adapt[C ControlCmd](f func(byte, io.Reader) (C, error)) decodeFunc {
	return func(code byte, r io.Reader) (ControlCmd, error) {
		cmd, err := f(code, r)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	}
}

// responseDecoders covers every server-to-client code this client understands.
var responseDecoders = map[byte]decodeFunc{
	SignatureS:   adapt(DecodeSignature),
	SetBaudrateS: adapt(DecodeBaudRate),
	SetDatasizeS: adapt(DecodeDataSize),
	SetParityS:   adapt(DecodeParity),
	SetStopSizeS: adapt(DecodeStopSize),
	SetControlS:  adapt(DecodeFlowControl),
	PurgeDataS:   adapt(DecodePurgeData),
}

// DecodeResponse reads one framed server response from r.
func DecodeResponse(r io.Reader) (ControlCmd, error) {
	option, err := readByte(r, "option")
	if err != nil {
		return nil, err
	}
	if option != ComPortOption {
		return nil, malformed("unexpected option", int(option))
	}
	code, err := readByte(r, "command code")
	if err != nil {
		return nil, err
	}
	decode, ok := responseDecoders[code]
	if !ok {
		return nil, &UnsupportedCommandError{Code: code}
	}
	return decode(code, r)
}

// DecodeResponseBytes decodes a complete sub-negotiation payload.
func DecodeResponseBytes(data []byte) (ControlCmd, error) {
	cmd, err := DecodeResponse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", hex.EncodeToString(data), err)
	}
	return cmd, nil
}
