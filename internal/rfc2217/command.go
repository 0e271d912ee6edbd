package rfc2217

import (
	"fmt"
	"io"
)

// ControlCmd is one RFC 2217 COM-PORT-OPTION command. A command is either
// built from domain values for sending or produced by decoding a reply,
// and is immutable in both cases.
type ControlCmd interface {
	// Code is the wire command code: 0-12 for requests, 100-112 for responses.
	Code() byte
	// Kind is the command code with the response offset removed.
	Kind() Kind
	// IsResponse reports whether the code is a server-to-client code.
	IsResponse() bool
	// Encode writes the command payload (without option or command code).
	Encode(w io.Writer) error
	String() string
}

type controlCmd struct {
	code byte
}

func newControlCmd(code int) (controlCmd, error) {
	if (code < minClientCode || code > maxClientCode) && (code < minServerCode || code > maxServerCode) {
		return controlCmd{}, invalidArgument("command code %d outside valid ranges [%d,%d] and [%d,%d]",
			code, minClientCode, maxClientCode, minServerCode, maxServerCode)
	}
	return controlCmd{code: byte(code)}, nil
}

// mustControlCmd is used by constructors whose code is a package constant.
func mustControlCmd(code byte) controlCmd {
	c, err := newControlCmd(int(code))
	if err != nil {
		panic(err)
	}
	return c
}

func (c controlCmd) Code() byte { return c.code }

func (c controlCmd) Kind() Kind { return KindOf(c.code) }

func (c controlCmd) IsResponse() bool { return c.code >= minServerCode }

// writeBytes writes payload bytes with every IAC doubled. Sub-negotiation
// payloads are escaped here and nowhere else.
func writeBytes(w io.Writer, what string, p ...byte) error {
	if _, err := w.Write(escapeIAC(p)); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}

// readBytes reads n payload bytes, collapsing each IAC IAC pair into one.
func readBytes(r io.Reader, what string, n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	var b [1]byte
	next := func() error {
		_, err := io.ReadFull(r, b[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return malformed("truncated "+what, len(buf))
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", what, err)
		}
		return nil
	}
	for len(buf) < n {
		if err := next(); err != nil {
			return nil, err
		}
		if b[0] == IAC {
			if err := next(); err != nil {
				return nil, err
			}
			if b[0] != IAC {
				return nil, malformed("unescaped IAC in "+what, int(b[0]))
			}
		}
		buf = append(buf, b[0])
	}
	return buf, nil
}

func readByte(r io.Reader, what string) (byte, error) {
	buf, err := readBytes(r, what, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func escapeIAC(p []byte) []byte {
	out := make([]byte, 0, len(p)+1)
	for _, b := range p {
		if b == IAC {
			out = append(out, IAC)
		}
		out = append(out, b)
	}
	return out
}

// unescapeIAC collapses IAC IAC pairs. A lone IAC is kept.
func unescapeIAC(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		out = append(out, p[i])
		if p[i] == IAC && i+1 < len(p) && p[i+1] == IAC {
			i++
		}
	}
	return out
}
