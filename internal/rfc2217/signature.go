package rfc2217

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// SignatureCmd is SIGNATURE. The text travels as UTF-16BE with every IAC
// byte doubled. An empty signature asks the server for its own.
type SignatureCmd struct {
	controlCmd
	text string
}

// NewSignatureCmd builds a SIGNATURE request.
func NewSignatureCmd(text string) *SignatureCmd {
	return &SignatureCmd{controlCmd: mustControlCmd(SignatureC), text: text}
}

// DecodeSignature reads the rest of r as a SIGNATURE payload carrying the given code.
func DecodeSignature(code byte, r io.Reader) (*SignatureCmd, error) {
	base, err := newControlCmd(int(code))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	raw = unescapeIAC(raw)
	if len(raw)%2 != 0 {
		return nil, malformed("signature length", len(raw))
	}
	text, err := utf16BE.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrMalformedMessage, err)
	}
	return &SignatureCmd{controlCmd: base, text: string(text)}, nil
}

// Text returns the signature text.
func (c *SignatureCmd) Text() string { return c.text }

// IsQuery returns true if the command requests the server's signature.
func (c *SignatureCmd) IsQuery() bool { return c.text == "" }

func (c *SignatureCmd) Encode(w io.Writer) error {
	raw, err := utf16BE.NewEncoder().Bytes([]byte(c.text))
	if err != nil {
		return fmt.Errorf("encode signature: %w", err)
	}
	return writeBytes(w, "signature", raw...)
}

func (c *SignatureCmd) String() string {
	return fmt.Sprintf("SIGNATURE: %q", c.text)
}
