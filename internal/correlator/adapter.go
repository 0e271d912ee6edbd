package correlator

import (
	"encoding/hex"
	"log"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

// Receiver accepts decoded responses.
type Receiver interface {
	OnResponseReceived(cmd rfc2217.ControlCmd)
}

// OptionAdapter turns raw COM-PORT-OPTION sub-negotiations into decoded
// responses for a Receiver.
type OptionAdapter struct {
	receiver Receiver
	onError  func(error)
	debug    bool
}

// NewOptionAdapter creates an adapter. onError, if not nil, is told about
// every inbound message that failed to decode.
func NewOptionAdapter(receiver Receiver, onError func(error), debug bool) *OptionAdapter {
	return &OptionAdapter{receiver: receiver, onError: onError, debug: debug}
}

// HandleSubnegotiation is the transport's sub-negotiation callback.
// Malformed messages come from the peer, so they are logged and dropped.
func (a *OptionAdapter) HandleSubnegotiation(data []int, length int) {
	if length < 0 || length > len(data) {
		length = len(data)
	}
	raw, err := rfc2217.FromUnsigned(data[:length])
	if err == nil {
		if a.debug {
			log.Printf("[rfc2217] received subnegotiation: %s", hex.EncodeToString(raw))
		}
		var cmd rfc2217.ControlCmd
		cmd, err = rfc2217.DecodeResponseBytes(raw)
		if err == nil {
			a.receiver.OnResponseReceived(cmd)
			return
		}
	}

	log.Printf("[rfc2217] dropping inbound message: %v", err)
	if a.onError != nil {
		a.onError(err)
	}
}
