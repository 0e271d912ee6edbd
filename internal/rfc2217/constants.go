package rfc2217

// Telnet protocol constants
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	GA   byte = 249 // Go Ahead
	NOP  byte = 241 // No Operation
	SE   byte = 240 // Subnegotiation End
)

// Telnet options negotiated by the client
const (
	TransmitBinaryOption  byte = 0
	SuppressGoAheadOption byte = 3
	ComPortOption         byte = 44 // COM-PORT-OPTION
)

// Client to server command codes
const (
	SignatureC   byte = 0
	SetBaudrateC byte = 1
	SetDatasizeC byte = 2
	SetParityC   byte = 3
	SetStopSizeC byte = 4
	SetControlC  byte = 5
	PurgeDataC   byte = 12
)

// Server to client command codes (+100)
const (
	SignatureS   byte = 100
	SetBaudrateS byte = 101
	SetDatasizeS byte = 102
	SetParityS   byte = 103
	SetStopSizeS byte = 104
	SetControlS  byte = 105
	PurgeDataS   byte = 112
)

// ServerResponseOffset is added to a request code to form its response code.
const ServerResponseOffset = 100

// Valid command code ranges
const (
	minClientCode = 0
	maxClientCode = 12
	minServerCode = 100
	maxServerCode = 112
)

// Kind identifies a control command independent of its direction.
type Kind byte

const (
	KindSignature   = Kind(SignatureC)
	KindBaudRate    = Kind(SetBaudrateC)
	KindDataSize    = Kind(SetDatasizeC)
	KindParity      = Kind(SetParityC)
	KindStopSize    = Kind(SetStopSizeC)
	KindFlowControl = Kind(SetControlC)
	KindPurgeData   = Kind(PurgeDataC)
)

// KindOf maps a request or response command code to its kind.
func KindOf(code byte) Kind {
	if code >= ServerResponseOffset {
		return Kind(code - ServerResponseOffset)
	}
	return Kind(code)
}

func (k Kind) String() string {
	switch k {
	case KindSignature:
		return "SIGNATURE"
	case KindBaudRate:
		return "SET-BAUDRATE"
	case KindDataSize:
		return "SET-DATASIZE"
	case KindParity:
		return "SET-PARITY"
	case KindStopSize:
		return "SET-STOPSIZE"
	case KindFlowControl:
		return "SET-CONTROL"
	case KindPurgeData:
		return "PURGE-DATA"
	default:
		return "UNKNOWN"
	}
}
