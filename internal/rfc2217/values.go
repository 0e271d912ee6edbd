package rfc2217

import "fmt"

// DataBits is the number of data bits per character.
type DataBits int

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
	DataBits9 DataBits = 9
)

// Parity is the serial line parity mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "NONE"
	case ParityOdd:
		return "ODD"
	case ParityEven:
		return "EVEN"
	case ParityMark:
		return "MARK"
	case ParitySpace:
		return "SPACE"
	default:
		return fmt.Sprintf("PARITY(%d)", int(p))
	}
}

// StopBits is the number of stop bits.
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits1_5
	StopBits2
)

func (s StopBits) String() string {
	switch s {
	case StopBits1:
		return "1"
	case StopBits1_5:
		return "1.5"
	case StopBits2:
		return "2"
	default:
		return fmt.Sprintf("STOPBITS(%d)", int(s))
	}
}

// FlowControl is the serial line flow control mode.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowRtsCtsIn
	FlowRtsCtsOut
	FlowRtsCtsInOut
	FlowXonXoffIn
	FlowXonXoffOut
	FlowXonXoffInOut
)

func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "NONE"
	case FlowRtsCtsIn:
		return "RTS/CTS-IN"
	case FlowRtsCtsOut:
		return "RTS/CTS-OUT"
	case FlowRtsCtsInOut:
		return "RTS/CTS"
	case FlowXonXoffIn:
		return "XON/XOFF-IN"
	case FlowXonXoffOut:
		return "XON/XOFF-OUT"
	case FlowXonXoffInOut:
		return "XON/XOFF"
	default:
		return fmt.Sprintf("FLOW(%d)", int(f))
	}
}

// PurgeTarget selects which buffer a PURGE-DATA command flushes.
type PurgeTarget int

const (
	PurgeReceive PurgeTarget = iota
	PurgeTransmit
	PurgeBoth
)

func (p PurgeTarget) String() string {
	switch p {
	case PurgeReceive:
		return "RX"
	case PurgeTransmit:
		return "TX"
	case PurgeBoth:
		return "RX+TX"
	default:
		return fmt.Sprintf("PURGE(%d)", int(p))
	}
}

// Wire tables
var (
	DataBitsTable = NewCodeTable[DataBits]("data size").
		Add(DataBits5, 5).
		Add(DataBits6, 6).
		Add(DataBits7, 7).
		Add(DataBits8, 8).
		Add(DataBits9, 9)

	ParityTable = NewCodeTable[Parity]("parity").
		Add(ParityNone, 1).
		Add(ParityOdd, 2).
		Add(ParityEven, 3).
		Add(ParityMark, 4).
		Add(ParitySpace, 5)

	StopBitsTable = NewCodeTable[StopBits]("stop size").
		Add(StopBits1, 1).
		Add(StopBits2, 2).
		Add(StopBits1_5, 3)

	// Out-only modes share the in-out wire byte; the in-out value is
	// registered first so it is what a reply decodes to.
	FlowControlTable = NewCodeTable[FlowControl]("flow control").
		Add(FlowNone, 1).
		Add(FlowXonXoffInOut, 2).
		Add(FlowXonXoffOut, 2).
		Add(FlowRtsCtsInOut, 3).
		Add(FlowRtsCtsOut, 3).
		Add(FlowXonXoffIn, 15).
		Add(FlowRtsCtsIn, 16)

	PurgeTable = NewCodeTable[PurgeTarget]("purge target").
		Add(PurgeReceive, 1).
		Add(PurgeTransmit, 2).
		Add(PurgeBoth, 3)
)
