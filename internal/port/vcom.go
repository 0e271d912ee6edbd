package port

import (
	"bytes"
	"log"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

// USR-VCOM virtual COM drivers announce line changes in-band with an
// 8-byte sync packet: 55 AA 55 [baud_hi] [baud_mid] [baud_lo] [param] [checksum].
const VCOMSyncLen = 8

var vcomHeader = []byte{0x55, 0xAA, 0x55}

var vcomParity = [4]rfc2217.Parity{
	rfc2217.ParityOdd,
	rfc2217.ParityEven,
	rfc2217.ParityMark,
	rfc2217.ParitySpace,
}

// FindVCOMSync looks for a USR-VCOM sync packet in data. It returns the
// decoded settings (flow control left as none) and the packet offset, or
// -1 if data holds no complete packet.
func FindVCOMSync(data []byte) (Settings, int) {
	idx := bytes.Index(data, vcomHeader)
	if idx < 0 || len(data)-idx < VCOMSyncLen {
		return Settings{}, -1
	}
	pkt := data[idx : idx+VCOMSyncLen]

	// param bits: 1-0 data bits - 5, 2 two stop bits, 3 parity on, 5-4 parity type
	param := pkt[6]
	s := Settings{
		BaudRate:    int(pkt[3])<<16 | int(pkt[4])<<8 | int(pkt[5]),
		DataBits:    rfc2217.DataBits(5 + int(param&0x03)),
		Parity:      rfc2217.ParityNone,
		StopBits:    rfc2217.StopBits1,
		FlowControl: rfc2217.FlowNone,
	}
	if param&0x04 != 0 {
		s.StopBits = rfc2217.StopBits2
	}
	if param&0x08 != 0 {
		s.Parity = vcomParity[(param>>4)&0x03]
	}

	if sum := pkt[3] + pkt[4] + pkt[5] + pkt[6]; sum != pkt[7] {
		log.Printf("[vcom] checksum mismatch: got %02X, expected %02X", pkt[7], sum)
	}
	return s, idx
}

// EncodeVCOMSync builds the sync packet for s.
func EncodeVCOMSync(s Settings) []byte {
	param := byte(int(s.DataBits)-5) & 0x03
	if s.StopBits == rfc2217.StopBits2 {
		param |= 0x04
	}
	for i, p := range vcomParity {
		if p == s.Parity {
			param |= 0x08 | byte(i)<<4
		}
	}
	pkt := append([]byte{}, vcomHeader...)
	pkt = append(pkt, byte(s.BaudRate>>16), byte(s.BaudRate>>8), byte(s.BaudRate), param)
	return append(pkt, pkt[3]+pkt[4]+pkt[5]+pkt[6])
}
