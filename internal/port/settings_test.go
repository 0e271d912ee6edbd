package port

import (
	"bytes"
	"errors"
	"testing"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		mode     string
		wantData rfc2217.DataBits
		wantPar  rfc2217.Parity
		wantStop rfc2217.StopBits
		wantErr  bool
	}{
		{mode: "8N1", wantData: 8, wantPar: rfc2217.ParityNone, wantStop: rfc2217.StopBits1},
		{mode: "7e2", wantData: 7, wantPar: rfc2217.ParityEven, wantStop: rfc2217.StopBits2},
		{mode: " 5O1.5 ", wantData: 5, wantPar: rfc2217.ParityOdd, wantStop: rfc2217.StopBits1_5},
		{mode: "8M1", wantData: 8, wantPar: rfc2217.ParityMark, wantStop: rfc2217.StopBits1},
		{mode: "9S2", wantData: 9, wantPar: rfc2217.ParitySpace, wantStop: rfc2217.StopBits2},
		{mode: "4N1", wantErr: true},
		{mode: "8X1", wantErr: true},
		{mode: "8N3", wantErr: true},
		{mode: "8N", wantErr: true},
		{mode: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			data, par, stop, err := ParseMode(tt.mode)
			if tt.wantErr {
				if !errors.Is(err, rfc2217.ErrInvalidArgument) {
					t.Fatalf("expected invalid argument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if data != tt.wantData || par != tt.wantPar || stop != tt.wantStop {
				t.Errorf("got %d/%s/%s, want %d/%s/%s", data, par, stop, tt.wantData, tt.wantPar, tt.wantStop)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		s    Settings
		want string
	}{
		{DefaultSettings(), "8N1"},
		{Settings{DataBits: 7, Parity: rfc2217.ParityEven, StopBits: rfc2217.StopBits2}, "7E2"},
		{Settings{DataBits: 8, Parity: rfc2217.ParityOdd, StopBits: rfc2217.StopBits1_5}, "8O1.5"},
		{Settings{DataBits: 8, Parity: rfc2217.Parity(9), StopBits: rfc2217.StopBits1}, "8?1"},
	}
	for _, tt := range tests {
		if got := tt.s.ModeString(); got != tt.want {
			t.Errorf("ModeString() = %q, want %q", got, tt.want)
		}
	}

	if got := DefaultSettings().String(); got != "9600 baud, 8N1, flow NONE" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseFlowControl(t *testing.T) {
	tests := map[string]rfc2217.FlowControl{
		"":           rfc2217.FlowNone,
		"none":       rfc2217.FlowNone,
		"RTSCTS":     rfc2217.FlowRtsCtsInOut,
		"hardware":   rfc2217.FlowRtsCtsInOut,
		"rtscts-in":  rfc2217.FlowRtsCtsIn,
		"xon/xoff":   rfc2217.FlowXonXoffInOut,
		"xonxoff-in": rfc2217.FlowXonXoffIn,
	}
	for in, want := range tests {
		got, err := ParseFlowControl(in)
		if err != nil || got != want {
			t.Errorf("ParseFlowControl(%q) = %s, %v; want %s", in, got, err, want)
		}
	}

	if _, err := ParseFlowControl("dtrdsr"); !errors.Is(err, rfc2217.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestSettingsCommands(t *testing.T) {
	s := Settings{
		BaudRate:    2400,
		DataBits:    8,
		Parity:      rfc2217.ParityEven,
		StopBits:    rfc2217.StopBits1,
		FlowControl: rfc2217.FlowRtsCtsInOut,
	}
	cmds, err := s.Commands()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]int{
		{44, 1, 0x00, 0x00, 0x09, 0x60},
		{44, 2, 8},
		{44, 3, 3},
		{44, 4, 1},
		{44, 5, 3},
	}
	if len(cmds) != len(want) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(want))
	}
	for i, cmd := range cmds {
		got, err := rfc2217.EncodeRequest(cmd)
		if err != nil {
			t.Fatalf("encode %s: %v", cmd, err)
		}
		if !equalInts(got, want[i]) {
			t.Errorf("command %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestSettingsCommandsRejects(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
	}{
		{"zero baud", Settings{BaudRate: 0, DataBits: 8, Parity: rfc2217.ParityNone}},
		{"bad data bits", Settings{BaudRate: 9600, DataBits: 4}},
		{"out-only flow", Settings{BaudRate: 9600, DataBits: 8, FlowControl: rfc2217.FlowXonXoffOut}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.s.Commands(); !errors.Is(err, rfc2217.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestFindVCOMSync(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantBaud int
		wantMode string
		wantIdx  int
	}{
		{
			name:     "2400 8N1",
			data:     []byte{0x55, 0xAA, 0x55, 0x00, 0x09, 0x60, 0x03, 0x6C},
			wantBaud: 2400,
			wantMode: "8N1",
		},
		{
			name:     "9600 8E1",
			data:     []byte{0x55, 0xAA, 0x55, 0x00, 0x25, 0x80, 0x1B, 0xC0},
			wantBaud: 9600,
			wantMode: "8E1",
		},
		{
			name:     "115200 8N1",
			data:     []byte{0x55, 0xAA, 0x55, 0x01, 0xC2, 0x00, 0x03, 0xC6},
			wantBaud: 115200,
			wantMode: "8N1",
		},
		{
			name:     "after leading data",
			data:     []byte{'a', 'b', 0x55, 0xAA, 0x55, 0x00, 0x01, 0x2C, 0x1B, 0x48},
			wantBaud: 300,
			wantMode: "8E1",
			wantIdx:  2,
		},
		{
			name:    "too short",
			data:    []byte{0x55, 0xAA, 0x55, 0x00},
			wantIdx: -1,
		},
		{
			name:    "wrong header",
			data:    []byte{0x55, 0xAA, 0x00, 0x00, 0x25, 0x80, 0x03, 0xA8},
			wantIdx: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, idx := FindVCOMSync(tt.data)
			if idx != tt.wantIdx {
				t.Fatalf("idx = %d, want %d", idx, tt.wantIdx)
			}
			if idx < 0 {
				return
			}
			if s.BaudRate != tt.wantBaud {
				t.Errorf("BaudRate = %d, want %d", s.BaudRate, tt.wantBaud)
			}
			if s.ModeString() != tt.wantMode {
				t.Errorf("ModeString() = %s, want %s", s.ModeString(), tt.wantMode)
			}
		})
	}
}

func TestEncodeVCOMSync(t *testing.T) {
	s := DefaultSettings()
	s.Parity = rfc2217.ParityEven
	want := []byte{0x55, 0xAA, 0x55, 0x00, 0x25, 0x80, 0x1B, 0xC0}
	if got := EncodeVCOMSync(s); !bytes.Equal(got, want) {
		t.Errorf("EncodeVCOMSync = % X, want % X", got, want)
	}

	s = Settings{BaudRate: 19200, DataBits: 7, Parity: rfc2217.ParitySpace, StopBits: rfc2217.StopBits2}
	back, idx := FindVCOMSync(EncodeVCOMSync(s))
	if idx != 0 || back != s {
		t.Errorf("round trip = %+v at %d, want %+v", back, idx, s)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
