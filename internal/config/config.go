// Package config builds the immutable Config record the core pipeline
// consumes, parsing the framing and flow-control mini-languages and
// validating flag combinations before any worker starts.
package config

import (
	"fmt"
	"strings"
)

// Parity is the per-character parity setting.
type Parity byte

const (
	ParityNone  Parity = 'N'
	ParityEven  Parity = 'E'
	ParityOdd   Parity = 'O'
	ParityMark  Parity = 'M'
	ParitySpace Parity = 'S'
)

// StopBits is the per-character stop-bit count. 1.5 stop bits is
// represented as StopBits15.
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits15
	StopBits2
)

// Framing is the data-bits/parity/stop-bits triple negotiated for a port.
type Framing struct {
	DataBits int
	Parity   Parity
	Stop     StopBits
}

// ParseFraming parses a "<DATABITS><PARITY><STOPBITS>" string such as
// "8N1" or "7E1.5". DataBits must be 5..8, Parity one of EMNOS
// (case-insensitive), and Stop one of 1, 1.5, 2.
func ParseFraming(s string) (Framing, error) {
	orig := s
	if len(s) < 3 {
		return Framing{}, fmt.Errorf("invalid framing %q: want <databits><parity><stopbits>, e.g. 8N1", orig)
	}
	databits := int(s[0] - '0')
	if databits < 5 || databits > 8 {
		return Framing{}, fmt.Errorf("invalid framing %q: data bits must be 5-8", orig)
	}
	parityByte := strings.ToUpper(string(s[1]))[0]
	parity := Parity(parityByte)
	switch parity {
	case ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace:
	default:
		return Framing{}, fmt.Errorf("invalid framing %q: parity must be one of E,M,N,O,S", orig)
	}
	stopStr := s[2:]
	var stop StopBits
	switch stopStr {
	case "1":
		stop = StopBits1
	case "1.5", "15":
		stop = StopBits15
	case "2":
		stop = StopBits2
	default:
		return Framing{}, fmt.Errorf("invalid framing %q: stop bits must be 1, 1.5, or 2", orig)
	}
	return Framing{DataBits: databits, Parity: parity, Stop: stop}, nil
}

// FlowControl is the tri-state (xonxoff, rtscts, dsrdtr) flow-control
// selection from spec §6's table.
type FlowControl struct {
	XonXoff bool
	RtsCts  bool
	DsrDtr  bool
}

// flowControlTable is the literal table from spec §6.
var flowControlTable = map[string]FlowControl{
	"NONE":   {false, false, false},
	"SW":     {true, false, false},
	"HW":     {false, true, false},
	"RTS":    {false, true, false},
	"CTS":    {false, true, false},
	"DTR":    {false, false, true},
	"DSR":    {false, false, true},
	"SW/HW":  {true, true, false},
	"SW/RTS": {true, true, false},
	"SW/CTS": {true, true, false},
	"SW/DTR": {true, false, true},
	"SW/DSR": {true, false, true},
	"ALL":    {true, true, true},
}

// ParseFlowControl resolves a flow-control method name, case-insensitively.
func ParseFlowControl(s string) (FlowControl, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		key = "NONE"
	}
	fc, ok := flowControlTable[key]
	if !ok {
		return FlowControl{}, fmt.Errorf("invalid flow control %q: use NONE, SW, HW/RTS/CTS, DTR/DSR, SW/HW, SW/DTR, or ALL", s)
	}
	return fc, nil
}

// TriState models an unset/on/off flag, used for --no-forwarding's
// counterpart and the timestamp switch.
type TriState int

const (
	Unset TriState = iota
	On
	Off
)

// Config is the immutable configuration built once at startup and shared
// (read-only) by every worker.
type Config struct {
	Port        string
	MitmPort    string // empty when not in MITM mode
	Baud        int
	Framing     Framing
	FlowControl FlowControl
	Encoding    string
	Input       string // "-" for stdin, else a file path
	Output      string // "-" for stdout, else a file path (append)
	Forwarding  TriState
	Timestamps  TriState
}

// Mitm reports whether MITM mode is configured.
func (c Config) Mitm() bool { return c.MitmPort != "" }

// ForwardingEnabled resolves the forwarding tri-state: on by default in
// MITM mode, forbidden (meaningless) otherwise.
func (c Config) ForwardingEnabled() bool {
	if !c.Mitm() {
		return false
	}
	if c.Forwarding == Off {
		return false
	}
	return true
}

// TimestampsEnabled resolves the timestamp tri-state. Per spec §9 this
// defaults to on in MITM mode and off otherwise — an intentional
// asymmetry carried over from the source, not a bug.
func (c Config) TimestampsEnabled() bool {
	switch c.Timestamps {
	case On:
		return true
	case Off:
		return false
	default:
		return c.Mitm()
	}
}

// Validate checks that baud is positive and the flag combinations that
// span multiple fields. Framing, flow control, and encoding are validated
// at the point they are parsed (ParseFraming/ParseFlowControl/codec.Lookup).
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d: must be positive", c.Baud)
	}
	if !c.Mitm() && c.Forwarding == Off {
		return fmt.Errorf("--no-forwarding requires -m/--mitm")
	}
	return nil
}

// MsgTimeoutSeconds is the aggregation window, (16*12)/baud seconds, per
// spec §4.5.
func (c Config) MsgTimeoutSeconds() float64 {
	return float64(16*12) / float64(c.Baud)
}

