// Package serialio adapts go.bug.st/serial to the core.SerialEndpoint
// interface, the way the teacher's main.go opens and reads a port
// directly — generalized here to honor the read-timeout/write-drain
// contract spec §4.1 requires of any endpoint.
package serialio

import (
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/hexterm/hexterm/internal/config"
	"github.com/hexterm/hexterm/internal/core"
)

// Endpoint wraps a go.bug.st/serial.Port. Write is mutex-guarded so a
// Port Reader may safely read one endpoint while writing its peer's
// Endpoint from a different goroutine, per spec §5's closing clause.
type Endpoint struct {
	port serial.Port
	mu   sync.Mutex
}

var _ core.SerialEndpoint = (*Endpoint)(nil)

func toMode(baud int, f config.Framing, fc config.FlowControl) *serial.Mode {
	mode := &serial.Mode{BaudRate: baud}

	switch f.DataBits {
	case 5, 6, 7, 8:
		mode.DataBits = f.DataBits
	default:
		mode.DataBits = 8
	}

	switch f.Parity {
	case config.ParityEven:
		mode.Parity = serial.EvenParity
	case config.ParityOdd:
		mode.Parity = serial.OddParity
	case config.ParityMark:
		mode.Parity = serial.MarkParity
	case config.ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}

	switch f.Stop {
	case config.StopBits15:
		mode.StopBits = serial.OnePointFiveStopBits
	case config.StopBits2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	return mode
}

// Open opens portName with the given baud/framing and configures the
// per-call read timeout derived from baud. Flow control is applied via
// SetRTS/SetDTR where go.bug.st/serial exposes it directly; xon/xoff is
// left to the device-level default since go.bug.st/serial negotiates it
// as part of the OS termios configuration rather than per-Mode field.
func Open(portName string, baud int, f config.Framing, fc config.FlowControl) (*Endpoint, error) {
	mode := toMode(baud, f, fc)
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(core.ReadTimeout(baud)); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}
	if fc.RtsCts {
		if err := port.SetRTS(true); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("enable RTS on %s: %w", portName, err)
		}
	}
	if fc.DsrDtr {
		if err := port.SetDTR(true); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("enable DTR on %s: %w", portName, err)
		}
	}
	return &Endpoint{port: port}, nil
}

// Read implements core.SerialEndpoint. go.bug.st/serial returns (0, nil)
// when SetReadTimeout's deadline elapses with nothing read, which is
// exactly the empty-chunk-not-error contract spec §4.1 requires.
func (e *Endpoint) Read(maxBytes int) ([]byte, error) {
	buf := make([]byte, maxBytes)
	n, err := e.port.Read(buf)
	if err != nil {
		if errors.Is(err, errReadTimeout) {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

// errReadTimeout is never actually returned by go.bug.st/serial (it
// signals timeout via n==0, err==nil) but is kept so Read's error
// handling stays correct if a future version of the driver changes that
// convention on some platform.
var errReadTimeout = errors.New("serial: read timeout")

// Write implements core.SerialEndpoint: full write, then drain.
func (e *Endpoint) Write(b []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for total < len(b) {
		n, err := e.port.Write(b[total:])
		if err != nil {
			return fmt.Errorf("write serial port: %w", err)
		}
		total += n
	}
	return e.port.Drain()
}

// Close implements core.SerialEndpoint.
func (e *Endpoint) Close() error { return e.port.Close() }
