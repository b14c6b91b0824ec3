package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hexterm/hexterm/internal/codec"
	"github.com/hexterm/hexterm/internal/parser"
)

const helpText = `hexterm commands:
  <hex/quoted bytes>  write bytes to DCE, e.g. 48 "hi" 0a
  t <hex/quoted bytes> write bytes to DTE (MITM mode only)
  w [seconds]         sleep (default 1s), then print done.
  h, ?                show this help
  q, <empty line>     quit
`

// Dispatcher is C6: it reads operator lines and routes parsed bytes to
// the DCE or DTE writer, recognizing the control-verb table from spec
// §4.4 before handing anything to the Command Parser.
type Dispatcher struct {
	io       LocalIO
	enc      *codec.Codec
	dce      SerialEndpoint
	dte      SerialEndpoint // nil when not in MITM mode
	shutdown *Latch
}

// NewDispatcher builds a Local Dispatcher. dte may be nil.
func NewDispatcher(io LocalIO, enc *codec.Codec, dce, dte SerialEndpoint, shutdown *Latch) *Dispatcher {
	return &Dispatcher{io: io, enc: enc, dce: dce, dte: dte, shutdown: shutdown}
}

// Run executes the loop in spec §4.7 until shutdown, EOF, or "quit".
func (d *Dispatcher) Run() {
	defer d.shutdown.Set()
	for !d.shutdown.IsSet() {
		line, err := d.io.ReadLine()
		if err != nil || line == "" {
			return
		}
		if d.isQuit(line) {
			return
		}
		d.dispatch(line)
	}
}

func (d *Dispatcher) isQuit(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return true
	}
	return unicode.ToUpper(rune(trimmed[0])) == 'Q'
}

func (d *Dispatcher) dispatch(line string) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return
	}
	verb := unicode.ToUpper(rune(trimmed[0]))
	rest := trimmed[1:]

	switch verb {
	case 'H', '?':
		d.io.WriteLine(helpText)
	case 'W':
		d.doWait(rest)
	case 'T':
		if d.dte == nil {
			d.io.WriteLine("DTE is not available (not running in MITM mode)")
			return
		}
		d.writeParsed(rest, d.dte)
	default:
		d.writeParsed(line, d.dce)
	}
}

func (d *Dispatcher) doWait(rest string) {
	secs := 1.0
	arg := strings.TrimSpace(rest)
	if arg != "" {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			d.io.WriteLine(fmt.Sprintf("invalid wait duration %q", arg))
			return
		}
		secs = v
	}
	time.Sleep(time.Duration(secs * float64(time.Second)))
	d.io.WriteLine("done.")
}

func (d *Dispatcher) writeParsed(line string, endpoint SerialEndpoint) {
	b, err := parser.Parse(line, d.enc)
	if err != nil {
		d.io.WriteLine(err.Error())
		return
	}
	if len(b) == 0 {
		return
	}
	if err := endpoint.Write(b); err != nil {
		d.io.WriteLine(fmt.Sprintf("write failed: %v", err))
	}
}
