// Package aggregator implements the time- and length-bounded line
// aggregator (C4): it buffers DataRead records from one Port Reader and
// emits canonical hexdump lines to the local sink.
package aggregator

import (
	"fmt"
	"time"

	"github.com/hexterm/hexterm/internal/codec"
	"github.com/hexterm/hexterm/internal/hexdump"
)

// DataRead is one timestamped chunk of bytes read from a serial endpoint.
type DataRead struct {
	T time.Time
	B []byte
}

// Sink receives the finished hexdump lines. It must serialize concurrent
// writers at line granularity; internal/localio provides the production
// implementation.
type Sink interface {
	WriteLine(line string)
}

// Aggregator buffers DataRead records for one direction and emits
// hexdump lines per spec §4.5.
type Aggregator struct {
	prefix     string
	codec      *codec.Codec
	msgTimeout time.Duration
	timestamps bool
	start      time.Time // process start time, for the timestamp prefix
	sink       Sink

	buf []byte
	t0  time.Time
}

// New builds an Aggregator. prefix is the direction label ("T <- C",
// "T -> C", or "" in single-port mode). start is the process start time
// used as the timestamp-prefix epoch.
func New(prefix string, dec *codec.Codec, baud int, timestamps bool, start time.Time, sink Sink) *Aggregator {
	msgTimeout := time.Duration(float64(16*12) / float64(baud) * float64(time.Second))
	return &Aggregator{
		prefix:     prefix,
		codec:      dec,
		msgTimeout: msgTimeout,
		timestamps: timestamps,
		start:      start,
		sink:       sink,
	}
}

// Run drains ch until it is closed, then flushes any residual buffered
// bytes and returns. This is the whole of C4's algorithm from spec §4.5:
// wait without a deadline while empty, wait with a msg_timeout deadline
// while non-empty, and emit whenever the buffer reaches 16 bytes or the
// deadline fires.
func (a *Aggregator) Run(ch <-chan DataRead) {
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	defer stopTimer()

	for {
		if len(a.buf) == 0 {
			rec, ok := <-ch
			if !ok {
				return
			}
			a.onRecord(rec)
			continue
		}

		if timer == nil {
			d := time.Until(a.t0.Add(a.msgTimeout))
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case rec, ok := <-ch:
			if !ok {
				a.flushAll()
				return
			}
			// t0 may have just moved (a full chunk was emitted inside
			// onRecord), so the pending timer's deadline is stale. Drop
			// it and let the next iteration arm a fresh one against the
			// current t0.
			stopTimer()
			a.onRecord(rec)
		case now := <-timerC:
			stopTimer()
			a.onTimeout(now)
		}
	}
}

func (a *Aggregator) onRecord(rec DataRead) {
	if len(a.buf) == 0 {
		a.t0 = rec.T
	}
	a.buf = append(a.buf, rec.B...)
	if len(a.buf) >= hexdump.MaxWidth {
		a.emitChunks(rec.T)
	}
}

func (a *Aggregator) onTimeout(now time.Time) {
	if len(a.buf) == 0 {
		return
	}
	if len(a.buf) >= hexdump.MaxWidth || now.Sub(a.t0) > a.msgTimeout {
		a.emitChunks(now)
	}
}

// emitChunks emits every complete or timed-out line currently available:
// full 16-byte groups first, then — if the remainder is still non-empty
// and we got here via a length trigger rather than timeout — leaves the
// remainder buffered for the next deadline.
func (a *Aggregator) emitChunks(now time.Time) {
	for len(a.buf) >= hexdump.MaxWidth {
		a.emit(a.buf[:hexdump.MaxWidth], a.t0)
		a.buf = a.buf[hexdump.MaxWidth:]
		if len(a.buf) > 0 {
			a.t0 = now
		}
	}
	if len(a.buf) > 0 && now.Sub(a.t0) > a.msgTimeout {
		a.emit(a.buf, a.t0)
		a.buf = nil
	}
}

func (a *Aggregator) flushAll() {
	for len(a.buf) > 0 {
		n := len(a.buf)
		if n > hexdump.MaxWidth {
			n = hexdump.MaxWidth
		}
		a.emit(a.buf[:n], a.t0)
		a.buf = a.buf[n:]
	}
}

func (a *Aggregator) emit(chunk []byte, t0 time.Time) {
	line := hexdump.Format(chunk, a.codec)
	var out string
	if a.timestamps {
		out = fmt.Sprintf("%012.6f %s: %s", t0.Sub(a.start).Seconds(), a.prefix, line)
	} else if a.prefix != "" {
		out = fmt.Sprintf("%s: %s", a.prefix, line)
	} else {
		out = line
	}
	a.sink.WriteLine(out)
}
