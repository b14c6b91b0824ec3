// Package hexdump renders up to 16 bytes as one canonical hex+ASCII line.
package hexdump

import (
	"fmt"
	"strings"

	"github.com/hexterm/hexterm/internal/codec"
)

// MaxWidth is the maximum number of data bytes a single line can show.
const MaxWidth = 16

const halfWidth = 8

// halfColumns is the visible width of one hex half: 8 bytes, each "HH "
// except the last which has no trailing space, so 8*3-1 = 23... but the
// reference layout pads to 24 so the separating space before the second
// half lines up uniformly even when the half is short.
const halfColumns = 24

// Format turns 1..16 bytes into one canonical line, as described in the
// spec: two 24-column hex halves separated by a space, then "|", the
// decoded+printable-filtered sidebar padded to 16 columns, then "|".
// Format panics if given zero or more than MaxWidth bytes — callers
// (the aggregator) never do either.
func Format(data []byte, dec *codec.Codec) string {
	n := len(data)
	if n == 0 || n > MaxWidth {
		panic(fmt.Sprintf("hexdump.Format: got %d bytes, want 1..%d", n, MaxWidth))
	}

	var sb strings.Builder
	sb.WriteString(hexHalf(data, 0, halfWidth))
	sb.WriteByte(' ')
	sb.WriteString(hexHalf(data, halfWidth, MaxWidth))
	// Each half is always padded out to halfColumns regardless of its
	// content length, so the trailing space before the sidebar is
	// already part of that padding — appending another one here would
	// double it.
	sb.WriteByte('|')

	sidebar := codec.MakePrintable(dec.Decode(data))
	sb.WriteString(padRight(sidebar, MaxWidth))
	sb.WriteByte('|')

	return sb.String()
}

// hexHalf formats data[lo:min(hi,len(data))] as uppercase hex bytes
// separated by single spaces, right-padded with spaces to halfColumns.
func hexHalf(data []byte, lo, hi int) string {
	hi = minInt(hi, len(data))

	var sb strings.Builder
	for i := lo; i < hi; i++ {
		if i > lo {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", data[i])
	}
	out := sb.String()
	if len(out) < halfColumns {
		out += strings.Repeat(" ", halfColumns-len(out))
	}
	return out
}

func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return string([]rune(s)[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
