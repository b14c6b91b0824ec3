// Package codec resolves named character encodings and performs the
// byte<->text conversions the command parser and hexdump formatter need.
// Decoding never fails: undecodable bytes are replaced, matching the
// behavior operators expect when staring at raw serial traffic.
package codec

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	xunicode "golang.org/x/text/encoding/unicode"
)

// DefaultName is the encoding used when no -e flag is given.
const DefaultName = "cp437"

// replacement is substituted for any byte sequence that does not decode
// cleanly under the configured encoding.
const replacement = '�'

// aliases covers the spellings operators actually type for encodings that
// ianaindex either doesn't know under that name or that deserve a shorter
// alias than its canonical MIME name.
var aliases = map[string]encoding.Encoding{
	"cp437":        charmap.CodePage437,
	"ibm437":       charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"ascii":        xunicode.UTF8,
	"utf-8":        xunicode.UTF8,
	"utf8":         xunicode.UTF8,
}

// Codec decodes and encodes bytes for a single named character encoding.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// Lookup resolves a character encoding by name, case-insensitively. An
// unrecognized name is a configuration error — this is the one place a
// bad -e value is caught, at startup, rather than failing silently deep in
// the pipeline.
func Lookup(name string) (*Codec, error) {
	if name == "" {
		name = DefaultName
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if enc, ok := aliases[key]; ok {
		return &Codec{name: name, enc: enc}, nil
	}
	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown character encoding %q", name)
	}
	return &Codec{name: name, enc: enc}, nil
}

// Name returns the configured encoding name, as given.
func (c *Codec) Name() string { return c.name }

// Decode converts bytes to text under the codec's encoding. It never
// fails: bytes that don't decode cleanly become U+FFFD.
func (c *Codec) Decode(b []byte) string {
	dec := c.enc.NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		// Fall back to a byte-at-a-time pass so a single bad byte doesn't
		// blank out an otherwise decodable chunk.
		var sb strings.Builder
		for _, bb := range b {
			s, derr := dec.String(string(bb))
			if derr != nil || s == "" {
				sb.WriteRune(replacement)
				continue
			}
			sb.WriteString(s)
		}
		return sb.String()
	}
	return string(out)
}

// Encode converts text to bytes under the codec's encoding, for quoted
// text typed at the operator prompt. Unlike Decode, this can fail: the
// configured encoding may not be able to represent every rune the
// operator typed (e.g. CP437 and a CJK character), and the caller treats
// that as a parse-adjacent error rather than silently dropping data.
func (c *Codec) Encode(s string) ([]byte, error) {
	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("cannot encode %q in %s: %w", s, c.name, err)
	}
	return []byte(out), nil
}

// IsPrintable reports whether r should be shown as itself in the hexdump
// sidebar. Controls, tabs, and any whitespace that moves the cursor
// (newlines, carriage returns, form feeds, vertical tabs) are excluded;
// everything else with a visible glyph is printable.
func IsPrintable(r rune) bool {
	if r == '�' {
		return false
	}
	if unicode.IsControl(r) {
		return false
	}
	if unicode.IsSpace(r) && r != ' ' {
		return false
	}
	return unicode.IsPrint(r)
}

// MakePrintable substitutes a single ASCII period for every rune that
// fails IsPrintable. It is idempotent: running it twice is a no-op on the
// second pass, since every remaining rune already passes IsPrintable.
func MakePrintable(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if IsPrintable(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
