// Package parser turns one operator-typed line into wire bytes, mixing
// hex-pair tokens and single/double-quoted text per the hexterm command
// grammar.
package parser

import (
	"errors"
	"fmt"

	"github.com/hexterm/hexterm/internal/codec"
)

// ParseError reports a malformed command line. The Local Dispatcher
// prints it to the local sink and drops the command; it never terminates
// the program.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

func parseErrorf(format string, args ...any) error {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

// Parse converts one text line (without its trailing newline) into wire
// bytes. It is a strict left-to-right token loop:
//
//   - A hex digit begins a two-digit hex byte; a single dangling digit
//     before whitespace or end-of-line is a ParseError (the reference
//     policy this implementation follows — see SPEC_FULL.md §9).
//   - A quote (' or ") opens quoted text, read up to the matching close
//     quote and encoded via enc; parsing resumes right after the close
//     quote under the same rules.
//   - Any other leading non-space character is a ParseError.
//
// On error the returned byte slice is always nil; the caller decides how
// to surface the error (the dispatcher prints it and drops the command).
func Parse(line string, enc *codec.Codec) ([]byte, error) {
	b := []byte(line)
	var out []byte
	i := 0
	for i < len(b) {
		if isSpace(b[i]) {
			i++
			continue
		}
		switch {
		case isHexDigit(b[i]):
			if i+1 >= len(b) || !isHexDigit(b[i+1]) {
				return nil, parseErrorf("dangling hex digit %q at position %d", b[i], i)
			}
			out = append(out, hexVal(b[i])<<4|hexVal(b[i+1]))
			i += 2
		case b[i] == '\'' || b[i] == '"':
			quote := b[i]
			j := i + 1
			for j < len(b) && b[j] != quote {
				j++
			}
			if j >= len(b) {
				return nil, parseErrorf("unterminated quoted string starting at position %d", i)
			}
			text := string(b[i+1 : j])
			encoded, err := enc.Encode(text)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
			i = j + 1
		default:
			return nil, parseErrorf("unexpected character %q at position %d", b[i], i)
		}
	}
	return out, nil
}
