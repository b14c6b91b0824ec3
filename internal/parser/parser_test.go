package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexterm/hexterm/internal/codec"
)

func mustCodec(t *testing.T, name string) *codec.Codec {
	t.Helper()
	c, err := codec.Lookup(name)
	require.NoError(t, err)
	return c
}

func TestParseHexAndQuotedText(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse(`48 "AB" 0a`, enc)
	require.NoError(t, err)
	require.Equal(t, []byte{0x48, 0x41, 0x42, 0x0A}, out)
}

func TestParseEmptyLine(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse("", enc)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestParseWhitespaceOnly(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse("   \t  ", enc)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestParseRejectsDanglingHexDigit(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse("48 0", enc)
	require.Error(t, err)
	require.True(t, IsParseError(err))
	require.Nil(t, out)
}

func TestParseRejectsUnexpectedCharacter(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse("zzz", enc)
	require.Error(t, err)
	require.True(t, IsParseError(err))
	require.Nil(t, out)
}

func TestParseRejectsUnterminatedQuote(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse(`"unterminated`, enc)
	require.Error(t, err)
	require.True(t, IsParseError(err))
	require.Nil(t, out)
}

func TestParseSingleQuotes(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse(`'hi' 21`, enc)
	require.NoError(t, err)
	require.Equal(t, []byte{'h', 'i', 0x21}, out)
}

func TestParseQuotedTextCanBeEmpty(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse(`""41`, enc)
	require.NoError(t, err)
	require.Equal(t, []byte{0x41}, out)
}

func TestParseIsCaseInsensitiveHex(t *testing.T) {
	enc := mustCodec(t, "cp437")

	out, err := Parse("aB Cd", enc)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xCD}, out)
}

func TestParseEncodingFailureIsSurfaced(t *testing.T) {
	enc := mustCodec(t, "cp437")

	_, err := Parse(`"日"`, enc)
	require.Error(t, err)
}
