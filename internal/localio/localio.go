// Package localio implements core.LocalIO over stdio or plain files: a
// line-oriented input source and a write-serialized, flushable output
// sink, matching the spec's append-mode-text-log-only sink (no binary
// record format — see SPEC_FULL.md and DESIGN.md for why the teacher's
// pcap writer was left out of this component).
package localio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hexterm/hexterm/internal/core"
)

// IO is the stdio/file-backed core.LocalIO implementation.
type IO struct {
	in       *bufio.Reader
	inCloser io.Closer

	mu        sync.Mutex
	out       *bufio.Writer
	outCloser io.Closer
}

var _ core.LocalIO = (*IO)(nil)

// OpenInput opens the operator input source: "-" for stdin, else a file
// opened read-only.
func OpenInput(path string) (*bufio.Reader, io.Closer, error) {
	if path == "" || path == "-" {
		return bufio.NewReader(os.Stdin), io.NopCloser(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input %s: %w", path, err)
	}
	return bufio.NewReader(f), f, nil
}

// OpenOutput opens the local sink: "-" for stdout, else an append-mode
// file, created if necessary.
func OpenOutput(path string) (*bufio.Writer, io.Closer, error) {
	if path == "" || path == "-" {
		return bufio.NewWriter(os.Stdout), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return bufio.NewWriter(f), f, nil
}

// New builds an IO from an already-opened input reader/output writer
// pair, per spec §4.8's scoped-acquisition design (cmd/hexterm owns
// OpenInput/OpenOutput and their rollback-on-failure).
func New(in *bufio.Reader, inCloser io.Closer, out *bufio.Writer, outCloser io.Closer) *IO {
	return &IO{in: in, inCloser: inCloser, out: out, outCloser: outCloser}
}

// ReadLine implements core.LocalIO. It strips the trailing newline; an
// io.EOF with no bytes read returns ("", nil), the spec's empty-string
// EOF signal.
func (c *IO) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && len(line) == 0 {
		return "", nil
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// WriteLine implements core.LocalIO, serializing concurrent callers (the
// two aggregators and the dispatcher) at line granularity.
func (c *IO) WriteLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
	_ = c.out.Flush()
}

// Flush implements core.LocalIO.
func (c *IO) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Flush()
}

// Close releases the underlying input and output resources (stdin/stdout
// are wrapped in io.NopCloser and thus left open).
func (c *IO) Close() error {
	var firstErr error
	if err := c.inCloser.Close(); err != nil {
		firstErr = err
	}
	if err := c.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.outCloser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
