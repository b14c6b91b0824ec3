package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hexterm/hexterm/internal/aggregator"
)

// fakeEndpoint is a scripted SerialEndpoint: Read yields the configured
// chunks in order (nil thereafter, as a real endpoint would on repeated
// timeouts), and Write records everything it was asked to write so tests
// can assert forwarding order.
type fakeEndpoint struct {
	mu       sync.Mutex
	chunks   [][]byte
	writes   [][]byte
	writeErr error
	readErr  error
}

func (f *fakeEndpoint) Read(maxBytes int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.chunks) == 0 {
		return nil, nil // timeout: empty, no error
	}
	c := f.chunks[0]
	f.chunks = f.chunks[1:]
	return c, nil
}

func (f *fakeEndpoint) Write(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	cp := append([]byte(nil), b...)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeEndpoint) Close() error { return nil }

func (f *fakeEndpoint) writeLog() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

func drainDataRead(ch <-chan aggregator.DataRead) []aggregator.DataRead {
	var out []aggregator.DataRead
	for rec := range ch {
		out = append(out, rec)
	}
	return out
}

// orderingPeer is a peer endpoint that records, at each forwarded write,
// how many records the Port Reader had already published to out.
type orderingPeer struct {
	fakeEndpoint
	out         chan aggregator.DataRead
	publishedAt []int
}

func (p *orderingPeer) Write(b []byte) error {
	p.publishedAt = append(p.publishedAt, len(p.out))
	return p.fakeEndpoint.Write(b)
}

func TestPortReaderForwardsBeforePublishing(t *testing.T) {
	src := &fakeEndpoint{chunks: [][]byte{{0x01, 0x02}, {0x03}}}
	out := make(chan aggregator.DataRead, 8)
	peer := &orderingPeer{out: out}
	shutdown := NewLatch()

	r := NewPortReader("DCE", src, peer, out, shutdown)

	go func() {
		// Stop the reader after the scripted chunks have been consumed;
		// a real endpoint would just keep timing out, so this mimics
		// the dispatcher tripping shutdown once it has what it needs.
		for {
			src.mu.Lock()
			done := len(src.chunks) == 0
			src.mu.Unlock()
			if done {
				time.Sleep(5 * time.Millisecond)
				shutdown.Set()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	r.Run()

	records := drainDataRead(out)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if string(records[0].B) != "\x01\x02" || string(records[1].B) != "\x03" {
		t.Fatalf("unexpected record payloads: %v", records)
	}

	writes := peer.writeLog()
	if len(writes) != 2 {
		t.Fatalf("peer got %d writes, want 2", len(writes))
	}
	if string(writes[0]) != "\x01\x02" || string(writes[1]) != "\x03" {
		t.Fatalf("unexpected forwarded payloads: %v", writes)
	}
	// Chunk k must reach the peer while only k records are published.
	if len(peer.publishedAt) != 2 || peer.publishedAt[0] != 0 || peer.publishedAt[1] != 1 {
		t.Fatalf("records already published at each forward = %v, want [0 1]", peer.publishedAt)
	}
}

func TestPortReaderSkipsEmptyReads(t *testing.T) {
	src := &fakeEndpoint{chunks: [][]byte{nil, {0xAA}, nil}}
	out := make(chan aggregator.DataRead, 8)
	shutdown := NewLatch()
	r := NewPortReader("DCE", src, nil, out, shutdown)

	go func() {
		time.Sleep(20 * time.Millisecond)
		shutdown.Set()
	}()
	r.Run()

	records := drainDataRead(out)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (empty reads must not publish)", len(records))
	}
	if string(records[0].B) != "\xAA" {
		t.Fatalf("unexpected payload: %v", records[0].B)
	}
}

func TestPortReaderReadErrorTripsShutdown(t *testing.T) {
	src := &fakeEndpoint{readErr: errors.New("boom")}
	out := make(chan aggregator.DataRead, 1)
	shutdown := NewLatch()
	r := NewPortReader("DCE", src, nil, out, shutdown)

	r.Run()

	if !shutdown.IsSet() {
		t.Fatal("a fatal read error must trip shutdown")
	}
}

func TestPortReaderNoForwardingStillPublishes(t *testing.T) {
	// spec E6: --no-forwarding means the peer endpoint is nil, but the
	// aggregator line for the reading side must still be produced.
	src := &fakeEndpoint{chunks: [][]byte{{0x55}}}
	out := make(chan aggregator.DataRead, 8)
	shutdown := NewLatch()
	r := NewPortReader("DCE", src, nil, out, shutdown)

	go func() {
		time.Sleep(20 * time.Millisecond)
		shutdown.Set()
	}()
	r.Run()

	records := drainDataRead(out)
	if len(records) != 1 || string(records[0].B) != "\x55" {
		t.Fatalf("unexpected records: %v", records)
	}
}
