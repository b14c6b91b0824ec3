package core

import (
	"log"
	"time"

	"github.com/hexterm/hexterm/internal/aggregator"
)

// PortReader is C5: it reads from one serial endpoint, timestamps each
// chunk, optionally forwards it to a peer endpoint before publishing, and
// delivers it to its aggregator channel.
type PortReader struct {
	name     string // for log messages, e.g. "DCE" or "DTE"
	endpoint SerialEndpoint
	peer     SerialEndpoint // nil unless MITM forwarding is enabled
	out      chan<- aggregator.DataRead
	shutdown *Latch
}

// NewPortReader builds a Port Reader. peer may be nil (single-port mode,
// or MITM with forwarding disabled).
func NewPortReader(name string, endpoint, peer SerialEndpoint, out chan<- aggregator.DataRead, shutdown *Latch) *PortReader {
	return &PortReader{name: name, endpoint: endpoint, peer: peer, out: out, shutdown: shutdown}
}

// Run executes the loop in spec §4.6 until shutdown is set. It closes
// the output channel on return so the aggregator can drain and exit.
//
// Publishing to r.out is an unconditional blocking send, not a select
// against the shutdown latch: this Port Reader is the channel's sole
// closer, so the send can never block forever, and racing it against
// the latch would let a freshly-read chunk be silently dropped if
// shutdown trips at the same moment a send becomes ready.
func (r *PortReader) Run() {
	defer close(r.out)
	for !r.shutdown.IsSet() {
		chunk, err := r.endpoint.Read(16)
		if err != nil {
			log.Printf("%s port reader: read error: %v", r.name, err)
			r.shutdown.Set()
			return
		}
		if len(chunk) == 0 {
			continue
		}
		now := time.Now()

		if r.peer != nil {
			if werr := r.peer.Write(chunk); werr != nil {
				log.Printf("%s port reader: forward to peer failed: %v", r.name, werr)
				// Preserve the audit trail: the bytes were read even
				// though forwarding failed, so still publish them.
				r.out <- aggregator.DataRead{T: now, B: chunk}
				r.shutdown.Set()
				return
			}
		}

		r.out <- aggregator.DataRead{T: now, B: chunk}
	}
}
