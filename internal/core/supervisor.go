package core

import (
	"sync"
	"time"

	"github.com/hexterm/hexterm/internal/aggregator"
	"github.com/hexterm/hexterm/internal/codec"
)

// Endpoints bundles the acquired serial endpoints the Supervisor wires
// together. Dte is nil outside MITM mode.
type Endpoints struct {
	Dce SerialEndpoint
	Dte SerialEndpoint
}

// Params carries everything the Supervisor needs beyond the acquired
// resources: values already validated by internal/config.
type Params struct {
	Baud        int
	Encoding    *codec.Codec
	Forwarding  bool
	Timestamps  bool
	ProcessedAt time.Time // process start time, for aggregator timestamp prefixes
}

// channelCapacity bounds the Port-Reader->Aggregator channels. A handful
// of in-flight 16-byte chunks is plenty of slack; the aggregator drains
// continuously and the channel only absorbs scheduler jitter.
const channelCapacity = 64

// Supervisor is C7: it sequences resource acquisition, spawns the
// workers, and joins/tears down on exit, per spec §4.8.
type Supervisor struct {
	endpoints Endpoints
	io        LocalIO
	params    Params
	shutdown  *Latch
}

// New builds a Supervisor. Endpoints and io must already be acquired
// (the caller, cmd/hexterm, is responsible for the scoped acquisition and
// rollback-on-failure described in spec §4.8 steps 1-5).
func New(endpoints Endpoints, io LocalIO, params Params) *Supervisor {
	return &Supervisor{endpoints: endpoints, io: io, params: params, shutdown: NewLatch()}
}

// Run executes spec §4.8 steps 7-8 (the latch of step 6 is created
// cleared by New): spawn workers, run the dispatcher on the calling
// goroutine, then join and drain on exit.
// It does not close the acquired resources — the caller does that in
// reverse acquisition order once Run returns, per the scoped-acquisition
// design.
func (s *Supervisor) Run() {
	mitm := s.endpoints.Dte != nil

	dcePrefix := ""
	if mitm {
		dcePrefix = "T <- C"
	}
	dceCh := make(chan aggregator.DataRead, channelCapacity)
	dceAgg := aggregator.New(dcePrefix, s.params.Encoding, s.params.Baud, s.params.Timestamps, s.params.ProcessedAt, lineSink{s.io})

	var dteCh chan aggregator.DataRead
	var dteAgg *aggregator.Aggregator
	if mitm {
		dteCh = make(chan aggregator.DataRead, channelCapacity)
		dteAgg = aggregator.New("T -> C", s.params.Encoding, s.params.Baud, s.params.Timestamps, s.params.ProcessedAt, lineSink{s.io})
	}

	// Aggregators are background tasks in the sense that they are never
	// told to stop directly — they exit once their channel is closed and
	// drained — but Run must still join them before returning: spec §4.8
	// step 8 requires draining aggregator channels to quiescence before
	// resources are released, and the caller's os.Exit can otherwise race
	// ahead of a still-pending flush.
	var aggWg sync.WaitGroup
	aggWg.Add(1)
	go func() {
		defer aggWg.Done()
		dceAgg.Run(dceCh)
	}()
	if mitm {
		aggWg.Add(1)
		go func() {
			defer aggWg.Done()
			dteAgg.Run(dteCh)
		}()
	}

	var dcePeer, dtePeer SerialEndpoint
	if mitm && s.params.Forwarding {
		dcePeer = s.endpoints.Dte
		dtePeer = s.endpoints.Dce
	}

	dceReader := NewPortReader("DCE", s.endpoints.Dce, dcePeer, dceCh, s.shutdown)

	var readerWg sync.WaitGroup
	readerWg.Add(1)
	go func() {
		defer readerWg.Done()
		dceReader.Run()
	}()

	var dteReader *PortReader
	if mitm {
		dteReader = NewPortReader("DTE", s.endpoints.Dte, dtePeer, dteCh, s.shutdown)
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			dteReader.Run()
		}()
	}

	dispatcher := NewDispatcher(s.io, s.params.Encoding, s.endpoints.Dce, s.endpoints.Dte, s.shutdown)
	dispatcher.Run()

	// dispatcher.Run already set the shutdown latch on return. Join the
	// port readers first — that's what closes each aggregator's input
	// channel — then join the aggregators so Run doesn't return until
	// every pending line, including a residual flush, has been emitted.
	readerWg.Wait()
	aggWg.Wait()
}

// Shutdown returns the shared latch, for callers (e.g. signal handling
// in cmd/hexterm) that need to trip it from outside the dispatcher loop.
func (s *Supervisor) Shutdown() *Latch { return s.shutdown }

// lineSink adapts LocalIO to aggregator.Sink.
type lineSink struct{ io LocalIO }

func (s lineSink) WriteLine(line string) { s.io.WriteLine(line) }
