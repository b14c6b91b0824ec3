package core

import (
	"strings"
	"testing"
	"time"
)

// TestSupervisorSinglePortEndToEnd exercises spec E1: one DCE chunk
// arrives, no MITM, no timestamps; the supervisor must emit exactly one
// hexdump line to the local sink and exit on "quit". The script waits
// briefly before quitting so the Port Reader reads the chunk before the
// latch is set (a reader never reads again once it is). Run must
// not return until the DCE aggregator has flushed that line — this is a
// regression test for a prior bug where Run joined only the Port
// Readers, letting the caller's teardown race ahead of a still-draining
// aggregator.
func TestSupervisorSinglePortEndToEnd(t *testing.T) {
	dce := &fakeEndpoint{chunks: [][]byte{{0x48, 0x69, 0x0A}}}
	io := &scriptedIO{lines: []string{"w 0.05", "quit"}}

	sup := New(Endpoints{Dce: dce}, io, Params{
		Baud:        9600,
		Encoding:    mustEnc(t),
		Forwarding:  false,
		Timestamps:  false,
		ProcessedAt: time.Now(),
	})

	sup.Run()

	var found string
	for _, l := range io.written {
		if strings.Contains(l, "48 69 0A") {
			found = l
		}
	}
	if found == "" {
		t.Fatalf("expected a hexdump line for 48 69 0A, got: %v", io.written)
	}
	if !strings.Contains(found, "Hi.") {
		t.Fatalf("expected sidebar 'Hi.' in line, got: %q", found)
	}
}

// TestSupervisorMitmNoForwardingStillAggregates exercises spec E6: with
// forwarding disabled, the DCE aggregator still emits its line even
// though the DTE never receives the byte, and Run returns only after
// that line has landed. As above, the script waits before quitting so
// the DCE reader gets to read the byte.
func TestSupervisorMitmNoForwardingStillAggregates(t *testing.T) {
	dce := &fakeEndpoint{chunks: [][]byte{{0x55}}}
	dte := &fakeEndpoint{}
	io := &scriptedIO{lines: []string{"w 0.05", "quit"}}

	sup := New(Endpoints{Dce: dce, Dte: dte}, io, Params{
		Baud:        9600,
		Encoding:    mustEnc(t),
		Forwarding:  false,
		Timestamps:  false,
		ProcessedAt: time.Now(),
	})

	sup.Run()

	var found string
	for _, l := range io.written {
		if strings.Contains(l, "55") && strings.Contains(l, "T <- C") {
			found = l
		}
	}
	if found == "" {
		t.Fatalf("expected a DCE hexdump line even with forwarding disabled, got: %v", io.written)
	}
	if len(dte.writeLog()) != 0 {
		t.Fatal("DTE must not receive the byte when forwarding is disabled")
	}
}
