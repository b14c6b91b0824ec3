package core

import (
	"sync"
	"sync/atomic"
)

// Latch is the shutdown latch shared by every worker: a monotonic flag
// that, once set, stays set. It is safe for concurrent use by any number
// of readers and is intended to have exactly one logical writer (the
// Local Dispatcher or a Port Reader reporting a fatal error), though Set
// is idempotent so multiple callers racing to trip it is harmless.
type Latch struct {
	flag atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewLatch returns a cleared latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Set trips the latch. Safe to call more than once or concurrently.
func (l *Latch) Set() {
	l.flag.Store(true)
	l.once.Do(func() { close(l.done) })
}

// IsSet reports whether the latch has been tripped.
func (l *Latch) IsSet() bool { return l.flag.Load() }

// Done returns a channel that is closed once the latch is set, for use
// in select statements alongside blocking sends/receives.
func (l *Latch) Done() <-chan struct{} { return l.done }
