// Package debounce provides write coalescing with explicit flush semantics,
// so shutdown ordering is testable without wall-clock timing assumptions.
// Timer is trailing-edge (waits for a quiet period); Batcher is
// leading-edge-armed (bounded delay even when the producer never goes
// quiet).
package debounce

import (
	"sync"
	"time"
)

// Timer coalesces rapid Schedule calls into one invocation of fn after a
// quiet period. FlushNow runs the pending invocation immediately; Cancel
// discards it. fn runs on a timer goroutine; errors from fn are reported
// to onError and never propagate to the caller that scheduled the write.
type Timer struct {
	quiet   time.Duration
	fn      func() error
	onError func(error)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// New creates a Timer with the given quiet period. onError may be nil.
func New(quiet time.Duration, fn func() error, onError func(error)) *Timer {
	t := &Timer{quiet: quiet, fn: fn, onError: onError}
	if t.onError == nil {
		t.onError = func(error) {}
	}
	return t
}

// Schedule arms (or re-arms) the quiet-period timer.
func (t *Timer) Schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = true
	if t.timer != nil {
		t.timer.Reset(t.quiet)
		return
	}
	t.timer = time.AfterFunc(t.quiet, t.fire)
}

// Cancel discards any pending invocation.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
	}
}

// FlushNow runs the pending invocation immediately, if any. It is safe to
// call during shutdown after all Schedule callers have stopped.
func (t *Timer) FlushNow() {
	t.mu.Lock()
	if !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	if err := t.fn(); err != nil {
		t.onError(err)
	}
}

func (t *Timer) fire() {
	t.mu.Lock()
	if !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.mu.Unlock()

	if err := t.fn(); err != nil {
		t.onError(err)
	}
}

// Batcher coalesces Schedule calls with a bounded delay. Unlike Timer, the
// interval arms on the first Schedule and is not re-armed by later ones, so
// fn runs at most interval after the first pending call even under a
// continuous stream of Schedules. Use it where the producer may never go
// quiet and the consumer still needs timely delivery.
type Batcher struct {
	interval time.Duration
	fn       func() error
	onError  func(error)

	mu    sync.Mutex
	timer *time.Timer
	armed bool
}

// NewBatcher creates a Batcher with the given maximum delay. onError may be
// nil.
func NewBatcher(interval time.Duration, fn func() error, onError func(error)) *Batcher {
	b := &Batcher{interval: interval, fn: fn, onError: onError}
	if b.onError == nil {
		b.onError = func(error) {}
	}
	return b
}

// Schedule arms the interval timer unless one is already running.
func (b *Batcher) Schedule() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.armed {
		return
	}
	b.armed = true
	if b.timer != nil {
		b.timer.Reset(b.interval)
		return
	}
	b.timer = time.AfterFunc(b.interval, b.fire)
}

// FlushNow runs the pending invocation immediately, if any.
func (b *Batcher) FlushNow() {
	b.mu.Lock()
	if !b.armed {
		b.mu.Unlock()
		return
	}
	b.armed = false
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	if err := b.fn(); err != nil {
		b.onError(err)
	}
}

func (b *Batcher) fire() {
	b.mu.Lock()
	if !b.armed {
		b.mu.Unlock()
		return
	}
	b.armed = false
	b.mu.Unlock()

	if err := b.fn(); err != nil {
		b.onError(err)
	}
}
