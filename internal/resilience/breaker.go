// Package resilience guards calls into the shared team backend.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls because the
// backend is considered down.
var ErrCircuitOpen = errors.New("team backend circuit open")

const (
	// StateClosed admits every call.
	StateClosed = "closed"
	// StateOpen rejects every call until the cooldown elapses.
	StateOpen = "open"
	// StateHalfOpen admits a single trial call to test recovery.
	StateHalfOpen = "half-open"
)

// Breaker fronts the serialized backend queue. After `threshold` consecutive
// failures it opens and rejects immediately, so queued operations settle fast
// instead of each burning a timeout against a dead upstream. Once the
// cooldown elapses a single trial call is admitted; its outcome decides
// whether the circuit closes again or re-opens for another cooldown.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	state    string
	failures int
	openedAt time.Time
	trialing bool

	now func() time.Time // for testing
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for the given cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
}

// State reports the current circuit state for logging.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn unless the circuit is open, or half-open with a trial
// already in flight. The breaker counts only fn's outcome: a rejected call
// does not touch the failure counter.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialing = false

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
		return err
	}

	b.failures = 0
	b.state = StateClosed
	return nil
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.trialing = true
		return true
	default: // half-open: one trial at a time
		if b.trialing {
			return false
		}
		b.trialing = true
		return true
	}
}
