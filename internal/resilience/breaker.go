// Package resilience guards calls to the provisioning cluster. A
// provisioning postgres that is down or saturated fails every CREATE
// DATABASE; the breaker sheds those calls early instead of letting
// each registration wait out its own timeout.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the call while the
// breaker is rejecting traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

// Breaker counts consecutive failures and trips after maxFailures of
// them. While tripped it rejects calls for cooldown, then lets traffic
// through again; the first failure after that re-trips it immediately.
type Breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing
}

// NewBreaker trips after maxFailures consecutive failures and rejects
// calls for cooldown before trying again.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is rejecting calls, in which case
// it returns ErrCircuitOpen and fn never runs. fn's error is returned
// unchanged and counted against the failure threshold.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	b.record(err)
	return err
}

// admit decides whether a call may proceed, moving an expired open
// state to half-open.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == open {
		if b.now().Sub(b.openedAt) < b.timeout {
			return false
		}
		b.state = halfOpen
	}
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.state = closed
		return
	}

	b.failures++
	// A half-open failure trips regardless of the count: the one trial
	// call just showed the upstream is still down.
	if b.state == halfOpen || b.failures >= b.maxFailures {
		b.state = open
		b.openedAt = b.now()
	}
}
