package stream

import (
	"sync"
	"time"

	"github.com/jpillora/backoff"
)

const (
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 30 * time.Second
)

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks; tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall-clock implementation of Clock.
var RealClock Clock = realClock{}

// Reconnector counts consecutive failures and owns the single pending
// reconnect timer. Delay after k failures is min(initial*2^k, max).
type Reconnector struct {
	clock Clock
	b     *backoff.Backoff

	mu       sync.Mutex
	attempts int
	timer    Timer
	seq      uint64
}

// NewReconnector creates a reconnector. Non-positive bounds fall back to 1s and 30s.
func NewReconnector(clock Clock, initial, max time.Duration) *Reconnector {
	if clock == nil {
		clock = RealClock
	}
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max <= 0 {
		max = DefaultBackoffMax
	}
	return &Reconnector{
		clock: clock,
		b:     &backoff.Backoff{Min: initial, Max: max, Factor: 2, Jitter: false},
	}
}

// Delay returns the reconnect delay after the given number of consecutive failures.
func (r *Reconnector) Delay(failures int) time.Duration {
	return r.b.ForAttempt(float64(failures))
}

// Fail records a failure and returns the new attempt count and its delay.
func (r *Reconnector) Fail() (int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	return r.attempts, r.Delay(r.attempts)
}

// Schedule arms fn to run after d, replacing any timer not yet fired.
func (r *Reconnector) Schedule(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.seq++
	seq := r.seq
	r.timer = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		if seq != r.seq {
			r.mu.Unlock()
			return
		}
		r.timer = nil
		r.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending timer, if any.
func (r *Reconnector) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Reset clears the failure count and any pending timer after a successful open.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = 0
	r.stopLocked()
}

// Attempts returns consecutive failures since the last successful open.
func (r *Reconnector) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Pending reports whether a reconnect timer is armed.
func (r *Reconnector) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func (r *Reconnector) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	// a timer that already fired but has not taken the lock sees a new seq and exits
	r.seq++
}
