// Package chord groups individual dot-press events into chords.
//
// A chord is the set of dots pressed together before a quiescence timeout
// elapses. Every press within one chord re-arms the timeout, so aggregation
// is trailing-edge: the chord closes only after the keyboard has been quiet
// for the configured duration. A space press closes any pending chord
// immediately and is then delivered as its own space chord.
package chord

import (
	"sync"
	"time"

	"brailled/internal/braille"
)

// DefaultTimeout is the quiescence duration used when none is configured.
const DefaultTimeout = 50 * time.Millisecond

// CommitFunc receives one closed chord. It is invoked without internal
// locks held, in the order chords close.
type CommitFunc func(braille.DotSet)

// Aggregator collates dot presses into chords.
type Aggregator struct {
	mu      sync.Mutex
	timeout time.Duration
	pending braille.DotSet
	timer   *time.Timer
	gen     uint64 // invalidates stale timer firings
	commit  CommitFunc
}

// New creates an aggregator delivering chords to commit. A non-positive
// timeout selects DefaultTimeout.
func New(timeout time.Duration, commit CommitFunc) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{
		timeout: timeout,
		pending: make(braille.DotSet),
		commit:  commit,
	}
}

// Press records one dot press. Dots outside 0..6 are ignored. Pressing the
// same dot twice within a chord is idempotent. Pressing space first commits
// any pending chord, then delivers a separate space chord.
func (a *Aggregator) Press(dot int) {
	if dot < braille.SpaceDot || dot > braille.MaxDot {
		return
	}

	a.mu.Lock()
	if dot == braille.SpaceDot {
		chords := make([]braille.DotSet, 0, 2)
		if len(a.pending) > 0 {
			chords = append(chords, a.pending)
			a.pending = make(braille.DotSet)
		}
		a.stopTimerLocked()
		chords = append(chords, braille.NewDotSet(braille.SpaceDot))
		a.mu.Unlock()
		for _, c := range chords {
			a.commit(c)
		}
		return
	}

	a.pending.Add(dot)
	a.armTimerLocked()
	a.mu.Unlock()
}

// Flush commits the pending chord immediately. No-op when nothing is
// pending.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	a.stopTimerLocked()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return
	}
	c := a.pending
	a.pending = make(braille.DotSet)
	a.mu.Unlock()
	a.commit(c)
}

// Cancel discards the pending chord without delivering it.
func (a *Aggregator) Cancel() {
	a.mu.Lock()
	a.stopTimerLocked()
	a.pending = make(braille.DotSet)
	a.mu.Unlock()
}

// SetTimeout changes the quiescence duration. It takes effect on the next
// press; an already armed timer keeps its old deadline.
func (a *Aggregator) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	a.mu.Lock()
	a.timeout = d
	a.mu.Unlock()
}

// Timeout returns the current quiescence duration.
func (a *Aggregator) Timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeout
}

// HasPending reports whether dots are waiting for the chord to close.
func (a *Aggregator) HasPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending) > 0
}

func (a *Aggregator) armTimerLocked() {
	a.stopTimerLocked()
	gen := a.gen
	a.timer = time.AfterFunc(a.timeout, func() {
		a.expire(gen)
	})
}

// stopTimerLocked cancels the armed timer. Safe to call repeatedly; a
// firing that already started is invalidated through the generation
// counter instead.
func (a *Aggregator) stopTimerLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Aggregator) expire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || len(a.pending) == 0 {
		a.mu.Unlock()
		return
	}
	c := a.pending
	a.pending = make(braille.DotSet)
	a.timer = nil
	a.mu.Unlock()
	a.commit(c)
}
