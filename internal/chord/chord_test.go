package chord

import (
	"sync"
	"testing"
	"time"

	"brailled/internal/braille"
)

// recorder collects committed chords.
type recorder struct {
	mu     sync.Mutex
	chords []braille.DotSet
}

func (r *recorder) commit(s braille.DotSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chords = append(r.chords, s)
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.chords))
	for i, c := range r.chords {
		if c.HasSpace() {
			out[i] = "space"
		} else {
			out[i] = c.Key()
		}
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestAggregatesSimultaneousPresses(t *testing.T) {
	rec := &recorder{}
	agg := New(20*time.Millisecond, rec.commit)

	agg.Press(1)
	agg.Press(3)
	agg.Press(6)

	waitFor(t, time.Second, func() bool { return len(rec.keys()) == 1 })
	if got := rec.keys()[0]; got != "136" {
		t.Errorf("chord = %q, want \"136\"", got)
	}
}

func TestRepeatedPressIsIdempotent(t *testing.T) {
	rec := &recorder{}
	agg := New(20*time.Millisecond, rec.commit)

	agg.Press(2)
	agg.Press(2)
	agg.Press(2)

	waitFor(t, time.Second, func() bool { return len(rec.keys()) == 1 })
	if got := rec.keys()[0]; got != "2" {
		t.Errorf("chord = %q, want \"2\"", got)
	}
}

func TestTimerResetsOnEachPress(t *testing.T) {
	rec := &recorder{}
	agg := New(40*time.Millisecond, rec.commit)

	// Presses spaced under the timeout must land in the same chord.
	agg.Press(1)
	time.Sleep(20 * time.Millisecond)
	agg.Press(2)
	time.Sleep(20 * time.Millisecond)
	agg.Press(4)

	waitFor(t, time.Second, func() bool { return len(rec.keys()) == 1 })
	if got := rec.keys()[0]; got != "124" {
		t.Errorf("chord = %q, want \"124\"", got)
	}
}

func TestSpaceCommitsPendingThenSpace(t *testing.T) {
	rec := &recorder{}
	agg := New(time.Hour, rec.commit) // timer must never fire

	agg.Press(1)
	agg.Press(0)

	keys := rec.keys()
	if len(keys) != 2 || keys[0] != "1" || keys[1] != "space" {
		t.Errorf("chords = %v, want [1 space]", keys)
	}
}

func TestSpaceAloneEmitsSpaceOnly(t *testing.T) {
	rec := &recorder{}
	agg := New(time.Hour, rec.commit)

	agg.Press(0)

	keys := rec.keys()
	if len(keys) != 1 || keys[0] != "space" {
		t.Errorf("chords = %v, want [space]", keys)
	}
}

func TestFlush(t *testing.T) {
	rec := &recorder{}
	agg := New(time.Hour, rec.commit)

	agg.Press(2)
	agg.Press(5)
	agg.Flush()

	keys := rec.keys()
	if len(keys) != 1 || keys[0] != "25" {
		t.Errorf("chords = %v, want [25]", keys)
	}
	if agg.HasPending() {
		t.Error("pending after flush")
	}
}

func TestFlushOnEmptyIsNoop(t *testing.T) {
	rec := &recorder{}
	agg := New(time.Hour, rec.commit)

	agg.Flush()
	if len(rec.keys()) != 0 {
		t.Errorf("flush of empty aggregator delivered %v", rec.keys())
	}
}

func TestCancelDiscards(t *testing.T) {
	rec := &recorder{}
	agg := New(20*time.Millisecond, rec.commit)

	agg.Press(1)
	agg.Cancel()

	time.Sleep(60 * time.Millisecond)
	if len(rec.keys()) != 0 {
		t.Errorf("cancelled chord was delivered: %v", rec.keys())
	}
	if agg.HasPending() {
		t.Error("pending after cancel")
	}
}

func TestSetTimeout(t *testing.T) {
	rec := &recorder{}
	agg := New(time.Hour, rec.commit)

	agg.SetTimeout(15 * time.Millisecond)
	if agg.Timeout() != 15*time.Millisecond {
		t.Fatalf("Timeout() = %v", agg.Timeout())
	}

	// Takes effect on the next press.
	agg.Press(4)
	waitFor(t, time.Second, func() bool { return len(rec.keys()) == 1 })
}

func TestInvalidDotsIgnored(t *testing.T) {
	rec := &recorder{}
	agg := New(time.Hour, rec.commit)

	agg.Press(-1)
	agg.Press(7)
	agg.Press(42)

	if agg.HasPending() {
		t.Error("invalid dots were accumulated")
	}
}

func TestChordsDeliverInOrder(t *testing.T) {
	rec := &recorder{}
	agg := New(10*time.Millisecond, rec.commit)

	agg.Press(1)
	waitFor(t, time.Second, func() bool { return len(rec.keys()) == 1 })
	agg.Press(2)
	waitFor(t, time.Second, func() bool { return len(rec.keys()) == 2 })

	keys := rec.keys()
	if keys[0] != "1" || keys[1] != "2" {
		t.Errorf("chords = %v, want [1 2]", keys)
	}
}
