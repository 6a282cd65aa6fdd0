package match

import (
	"brailled/internal/unify"
)

// IndicatorResult is the typed outcome of one indicator-matcher step.
type IndicatorResult struct {
	Outcome   Outcome
	Indicator *unify.Indicator
	// Leftover holds trailing cells after a deferred commit.
	Leftover []string
	// Buffered holds the rejected buffer on a None outcome.
	Buffered []string
}

// IndicatorMatcher recognises indicator sequences with the deferred
// policy: a short indicator that prefixes a longer one is committed only
// once the next cell rules the longer one out.
type IndicatorMatcher struct {
	a automaton
}

// NewIndicatorMatcher compiles the indicator list into a matcher.
func NewIndicatorMatcher(indicators []*unify.Indicator) *IndicatorMatcher {
	ix := newIndex()
	for _, ind := range indicators {
		ix.add(ind.DotsKey, len(ind.Cells), ind)
	}
	return &IndicatorMatcher{a: automaton{policy: deferredPolicy, ix: ix}}
}

// Offer feeds one cell dot-key to the matcher.
func (m *IndicatorMatcher) Offer(key string) IndicatorResult {
	s := m.a.offer(key)
	r := IndicatorResult{
		Outcome:  s.outcome,
		Leftover: s.leftover,
		Buffered: s.buffered,
	}
	if s.entry != nil {
		r.Indicator = s.entry.(*unify.Indicator)
	}
	return r
}

// HasPending reports whether cells are buffered.
func (m *IndicatorMatcher) HasPending() bool {
	return m.a.hasPending()
}

// FlushPending returns the buffered cells and clears the matcher, dropping
// any deferred match.
func (m *IndicatorMatcher) FlushPending() []string {
	return m.a.flush()
}

// Reset clears all matcher state.
func (m *IndicatorMatcher) Reset() {
	m.a.clear()
}
