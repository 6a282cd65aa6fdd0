package match

import (
	"brailled/internal/braille"
	"brailled/internal/unify"
)

// MultiCellResult is the typed outcome of one multi-cell matcher step.
type MultiCellResult struct {
	Outcome Outcome
	Entry   *unify.MultiCell
	// Leftover holds the dropped trailing cell after prefix recovery.
	Leftover []string
	// Buffered holds the rejected buffer on a None outcome.
	Buffered []string
}

// MultiCellMatcher recognises multi-cell character sequences with the
// immediate policy, filtered by the active mode. Grade 1 entries are the
// universal fallback set: every mode's index contains them, with the
// mode's own entries overriding on a shared key.
type MultiCellMatcher struct {
	byMode map[braille.Mode]*index
	a      automaton
	mode   braille.Mode
}

// NewMultiCellMatcher compiles the multi-cell list into per-mode indexes
// and starts in grade 1.
func NewMultiCellMatcher(entries []*unify.MultiCell) *MultiCellMatcher {
	byMode := make(map[braille.Mode]*index, len(braille.Modes()))
	for _, mode := range braille.Modes() {
		ix := newIndex()
		// Grade 1 first so mode-specific entries win on a shared key.
		for _, e := range entries {
			if e.Mode == braille.Grade1 {
				ix.add(e.DotsKey, len(e.Cells), e)
			}
		}
		if mode != braille.Grade1 {
			for _, e := range entries {
				if e.Mode == mode {
					ix.add(e.DotsKey, len(e.Cells), e)
				}
			}
		}
		byMode[mode] = ix
	}

	m := &MultiCellMatcher{byMode: byMode, mode: braille.Grade1}
	m.a = automaton{policy: immediatePolicy, ix: byMode[braille.Grade1]}
	return m
}

// SetMode switches the active entry set. Any buffered cells are dropped,
// not flushed; the engine empties the buffer before a mode change.
func (m *MultiCellMatcher) SetMode(mode braille.Mode) {
	if mode == m.mode {
		return
	}
	m.mode = mode
	m.a.clear()
	m.a.ix = m.byMode[mode]
}

// Mode returns the active mode filter.
func (m *MultiCellMatcher) Mode() braille.Mode {
	return m.mode
}

// Offer feeds one cell dot-key to the matcher under the active mode.
func (m *MultiCellMatcher) Offer(key string) MultiCellResult {
	s := m.a.offer(key)
	r := MultiCellResult{
		Outcome:  s.outcome,
		Leftover: s.leftover,
		Buffered: s.buffered,
	}
	if s.entry != nil {
		r.Entry = s.entry.(*unify.MultiCell)
	}
	return r
}

// HasPending reports whether cells are buffered.
func (m *MultiCellMatcher) HasPending() bool {
	return m.a.hasPending()
}

// FlushPending returns the buffered cells and clears the matcher.
func (m *MultiCellMatcher) FlushPending() []string {
	return m.a.flush()
}

// Reset clears all matcher state.
func (m *MultiCellMatcher) Reset() {
	m.a.clear()
}
