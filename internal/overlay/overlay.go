// Package overlay keeps a parallel per-line record of the canonical dot
// key behind each emitted character, so a host can render the braille the
// user actually typed alongside the print text.
package overlay

import (
	"sort"
	"sync"

	"brailled/internal/braille"
)

// Tracker records one dot key per character position, per line. Spaces are
// recorded as the empty dot key; recording past the end of a line fills
// the gap with empty entries.
type Tracker struct {
	mu    sync.RWMutex
	lines map[int][]string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{lines: make(map[int][]string)}
}

// Record stores the dot key for the character at (line, col).
func (t *Tracker) Record(line, col int, dotKey string) {
	if line < 0 || col < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cells := t.lines[line]
	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = dotKey
	t.lines[line] = cells
}

// RecordSpace stores a space at (line, col).
func (t *Tracker) RecordSpace(line, col int) {
	t.Record(line, col, "")
}

// HasLine reports whether anything is recorded on the line.
func (t *Tracker) HasLine(line int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.lines[line]
	return ok
}

// GetLine renders the line as Unicode braille, one glyph per recorded
// position. Empty entries render as the braille space U+2800. Returns ""
// for untracked lines.
func (t *Tracker) GetLine(line int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cells, ok := t.lines[line]
	if !ok {
		return ""
	}
	out := make([]rune, 0, len(cells))
	for _, key := range cells {
		for _, r := range braille.KeyString(key) {
			out = append(out, r)
		}
	}
	return string(out)
}

// TrackedLines returns the recorded line numbers in ascending order.
func (t *Tracker) TrackedLines() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lines := make([]int, 0, len(t.lines))
	for l := range t.lines {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// Clear discards all recorded lines.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = make(map[int][]string)
}
