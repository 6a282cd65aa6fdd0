// Package engine wires the chord pipeline together: each closed chord is
// offered to the multi-cell matcher, cells it rejects flow to the
// indicator matcher, and cells rejected there emit single-cell characters
// under the current mode.
//
// Multi-cell sequences are checked before indicators: many multi-cell
// characters begin with a cell that is also an indicator (dot 6 opens both
// the capital indicator and the dash sequence), and checking indicators
// first would consume the prefix and make the longer sequence unreachable.
package engine

import (
	"strings"
	"sync"

	"brailled/internal/braille"
	"brailled/internal/match"
	"brailled/internal/mode"
	"brailled/internal/overlay"
	"brailled/internal/unify"
)

// EmitFunc delivers one emitted character (or space) to the host together
// with the canonical dot key that produced it. Multi-cell emissions carry
// the multi-cell key. Emission is best-effort: a returned error is counted
// and reported, never retried, and leaves engine state untouched.
type EmitFunc func(text, dotKey string) error

// ModeChangeFunc observes mode changes. ind is nil on scope auto-return.
type ModeChangeFunc func(old, new braille.Mode, ind *unify.Indicator)

// kana corner brackets toggled on the 36 cell.
const (
	kanaBracketOpen  = "「"
	kanaBracketClose = "」"
)

// kanaToggleKey is the dot key whose kana-mode emission alternates between
// the corner brackets.
const kanaToggleKey = "36"

// Engine is the pipeline driver. One engine serves one host editor;
// multiple editors need separate engines.
type Engine struct {
	mu sync.Mutex

	tables *unify.Tables
	multi  *match.MultiCellMatcher
	indic  *match.IndicatorMatcher
	modes  *mode.Machine

	tracker *overlay.Tracker
	line    int
	col     int

	numericMode     bool
	kanaBracketNext bool // false: next 36 opens; true: next closes
	overlayOff      bool

	emit         EmitFunc
	onModeChange ModeChangeFunc

	emitted     uint64
	emitFailed  uint64
	lastEmitErr error
}

// New creates an engine over the unified tables, delivering output to
// emit.
func New(tables *unify.Tables, emit EmitFunc) *Engine {
	e := &Engine{
		tables:  tables,
		multi:   match.NewMultiCellMatcher(tables.MultiCells),
		indic:   match.NewIndicatorMatcher(tables.Indicators),
		modes:   mode.New(),
		tracker: overlay.NewTracker(),
		emit:    emit,
	}
	e.modes.SetModeChangeCallback(e.modeChanged)
	return e
}

// SetModeChangeCallback registers the host's mode-change observer.
func (e *Engine) SetModeChangeCallback(cb ModeChangeFunc) {
	e.mu.Lock()
	e.onModeChange = cb
	e.mu.Unlock()
}

// modeChanged keeps the multi-cell matcher's filter in step with the
// machine and forwards the change to the host.
func (e *Engine) modeChanged(old, new braille.Mode, ind *unify.Indicator) {
	e.multi.SetMode(new)
	if e.onModeChange != nil {
		e.onModeChange(old, new, ind)
	}
}

// Mode returns the active mode.
func (e *Engine) Mode() braille.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modes.Current()
}

// Overlay returns the tracker recording dot keys per emitted character.
func (e *Engine) Overlay() *overlay.Tracker {
	return e.tracker
}

// SetOverlayEnabled turns overlay recording on or off. Disabling clears
// the current record.
func (e *Engine) SetOverlayEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlayOff = !enabled
	if !enabled {
		e.tracker.Clear()
	}
}

// OverlayEnabled reports whether overlay recording is active.
func (e *Engine) OverlayEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.overlayOff
}

// ReloadTables swaps in freshly unified tables, resetting matcher state,
// the mode stack, scope and pending modifier; the current mode is kept.
// Used when profile files change on disk.
func (e *Engine) ReloadTables(tables *unify.Tables) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.modes.Current()
	e.tables = tables
	e.multi = match.NewMultiCellMatcher(tables.MultiCells)
	e.indic = match.NewIndicatorMatcher(tables.Indicators)
	e.modes.Reset()
	e.modes.Force(cur)
	e.multi.SetMode(cur)
	e.numericMode = false
	e.kanaBracketNext = false
}

// SetCursor moves the overlay recording position. The host calls this
// when its cursor moves for reasons other than engine emissions.
func (e *Engine) SetCursor(line, col int) {
	e.mu.Lock()
	e.line, e.col = line, col
	e.mu.Unlock()
}

// Stats reports emission counters: characters emitted, emissions failed,
// and profile entries discarded during unification.
func (e *Engine) Stats() (emitted, failed uint64, discarded int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emitted, e.emitFailed, e.tables.Discarded
}

// ProcessChord interprets one closed chord. A chord containing the space
// dot flushes all pending matcher state and emits a space; any other
// chord enters the matching pipeline.
func (e *Engine) ProcessChord(set braille.DotSet) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if set.HasSpace() {
		e.processSpace()
		return
	}
	key := set.Key()
	if key == "" {
		return
	}
	e.processCell(key)
}

// ProcessDots is a convenience wrapper over ProcessChord.
func (e *Engine) ProcessDots(dots ...int) {
	e.ProcessChord(braille.NewDotSet(dots...))
}

// Flush forces pending matcher buffers through the rest of the pipeline
// without emitting a space.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushMatchers()
}

// Reset restores the engine to its initial state: matchers cleared, mode
// machine at base, flags cleared, overlay dropped.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multi.Reset()
	e.indic.Reset()
	e.modes.Reset()
	e.multi.SetMode(e.modes.Current())
	e.numericMode = false
	e.kanaBracketNext = false
	e.tracker.Clear()
	e.line, e.col = 0, 0
}

// ForceMode abandons pending input and switches directly to the given
// mode, as driven by a host command rather than an indicator.
func (e *Engine) ForceMode(m braille.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multi.Reset()
	e.indic.Reset()
	e.modes.Force(m)
	e.numericMode = false
}

// ToggleMode cycles grade1 → grade2 → kana → nemeth → grade1 and returns
// the new mode.
func (e *Engine) ToggleMode() braille.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	order := braille.Modes()
	cur := e.modes.Current()
	next := order[0]
	for i, m := range order {
		if m == cur {
			next = order[(i+1)%len(order)]
			break
		}
	}
	e.multi.Reset()
	e.indic.Reset()
	e.modes.Force(next)
	e.numericMode = false
	return next
}

// processCell runs one cell key through the pipeline, multi-cell stage
// first.
func (e *Engine) processCell(key string) {
	r := e.multi.Offer(key)
	switch r.Outcome {
	case match.Matched:
		e.emitMultiCell(r.Entry)
	case match.MatchedLeftover:
		e.emitMultiCell(r.Entry)
		for _, cell := range r.Leftover {
			e.offerIndicator(cell)
		}
	case match.Pending:
		return
	case match.None:
		for _, cell := range r.Buffered {
			e.offerIndicator(cell)
		}
	}
}

// offerIndicator runs one cell through the indicator stage.
func (e *Engine) offerIndicator(key string) {
	r := e.indic.Offer(key)
	switch r.Outcome {
	case match.Matched:
		e.applyIndicator(r.Indicator)
	case match.MatchedLeftover:
		e.applyIndicator(r.Indicator)
		for _, cell := range r.Leftover {
			e.emitSingleCell(cell)
		}
	case match.Pending:
		return
	case match.None:
		for _, cell := range r.Buffered {
			e.emitSingleCell(cell)
		}
	}
}

func (e *Engine) applyIndicator(ind *unify.Indicator) {
	e.modes.ProcessIndicator(ind)
	if ind.Modifier == unify.ModifierNumeric {
		e.numericMode = true
	}
}

// emitSingleCell resolves and emits one single-cell character.
func (e *Engine) emitSingleCell(key string) {
	modifier := e.modes.ConsumeModifier()

	text := ""
	viaNumeric := false
	if e.numericMode || modifier == unify.ModifierNumeric {
		if m, ok := e.tables.Numeric[key]; ok {
			text = m.Print
			viaNumeric = true
		} else {
			e.numericMode = false
		}
	}

	if !viaNumeric {
		text = e.lookupPrint(key)
	}

	if e.modes.Current() == braille.Kana && key == kanaToggleKey {
		if e.kanaBracketNext {
			text = kanaBracketClose
		} else {
			text = kanaBracketOpen
		}
		e.kanaBracketNext = !e.kanaBracketNext
	}

	if modifier == unify.ModifierCapital {
		text = strings.ToUpper(text)
	}

	e.deliver(text, key)
	e.modes.OnCharacterEmitted()
	e.numericMode = viaNumeric
}

// lookupPrint resolves a dot key in the single-cell table under the
// current mode, falling back to grade 1, then to the literal Unicode
// braille glyph.
func (e *Engine) lookupPrint(key string) string {
	entry, ok := e.tables.SingleCells[key]
	if !ok {
		return braille.KeyString(key)
	}
	if m, ok := entry.Mappings[e.modes.Current()]; ok {
		return m.Print
	}
	if m, ok := entry.Mappings[braille.Grade1]; ok {
		return m.Print
	}
	return braille.KeyString(key)
}

func (e *Engine) emitMultiCell(entry *unify.MultiCell) {
	e.deliver(entry.Print, entry.DotsKey)
	e.modes.OnCharacterEmitted()
	e.numericMode = false
}

// processSpace flushes both matchers through the downstream stages, then
// emits the space itself.
func (e *Engine) processSpace() {
	e.flushMatchers()
	e.deliver(" ", "")
	e.modes.OnSpace()
	e.numericMode = false
}

func (e *Engine) flushMatchers() {
	for _, cell := range e.multi.FlushPending() {
		e.offerIndicator(cell)
	}
	for _, cell := range e.indic.FlushPending() {
		e.emitSingleCell(cell)
	}
}

// deliver hands one emission to the host and records it in the overlay.
// Host failures are counted and do not disturb pipeline state.
func (e *Engine) deliver(text, dotKey string) {
	if err := e.emit(text, dotKey); err != nil {
		e.emitFailed++
		e.lastEmitErr = err
		return
	}
	e.emitted++
	if !e.overlayOff {
		e.tracker.Record(e.line, e.col, dotKey)
	}
	e.col++
}

// LastEmitError returns the most recent emission failure, or nil.
func (e *Engine) LastEmitError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastEmitErr
}
