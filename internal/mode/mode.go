// Package mode tracks the active braille system, pending format modifiers,
// and scope-based auto-return.
//
// Entering a mode pushes the previous one onto a stack and makes the new
// mode's scope the single active scope (earlier scopes are not stacked):
// symbol scope covers exactly one character, word scope runs to the next
// space, passage scope to an explicit exit indicator. Grade 1 is the
// distinguished base mode.
package mode

import (
	"brailled/internal/braille"
	"brailled/internal/unify"
)

// ChangeFunc observes mode changes. ind is nil when the change was a
// scope-based auto-return rather than an explicit indicator.
type ChangeFunc func(old, new braille.Mode, ind *unify.Indicator)

// Machine is the mode state machine. Not safe for concurrent use; the
// driver serialises access.
type Machine struct {
	current     braille.Mode
	stack       []braille.Mode
	scope       unify.Scope
	scopeActive bool
	symbolCount int
	pending     unify.Modifier
	onChange    ChangeFunc
}

// New returns a machine in the initial state: grade 1, empty stack, no
// scope, no pending modifier.
func New() *Machine {
	return &Machine{current: braille.Grade1}
}

// Current returns the active mode.
func (m *Machine) Current() braille.Mode {
	return m.current
}

// Scope returns the active scope and whether one is active.
func (m *Machine) Scope() (unify.Scope, bool) {
	return m.scope, m.scopeActive
}

// Depth returns the mode stack depth.
func (m *Machine) Depth() int {
	return len(m.stack)
}

// PendingModifier returns the pending modifier without consuming it.
func (m *Machine) PendingModifier() unify.Modifier {
	return m.pending
}

// SetModeChangeCallback registers the mode-change observer. It fires
// strictly between the indicator that triggered the change and the next
// emission.
func (m *Machine) SetModeChangeCallback(cb ChangeFunc) {
	m.onChange = cb
}

// ProcessIndicator applies one matched indicator and reports whether any
// state changed.
func (m *Machine) ProcessIndicator(ind *unify.Indicator) bool {
	if ind.Kind == unify.ModifierKind {
		if ind.Action == unify.Enter {
			m.pending = ind.Modifier
		} else {
			m.pending = unify.ModifierNone
		}
		return true
	}

	if ind.Action == unify.Enter {
		if m.current == ind.TargetMode && m.scopeActive && m.scope == ind.Scope {
			return false
		}
		old := m.current
		m.stack = append(m.stack, m.current)
		m.current = ind.TargetMode
		m.scope = ind.Scope
		m.scopeActive = true
		m.symbolCount = 0
		m.fireChange(old, m.current, ind)
		return true
	}

	// Exit at base with an empty stack is a no-op.
	if m.current == braille.Grade1 && len(m.stack) == 0 {
		return false
	}
	m.exit(ind)
	return true
}

// ConsumeModifier returns the pending modifier and clears it.
func (m *Machine) ConsumeModifier() unify.Modifier {
	mod := m.pending
	m.pending = unify.ModifierNone
	return mod
}

// OnCharacterEmitted advances symbol-scope accounting: the first character
// emitted under symbol scope returns the machine to the previous mode.
func (m *Machine) OnCharacterEmitted() {
	if !m.scopeActive || m.scope != unify.ScopeSymbol {
		return
	}
	m.symbolCount++
	if m.symbolCount >= 1 {
		m.exit(nil)
	}
}

// OnSpace ends a word-scoped mode.
func (m *Machine) OnSpace() {
	if m.scopeActive && m.scope == unify.ScopeWord {
		m.exit(nil)
	}
}

// Force switches directly to the given mode, clearing the stack, scope,
// and pending modifier. Used by host commands; fires the callback with a
// nil indicator when the mode changes.
func (m *Machine) Force(target braille.Mode) {
	old := m.current
	m.current = target
	m.stack = nil
	m.scopeActive = false
	m.symbolCount = 0
	m.pending = unify.ModifierNone
	if old != target {
		m.fireChange(old, target, nil)
	}
}

// Reset restores the initial state without firing the callback.
func (m *Machine) Reset() {
	m.current = braille.Grade1
	m.stack = nil
	m.scopeActive = false
	m.symbolCount = 0
	m.pending = unify.ModifierNone
}

// exit pops the mode stack, restoring grade 1 when the stack is empty.
// ind is nil for scope-based auto-return.
func (m *Machine) exit(ind *unify.Indicator) {
	old := m.current
	if n := len(m.stack); n > 0 {
		m.current = m.stack[n-1]
		m.stack = m.stack[:n-1]
	} else {
		m.current = braille.Grade1
	}
	m.scopeActive = false
	m.symbolCount = 0
	m.fireChange(old, m.current, ind)
}

func (m *Machine) fireChange(old, new braille.Mode, ind *unify.Indicator) {
	if m.onChange != nil {
		m.onChange(old, new, ind)
	}
}
