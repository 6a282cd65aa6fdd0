// Package unify compiles authored braille profiles into the immutable
// lookup tables the engine matches against: the single-cell table, the
// numeric table, the indicator list, and the multi-cell list.
//
// Profile data is treated as authoritative: entries that cannot be
// classified (bad dot strings, missing print) are discarded and counted,
// never reported as errors.
package unify

import (
	"sort"
	"strings"

	"brailled/internal/braille"
	"brailled/internal/profile"
)

// Mapping is one resolved print mapping for a single cell in one mode.
type Mapping struct {
	Print string
	Role  string
	ID    string
}

// SingleCell is the unified entry for one dot key across modes.
type SingleCell struct {
	Dots     string
	Mappings map[braille.Mode]Mapping
}

// Action says whether an indicator enters or exits its target mode.
type Action uint8

const (
	Enter Action = iota
	Exit
)

// Scope says how long an entered mode persists.
type Scope uint8

const (
	// ScopeSymbol covers exactly one following character.
	ScopeSymbol Scope = iota
	// ScopeWord runs to the next space.
	ScopeWord
	// ScopePassage runs until an explicit exit indicator.
	ScopePassage
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeSymbol:
		return "symbol"
	case ScopeWord:
		return "word"
	default:
		return "passage"
	}
}

// Kind distinguishes mode switches from modifier flags.
type Kind uint8

const (
	ModeSwitch Kind = iota
	ModifierKind
)

// Modifier identifies what a modifier indicator flags.
type Modifier uint8

const (
	ModifierNone Modifier = iota
	ModifierCapital
	ModifierNumeric
	ModifierTypeform
)

// String returns the modifier name.
func (m Modifier) String() string {
	switch m {
	case ModifierCapital:
		return "capital"
	case ModifierNumeric:
		return "numeric"
	case ModifierTypeform:
		return "typeform"
	default:
		return "none"
	}
}

// Indicator is one unified indicator definition.
type Indicator struct {
	ID         string
	Cells      []string // canonical per-cell dot keys, in order
	DotsKey    string   // Cells joined by the cell separator
	Action     Action
	TargetMode braille.Mode
	Scope      Scope
	Kind       Kind
	Modifier   Modifier
	Tags       []string
}

// HasTag reports whether the indicator carries the given tag.
func (ind *Indicator) HasTag(tag string) bool {
	for _, t := range ind.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MultiCell is one unified multi-cell character sequence.
type MultiCell struct {
	ID      string
	Cells   []string
	DotsKey string
	Print   string
	Mode    braille.Mode
	Role    string
}

// Tables holds the four unified lookup structures. Built once at startup;
// immutable afterwards.
type Tables struct {
	SingleCells map[string]*SingleCell
	Numeric     map[string]Mapping
	Indicators  []*Indicator
	MultiCells  []*MultiCell

	// Discarded counts profile entries that could not be classified.
	Discarded int
}

// Build compiles the given profiles, keyed by system id, into unified
// tables. Systems are processed in sorted id order and records in list
// order, so conflict resolution is deterministic.
func Build(systems map[string][]*profile.Record) *Tables {
	t := &Tables{
		SingleCells: make(map[string]*SingleCell),
		Numeric:     make(map[string]Mapping),
	}

	ids := make([]string, 0, len(systems))
	for id := range systems {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, rec := range systems[id] {
			modes := derivedModes(id, rec.BrailleType)
			for i := range rec.Entries {
				t.addEntry(&rec.Entries[i], modes)
			}
		}
	}
	return t
}

// derivedModes maps a profile's system id and braille type onto the modes
// its entries apply to.
func derivedModes(systemID, brailleType string) []braille.Mode {
	switch systemID {
	case "kana":
		return []braille.Mode{braille.Kana}
	case "nemeth":
		return []braille.Mode{braille.Nemeth}
	}
	hasG1 := strings.Contains(brailleType, "grade1")
	hasG2 := strings.Contains(brailleType, "grade2")
	switch {
	case hasG1 && hasG2:
		return []braille.Mode{braille.Grade1, braille.Grade2}
	case hasG2:
		return []braille.Mode{braille.Grade2}
	default:
		return []braille.Mode{braille.Grade1}
	}
}

func (t *Tables) addEntry(e *profile.Entry, modes []braille.Mode) {
	cells, ok := canonicalCells(e.Dots)
	if !ok {
		t.Discarded++
		return
	}

	if e.Role == "indicator" || e.Category == "indicator" {
		t.Indicators = append(t.Indicators, classifyIndicator(e, cells))
		return
	}

	print := e.PrintText()
	if print == "" {
		t.Discarded++
		return
	}

	switch {
	case len(cells) == 1:
		t.addSingleCell(e, cells[0], print, modes)
	case len(cells) >= 2:
		key := strings.Join(cells, braille.CellSeparator)
		for _, m := range modes {
			t.MultiCells = append(t.MultiCells, &MultiCell{
				ID:      e.ID,
				Cells:   cells,
				DotsKey: key,
				Print:   print,
				Mode:    m,
				Role:    e.Role,
			})
		}
	default:
		t.Discarded++
	}
}

func (t *Tables) addSingleCell(e *profile.Entry, key, print string, modes []braille.Mode) {
	entry, ok := t.SingleCells[key]
	if !ok {
		entry = &SingleCell{
			Dots:     key,
			Mappings: make(map[braille.Mode]Mapping),
		}
		t.SingleCells[key] = entry
	}

	m := Mapping{Print: print, Role: e.Role, ID: e.ID}
	for _, mode := range modes {
		existing, present := entry.Mappings[mode]
		if !present || rolePriority(m.Role) > rolePriority(existing.Role) {
			entry.Mappings[mode] = m
		}
	}

	if e.Role == "numbers" {
		if _, present := t.Numeric[key]; !present {
			t.Numeric[key] = m
		}
	}
}

// rolePriority totally orders roles for single-cell conflict resolution:
// paired punctuation beats plain punctuation, punctuation beats
// contractions, letters beat digits. Equal priority is first-writer-wins.
func rolePriority(role string) int {
	switch role {
	case "open", "close":
		return 5
	case "punctuation":
		return 4
	case "groupsigns", "wordsigns", "contraction", "contractions":
		return 3
	case "letter", "letters":
		return 2
	case "numbers":
		return 1
	default:
		return 0
	}
}

// modifierSubcategories maps indicator subcategories to modifier values.
var modifierSubcategories = map[string]Modifier{
	"capital":   ModifierCapital,
	"numeric":   ModifierNumeric,
	"italic":    ModifierTypeform,
	"bold":      ModifierTypeform,
	"underline": ModifierTypeform,
	"script":    ModifierTypeform,
}

func classifyIndicator(e *profile.Entry, cells []string) *Indicator {
	ind := &Indicator{
		ID:      e.ID,
		Cells:   cells,
		DotsKey: strings.Join(cells, braille.CellSeparator),
		Tags:    append([]string(nil), e.Tags...),
	}

	if e.HasTag("terminator") || strings.Contains(e.ID, "terminator") {
		ind.Action = Exit
	} else {
		ind.Action = Enter
	}

	if mod, ok := modifierSubcategories[e.Subcategory]; ok {
		ind.Kind = ModifierKind
		ind.Modifier = mod
	} else {
		ind.Kind = ModeSwitch
	}

	switch {
	case e.HasTag("kana") || e.Subcategory == "kana":
		ind.TargetMode = braille.Kana
	case e.HasTag("nemeth") || e.Subcategory == "nemeth":
		ind.TargetMode = braille.Nemeth
	default:
		ind.TargetMode = braille.Grade1
	}

	switch {
	case e.HasTag("passage"):
		ind.Scope = ScopePassage
	case e.HasTag("word"):
		ind.Scope = ScopeWord
	default:
		ind.Scope = ScopeSymbol
	}
	return ind
}

func canonicalCells(dots []string) ([]string, bool) {
	if len(dots) == 0 {
		return nil, false
	}
	cells := make([]string, len(dots))
	for i, d := range dots {
		c, err := braille.CanonicalizeCell(d)
		if err != nil || c == "" {
			return nil, false
		}
		cells[i] = c
	}
	return cells, true
}

// IndicatorByKey returns the indicator whose dots key equals key, or nil.
// At most one exists by construction.
func (t *Tables) IndicatorByKey(key string) *Indicator {
	for _, ind := range t.Indicators {
		if ind.DotsKey == key {
			return ind
		}
	}
	return nil
}
