// Package profile defines the authored braille profile format and loads
// profile records from JSON or YAML files.
//
// A profile describes one braille system at one grade: its entries map dot
// patterns to print characters, indicators, and multi-cell sequences. The
// engine treats profile data as authoritative; malformed entries are
// discarded downstream, never fatal.
package profile

// SchemaVersion is the profile schema version this build understands.
const SchemaVersion = 1

// Record is one parsed profile file.
type Record struct {
	SchemaVersion int    `json:"schema_version" yaml:"schema_version"`
	SystemID      string `json:"system_id" yaml:"system_id"`
	SystemName    string `json:"system_name" yaml:"system_name"`
	Locale        string `json:"locale" yaml:"locale"`
	BrailleType   string `json:"braille_type" yaml:"braille_type"`
	CellSize      int    `json:"cell_size" yaml:"cell_size"`

	Entries []Entry `json:"entries" yaml:"entries"`
}

// Entry is one raw profile entry. Dots holds one digit string per cell,
// in cell order; digits within a cell may appear in any order and are
// canonicalised by the unifier.
type Entry struct {
	Category    string   `json:"category" yaml:"category"`
	Subcategory string   `json:"subcategory" yaml:"subcategory"`
	Role        string   `json:"role" yaml:"role"`
	Print       *string  `json:"print" yaml:"print"`
	Dots        []string `json:"dots" yaml:"dots"`
	Tags        []string `json:"tags" yaml:"tags"`
	ID          string   `json:"id" yaml:"id"`
	Note        string   `json:"note,omitempty" yaml:"note,omitempty"`

	// Context carries provenance used by authoring tools. The engine
	// retains it but does not consult it during matching.
	Context *Context `json:"context,omitempty" yaml:"context,omitempty"`
}

// Context is optional provenance metadata on an entry.
type Context struct {
	Position          string `json:"position,omitempty" yaml:"position,omitempty"`
	RequiresIndicator bool   `json:"requires_indicator,omitempty" yaml:"requires_indicator,omitempty"`
	Priority          int    `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// HasTag reports whether the entry carries the given tag.
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PrintText returns the print string, or "" when print is null.
func (e *Entry) PrintText() string {
	if e.Print == nil {
		return ""
	}
	return *e.Print
}
