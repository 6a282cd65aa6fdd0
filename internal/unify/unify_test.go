package unify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brailled/internal/braille"
	"brailled/internal/profile"
)

func strptr(s string) *string { return &s }

func record(systemID, brailleType string, entries ...profile.Entry) *profile.Record {
	return &profile.Record{
		SchemaVersion: 1,
		SystemID:      systemID,
		BrailleType:   brailleType,
		CellSize:      6,
		Entries:       entries,
	}
}

func build(records ...*profile.Record) *Tables {
	return Build(profile.BySystem(records))
}

func TestDerivedModes(t *testing.T) {
	tests := []struct {
		name        string
		systemID    string
		brailleType string
		want        []braille.Mode
	}{
		{"kana system", "kana", "anything", []braille.Mode{braille.Kana}},
		{"nemeth system", "nemeth", "math", []braille.Mode{braille.Nemeth}},
		{"both grades", "ueb", "ueb grade1 grade2", []braille.Mode{braille.Grade1, braille.Grade2}},
		{"grade2 only", "ueb", "grade2", []braille.Mode{braille.Grade2}},
		{"grade1 only", "ueb", "grade1", []braille.Mode{braille.Grade1}},
		{"unspecified", "ueb", "literary", []braille.Mode{braille.Grade1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, derivedModes(tt.systemID, tt.brailleType))
		})
	}
}

func TestSingleCellUnderEveryDerivedMode(t *testing.T) {
	tables := build(record("ueb", "grade1 grade2", profile.Entry{
		Category: "letter", Role: "letter", Print: strptr("a"), Dots: []string{"1"}, ID: "a",
	}))

	entry := tables.SingleCells["1"]
	require.NotNil(t, entry)
	assert.Equal(t, "a", entry.Mappings[braille.Grade1].Print)
	assert.Equal(t, "a", entry.Mappings[braille.Grade2].Print)
	_, hasKana := entry.Mappings[braille.Kana]
	assert.False(t, hasKana)
}

func TestCellCanonicalisation(t *testing.T) {
	tables := build(record("ueb", "grade1", profile.Entry{
		Category: "digit", Role: "numbers", Print: strptr("9"), Dots: []string{"42"}, ID: "d9",
	}))

	require.Contains(t, tables.SingleCells, "24")
	require.Contains(t, tables.Numeric, "24")
}

func TestMultiCellClassification(t *testing.T) {
	tables := build(record("ueb", "grade1", profile.Entry{
		Category: "punctuation", Role: "open", Print: strptr("("), Dots: []string{"5", "621"}, ID: "paren",
	}))

	require.Len(t, tables.MultiCells, 1)
	mc := tables.MultiCells[0]
	assert.Equal(t, "5|126", mc.DotsKey)
	assert.Equal(t, []string{"5", "126"}, mc.Cells)
	assert.Equal(t, braille.Grade1, mc.Mode)
}

func TestDiscards(t *testing.T) {
	tables := build(record("ueb", "grade1",
		profile.Entry{Category: "letter", Role: "letter", Print: nil, Dots: []string{"1"}, ID: "noprint"},
		profile.Entry{Category: "letter", Role: "letter", Print: strptr("x"), Dots: []string{"1x"}, ID: "baddots"},
		profile.Entry{Category: "letter", Role: "letter", Print: strptr("y"), Dots: nil, ID: "nodots"},
		profile.Entry{Category: "letter", Role: "letter", Print: strptr(""), Dots: []string{"2"}, ID: "emptyprint"},
	))

	assert.Equal(t, 4, tables.Discarded)
	assert.Empty(t, tables.SingleCells)
}

func TestPairedRoleOverridesPlain(t *testing.T) {
	// "?" arrives first, the open quote second; open wins the cell.
	tables := build(record("ueb", "grade1",
		profile.Entry{Category: "punctuation", Role: "punctuation", Print: strptr("?"), Dots: []string{"236"}, ID: "question"},
		profile.Entry{Category: "punctuation", Role: "open", Print: strptr("“"), Dots: []string{"236"}, ID: "quote"},
	))

	m := tables.SingleCells["236"].Mappings[braille.Grade1]
	assert.Equal(t, "“", m.Print)
	assert.Equal(t, "open", m.Role)
}

func TestPunctuationBeatsContraction(t *testing.T) {
	// "." is present; the "dis" groupsign contests the same cell and
	// loses, regardless of arrival order.
	first := build(record("ueb", "grade1 grade2",
		profile.Entry{Category: "punctuation", Role: "punctuation", Print: strptr("."), Dots: []string{"256"}, ID: "period"},
		profile.Entry{Category: "contraction", Role: "groupsigns", Print: strptr("dis"), Dots: []string{"256"}, ID: "dis"},
	))
	assert.Equal(t, ".", first.SingleCells["256"].Mappings[braille.Grade2].Print)

	second := build(record("ueb", "grade1 grade2",
		profile.Entry{Category: "contraction", Role: "groupsigns", Print: strptr("dis"), Dots: []string{"256"}, ID: "dis"},
		profile.Entry{Category: "punctuation", Role: "punctuation", Print: strptr("."), Dots: []string{"256"}, ID: "period"},
	))
	assert.Equal(t, ".", second.SingleCells["256"].Mappings[braille.Grade2].Print)
}

func TestEqualPriorityFirstWriterWins(t *testing.T) {
	tables := build(record("ueb", "grade1",
		profile.Entry{Category: "letter", Role: "letter", Print: strptr("a"), Dots: []string{"1"}, ID: "first"},
		profile.Entry{Category: "letter", Role: "letter", Print: strptr("b"), Dots: []string{"1"}, ID: "second"},
	))

	assert.Equal(t, "a", tables.SingleCells["1"].Mappings[braille.Grade1].Print)
}

func TestLetterBeatsDigitInSingleCellTable(t *testing.T) {
	tables := build(record("ueb", "grade1",
		profile.Entry{Category: "digit", Role: "numbers", Print: strptr("1"), Dots: []string{"1"}, ID: "d1"},
		profile.Entry{Category: "letter", Role: "letter", Print: strptr("a"), Dots: []string{"1"}, ID: "a"},
	))

	// Letter wins the single-cell table; the digit stays reachable
	// through the numeric table.
	assert.Equal(t, "a", tables.SingleCells["1"].Mappings[braille.Grade1].Print)
	assert.Equal(t, "1", tables.Numeric["1"].Print)
}

func TestNumericTableFirstWriterWins(t *testing.T) {
	tables := build(record("ueb", "grade1",
		profile.Entry{Category: "digit", Role: "numbers", Print: strptr("1"), Dots: []string{"1"}, ID: "d1"},
		profile.Entry{Category: "digit", Role: "numbers", Print: strptr("7"), Dots: []string{"1"}, ID: "dup"},
	))

	assert.Equal(t, "1", tables.Numeric["1"].Print)
}

func TestNumericTableOnlyNumbersRole(t *testing.T) {
	tables := build(record("ueb", "grade1", profile.Entry{
		Category: "letter", Role: "letter", Print: strptr("a"), Dots: []string{"1"}, ID: "a",
	}))
	assert.Empty(t, tables.Numeric)
}

func TestIndicatorClassification(t *testing.T) {
	tables := build(record("ueb", "grade1 grade2",
		profile.Entry{Category: "indicator", Subcategory: "capital", Role: "indicator", Dots: []string{"6"}, ID: "cap"},
		profile.Entry{Category: "indicator", Subcategory: "capital", Role: "indicator", Dots: []string{"6", "3"}, Tags: []string{"terminator"}, ID: "cap.term"},
		profile.Entry{Category: "indicator", Subcategory: "numeric", Role: "indicator", Dots: []string{"3456"}, Tags: []string{"word"}, ID: "num"},
		profile.Entry{Category: "indicator", Subcategory: "italic", Role: "indicator", Dots: []string{"46", "23"}, ID: "italic"},
	))

	require.Len(t, tables.Indicators, 4)

	capital := tables.IndicatorByKey("6")
	require.NotNil(t, capital)
	assert.Equal(t, Enter, capital.Action)
	assert.Equal(t, ModifierKind, capital.Kind)
	assert.Equal(t, ModifierCapital, capital.Modifier)
	assert.Equal(t, ScopeSymbol, capital.Scope)

	term := tables.IndicatorByKey("6|3")
	require.NotNil(t, term)
	assert.Equal(t, Exit, term.Action)

	num := tables.IndicatorByKey("3456")
	require.NotNil(t, num)
	assert.Equal(t, ModifierNumeric, num.Modifier)
	assert.Equal(t, ScopeWord, num.Scope)

	italic := tables.IndicatorByKey("46|23")
	require.NotNil(t, italic)
	assert.Equal(t, ModifierTypeform, italic.Modifier)
}

func TestIndicatorTerminatorByIDSubstring(t *testing.T) {
	tables := build(record("kana", "kana", profile.Entry{
		Category: "indicator", Subcategory: "kana", Role: "indicator",
		Dots: []string{"16", "3"}, ID: "kana.indicator.terminator",
	}))

	ind := tables.IndicatorByKey("16|3")
	require.NotNil(t, ind)
	assert.Equal(t, Exit, ind.Action)
}

func TestIndicatorTargetModeAndScope(t *testing.T) {
	tables := build(
		record("kana", "kana", profile.Entry{
			Category: "indicator", Subcategory: "kana", Role: "indicator",
			Dots: []string{"16", "13"}, Tags: []string{"kana", "passage"}, ID: "kana.enter",
		}),
		record("nemeth", "math", profile.Entry{
			Category: "indicator", Subcategory: "nemeth", Role: "indicator",
			Dots: []string{"456", "146"}, Tags: []string{"nemeth", "passage"}, ID: "nemeth.enter",
		}),
		record("ueb", "grade1", profile.Entry{
			Category: "indicator", Subcategory: "grade1", Role: "indicator",
			Dots: []string{"56"}, ID: "g1",
		}),
	)

	kana := tables.IndicatorByKey("16|13")
	require.NotNil(t, kana)
	assert.Equal(t, braille.Kana, kana.TargetMode)
	assert.Equal(t, ScopePassage, kana.Scope)
	assert.Equal(t, ModeSwitch, kana.Kind)

	nem := tables.IndicatorByKey("456|146")
	require.NotNil(t, nem)
	assert.Equal(t, braille.Nemeth, nem.TargetMode)

	g1 := tables.IndicatorByKey("56")
	require.NotNil(t, g1)
	assert.Equal(t, braille.Grade1, g1.TargetMode)
	assert.Equal(t, ScopeSymbol, g1.Scope)
}

func TestIndicatorByRoleWithoutCategory(t *testing.T) {
	tables := build(record("ueb", "grade1", profile.Entry{
		Category: "punctuation", Role: "indicator", Dots: []string{"6"}, ID: "byrole",
	}))
	assert.Len(t, tables.Indicators, 1)
}

func TestBuiltinProfilesUnify(t *testing.T) {
	records, err := profile.Builtin()
	require.NoError(t, err)
	tables := Build(profile.BySystem(records))

	assert.Zero(t, tables.Discarded)
	assert.NotEmpty(t, tables.SingleCells)
	assert.NotEmpty(t, tables.Numeric)
	assert.NotEmpty(t, tables.Indicators)
	assert.NotEmpty(t, tables.MultiCells)

	// The letters a-j and the digits 1-0 share their dot patterns.
	assert.Equal(t, "a", tables.SingleCells["1"].Mappings[braille.Grade1].Print)
	assert.Equal(t, "1", tables.Numeric["1"].Print)
	assert.Equal(t, "0", tables.Numeric["245"].Print)

	// The contested 236 cell resolves to the paired open quote.
	assert.Equal(t, "open", tables.SingleCells["236"].Mappings[braille.Grade1].Role)
}
