package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "schema_version": 1,
  "system_id": "test",
  "system_name": "Test System",
  "locale": "en",
  "braille_type": "grade1",
  "cell_size": 6,
  "entries": [
    {
      "category": "letter",
      "subcategory": "latin",
      "role": "letter",
      "print": "a",
      "dots": ["1"],
      "tags": [],
      "id": "test.a"
    },
    {
      "category": "indicator",
      "subcategory": "capital",
      "role": "indicator",
      "print": null,
      "dots": ["6"],
      "tags": ["word"],
      "id": "test.capital"
    }
  ]
}`

const validYAML = `
schema_version: 1
system_id: test
system_name: Test System
locale: en
braille_type: grade1
cell_size: 6
entries:
  - category: letter
    subcategory: latin
    role: letter
    print: a
    dots: ["1"]
    tags: []
    id: test.a
  - category: punctuation
    role: open
    print: "("
    dots: ["5", "126"]
    tags: []
    id: test.paren
    context:
      position: any
      requires_indicator: false
      priority: 2
`

func TestParseJSON(t *testing.T) {
	rec, err := ParseJSON([]byte(validJSON))
	require.NoError(t, err)

	assert.Equal(t, "test", rec.SystemID)
	assert.Equal(t, "grade1", rec.BrailleType)
	require.Len(t, rec.Entries, 2)

	letter := rec.Entries[0]
	assert.Equal(t, "a", letter.PrintText())
	assert.Equal(t, []string{"1"}, letter.Dots)

	indicator := rec.Entries[1]
	assert.Nil(t, indicator.Print)
	assert.Equal(t, "", indicator.PrintText())
	assert.True(t, indicator.HasTag("word"))
	assert.False(t, indicator.HasTag("passage"))
}

func TestParseYAML(t *testing.T) {
	rec, err := ParseYAML([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", rec.SystemID)
	require.Len(t, rec.Entries, 2)
	paren := rec.Entries[1]
	assert.Equal(t, []string{"5", "126"}, paren.Dots)
	require.NotNil(t, paren.Context)
	assert.Equal(t, 2, paren.Context.Priority)
}

func TestParseJSONSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing system_id", `{"schema_version":1,"braille_type":"grade1","entries":[]}`},
		{"entries not array", `{"schema_version":1,"system_id":"x","braille_type":"grade1","entries":{}}`},
		{"entry missing dots", `{"schema_version":1,"system_id":"x","braille_type":"grade1","entries":[{"category":"letter","role":"letter","id":"a"}]}`},
		{"bad cell size", `{"schema_version":1,"system_id":"x","braille_type":"grade1","cell_size":8,"entries":[]}`},
		{"not json", `not json at all`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "test.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(validJSON), 0o644))
	yamlPath := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(validYAML), 0o644))

	fromJSON, err := LoadFile(jsonPath)
	require.NoError(t, err)
	fromYAML, err := LoadFile(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.SystemID, fromYAML.SystemID)

	_, err = LoadFile(filepath.Join(dir, "test.txt"))
	assert.Error(t, err)
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(validJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"broken":`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("nope"), 0o644))

	records, issues, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0].Path, "bad.json")
}

func TestLoadDirMissing(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestBySystem(t *testing.T) {
	a1 := &Record{SystemID: "a"}
	a2 := &Record{SystemID: "a"}
	b := &Record{SystemID: "b"}

	grouped := BySystem([]*Record{a1, b, a2})
	assert.Len(t, grouped["a"], 2)
	assert.Len(t, grouped["b"], 1)
	assert.Same(t, a1, grouped["a"][0])
}

func TestBuiltin(t *testing.T) {
	records, err := Builtin()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	systems := make(map[string]bool)
	for _, r := range records {
		systems[r.SystemID] = true
		assert.Equal(t, SchemaVersion, r.SchemaVersion)
		assert.NotEmpty(t, r.Entries)
	}
	assert.True(t, systems["ueb"])
	assert.True(t, systems["kana"])
	assert.True(t, systems["nemeth"])
}
