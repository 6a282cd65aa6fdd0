package profile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		const url = "profile-v1.schema.json"
		if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(url)
	})
	return schema, schemaErr
}

// LoadFile reads and validates a single profile file. The format is chosen
// by extension: .json, .yaml, or .yml.
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported profile extension %q", filepath.Ext(path))
	}
}

// ParseJSON validates and decodes a JSON profile document.
func ParseJSON(data []byte) (*Record, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parse profile json: %w", err)
	}
	if err := validateInstance(instance); err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &rec, nil
}

// ParseYAML converts a YAML profile document to its JSON form, validates
// it, and decodes it.
func ParseYAML(data []byte) (*Record, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse profile yaml: %w", err)
	}

	// Round-trip through JSON so the schema validator and the decoder see
	// the same shapes a native JSON profile would produce.
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert profile yaml: %w", err)
	}
	return ParseJSON(jsonData)
}

func validateInstance(instance any) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("profile schema validation: %w", err)
	}
	return nil
}

// LoadIssue records a profile file that could not be loaded. Bad files are
// skipped, matching the discard posture of the unifier.
type LoadIssue struct {
	Path string
	Err  error
}

// LoadDir loads every profile file in dir (non-recursive). Files that fail
// to parse or validate are reported as issues, not errors.
func LoadDir(dir string) ([]*Record, []LoadIssue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read profile directory: %w", err)
	}

	var (
		records []*Record
		issues  []LoadIssue
	)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		rec, err := LoadFile(path)
		if err != nil {
			issues = append(issues, LoadIssue{Path: path, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, issues, nil
}

// BySystem groups records by system id, preserving load order within each
// system. This is the shape the unifier consumes.
func BySystem(records []*Record) map[string][]*Record {
	out := make(map[string][]*Record)
	for _, r := range records {
		out[r.SystemID] = append(out[r.SystemID], r)
	}
	return out
}
