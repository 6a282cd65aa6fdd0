package profile

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed data/*.json
var builtinFS embed.FS

// Builtin returns the profiles compiled into the binary: UEB literary,
// UEB contracted, Japanese kana, and Nemeth. They are enough to run the
// engine without any profile directory configured.
func Builtin() ([]*Record, error) {
	entries, err := builtinFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("read builtin profiles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		data, err := builtinFS.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("read builtin profile %s: %w", name, err)
		}
		rec, err := ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("builtin profile %s: %w", name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
