// Package store keeps the SQLite profile catalog: every imported braille
// profile with its content hash, so the daemon can load its active
// profile set without re-reading loose files and can detect changed
// content cheaply.
//
// The catalog stores authored profile data only; no user typing state is
// ever persisted.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"brailled/internal/profile"
)

// Schema for the profile catalog.
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    system_id       TEXT NOT NULL,
    system_name     TEXT,
    locale          TEXT,
    braille_type    TEXT NOT NULL,
    schema_version  INTEGER NOT NULL,
    content_hash    BLOB NOT NULL UNIQUE,
    source_path     TEXT,
    raw_json        TEXT NOT NULL,
    imported_at     INTEGER NOT NULL,
    enabled         INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_profiles_system ON profiles(system_id);
`

// Store is the SQLite profile catalog.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at the given path and applies the
// schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Entry is one catalog row, without the raw profile body.
type Entry struct {
	ID          int64
	SystemID    string
	SystemName  string
	Locale      string
	BrailleType string
	ContentHash [32]byte
	SourcePath  string
	ImportedAt  time.Time
	Enabled     bool
}

// ContentHash fingerprints a profile's canonical JSON form.
func ContentHash(rec *profile.Record) ([32]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode profile: %w", err)
	}
	return blake2b.Sum256(data), nil
}

// Import stores a profile record. Unchanged content (same hash) is left
// alone; returns whether a new row was inserted.
func (s *Store) Import(rec *profile.Record, sourcePath string) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode profile: %w", err)
	}
	hash := blake2b.Sum256(data)

	res, err := s.db.Exec(`
		INSERT INTO profiles (system_id, system_name, locale, braille_type, schema_version, content_hash, source_path, raw_json, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING`,
		rec.SystemID, rec.SystemName, rec.Locale, rec.BrailleType, rec.SchemaVersion,
		hash[:], sourcePath, string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("import profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("import profile: %w", err)
	}
	return n > 0, nil
}

// Has reports whether a profile with the given content hash is stored.
func (s *Store) Has(hash [32]byte) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM profiles WHERE content_hash = ?`, hash[:]).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query catalog: %w", err)
	}
	return true, nil
}

// List returns all catalog entries, newest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, system_id, system_name, locale, braille_type, content_hash, source_path, imported_at, enabled
		FROM profiles ORDER BY imported_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			hash  []byte
			ns    int64
			enInt int
		)
		if err := rows.Scan(&e.ID, &e.SystemID, &e.SystemName, &e.Locale, &e.BrailleType, &hash, &e.SourcePath, &ns, &enInt); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		copy(e.ContentHash[:], hash)
		e.ImportedAt = time.Unix(0, ns)
		e.Enabled = enInt != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadEnabled decodes every enabled profile, oldest import first.
func (s *Store) LoadEnabled() ([]*profile.Record, error) {
	rows, err := s.db.Query(`SELECT raw_json FROM profiles WHERE enabled = 1 ORDER BY imported_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var records []*profile.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		var rec profile.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			// A row that no longer decodes is skipped, matching the
			// discard posture for bad profile data.
			continue
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// SetEnabled flips every profile of a system on or off.
func (s *Store) SetEnabled(systemID string, enabled bool) error {
	en := 0
	if enabled {
		en = 1
	}
	if _, err := s.db.Exec(`UPDATE profiles SET enabled = ? WHERE system_id = ?`, en, systemID); err != nil {
		return fmt.Errorf("update catalog: %w", err)
	}
	return nil
}

// Remove deletes every profile of a system.
func (s *Store) Remove(systemID string) error {
	if _, err := s.db.Exec(`DELETE FROM profiles WHERE system_id = ?`, systemID); err != nil {
		return fmt.Errorf("remove from catalog: %w", err)
	}
	return nil
}
