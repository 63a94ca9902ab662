// Package pack materializes the source-of-truth of every duplicate
// group (plus every ungrouped photo) into a content-addressable
// directory tree with an embedded SQLite manifest, mirroring the
// teacher's second embedded database for per-host metadata
// (internal/vault/filesystem.go's metadata/<hostID>.db) but keyed by
// content hash instead of host.
package pack

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const manifestSchema = `
CREATE TABLE IF NOT EXISTS entries (
	sha          TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	format       INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	captured_at  INTEGER,
	camera_model TEXT
);
`

// manifest wraps the pack's own SQLite database. Unlike the catalog,
// it is short-lived: opened and closed within a single Pack() call,
// so WAL mode buys nothing and is skipped.
type manifest struct {
	db *sql.DB
}

func openManifest(path string) (*manifest, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(manifestSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying manifest schema: %w", err)
	}
	return &manifest{db: db}, nil
}

func (m *manifest) Close() error { return m.db.Close() }

// shas returns every SHA currently recorded in the manifest.
func (m *manifest) shas() (map[string]bool, error) {
	rows, err := m.db.Query(`SELECT sha FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("listing manifest entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			return nil, fmt.Errorf("scanning manifest entry: %w", err)
		}
		out[sha] = true
	}
	return out, rows.Err()
}

func (m *manifest) has(sha string) (bool, error) {
	var count int
	err := m.db.QueryRow(`SELECT COUNT(1) FROM entries WHERE sha = ?`, sha).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking manifest entry: %w", err)
	}
	return count > 0, nil
}

func (m *manifest) upsert(e entry) error {
	_, err := m.db.Exec(`
		INSERT INTO entries (sha, filename, format, size, captured_at, camera_model)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			size = excluded.size,
			captured_at = excluded.captured_at,
			camera_model = excluded.camera_model`,
		e.sha, e.filename, int(e.format), e.size, e.capturedAt, e.cameraModel)
	if err != nil {
		return fmt.Errorf("upserting manifest entry %s: %w", e.sha, err)
	}
	return nil
}

func (m *manifest) remove(sha string) error {
	_, err := m.db.Exec(`DELETE FROM entries WHERE sha = ?`, sha)
	if err != nil {
		return fmt.Errorf("removing manifest entry %s: %w", sha, err)
	}
	return nil
}
