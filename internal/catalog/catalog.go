// Package catalog is the embedded SQLite store of record: registered
// source directories, every scanned photo with its content/perceptual
// hashes and EXIF snapshot, and the duplicate groups rebuilt by the
// matcher each scan. Grounded on the teacher's database layer
// (sqlite3 driver, WAL pragmas, golang-migrate wiring) but hand-written
// with database/sql instead of sqlc, since the teacher's generated
// query package was not part of the retrieved material.
package catalog

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"photocore/internal/corerr"
	"photocore/internal/domain"
	"photocore/internal/hasher"
)

// Catalog wraps the catalog database. A Catalog is not safe for
// concurrent use from multiple goroutines; callers serialize access
// through the vault facade.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, applies
// pending migrations, and reconciles the stored schema_version and
// phash_version against the running code. A catalog newer than the
// code understands is refused outright.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, &corerr.CatalogError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, &corerr.CatalogError{Op: "enable WAL", Err: err}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, &corerr.CatalogError{Op: "enable foreign keys", Err: err}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, &corerr.CatalogError{Op: "migrate", Err: err}
	}

	c := &Catalog{db: db}
	if err := c.reconcileVersions(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// reconcileVersions checks the catalog's recorded schema_version and
// phash_version against the running code's constants. A schema newer
// than this binary understands is fatal. A perceptual-hash algorithm
// change invalidates every cached hash and forces recomputation on the
// next scan by clearing ahash/dhash and resetting mtime, which defeats
// the scanner's mtime-based skip.
func (c *Catalog) reconcileVersions() error {
	cfg, err := c.GetConfig()
	if err != nil {
		return err
	}

	if cfg.SchemaVersion > SchemaVersion {
		return &corerr.SchemaTooNewError{CatalogVersion: cfg.SchemaVersion, CodeVersion: SchemaVersion}
	}

	if cfg.PhashVersion != hasher.PhashVersion {
		tx, err := c.db.Begin()
		if err != nil {
			return &corerr.CatalogError{Op: "reconcile phash version", Err: err}
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`UPDATE photos SET ahash = NULL, dhash = NULL, mtime = 0`); err != nil {
			return &corerr.CatalogError{Op: "invalidate perceptual hashes", Err: err}
		}
		if _, err := tx.Exec(`UPDATE config SET value = ? WHERE key = 'phash_version'`, strconv.Itoa(hasher.PhashVersion)); err != nil {
			return &corerr.CatalogError{Op: "update phash_version", Err: err}
		}
		if err := tx.Commit(); err != nil {
			return &corerr.CatalogError{Op: "reconcile phash version", Err: err}
		}
	}

	return nil
}

// GetConfig reads the catalog's config table into a CatalogConfig.
func (c *Catalog) GetConfig() (domain.CatalogConfig, error) {
	rows, err := c.db.Query(`SELECT key, value FROM config`)
	if err != nil {
		return domain.CatalogConfig{}, &corerr.CatalogError{Op: "read config", Err: err}
	}
	defer rows.Close()

	cfg := domain.CatalogConfig{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.CatalogConfig{}, &corerr.CatalogError{Op: "scan config row", Err: err}
		}
		switch key {
		case "schema_version":
			v, _ := strconv.Atoi(value)
			cfg.SchemaVersion = v
		case "phash_version":
			v, _ := strconv.Atoi(value)
			cfg.PhashVersion = v
		case "pack_path":
			cfg.PackPath = &value
		case "export_path":
			cfg.ExportPath = &value
		}
	}
	return cfg, rows.Err()
}

// SetPackPath persists the active pack directory.
func (c *Catalog) SetPackPath(path string) error {
	return c.setConfigValue("pack_path", path)
}

// SetExportPath persists the active export directory.
func (c *Catalog) SetExportPath(path string) error {
	return c.setConfigValue("export_path", path)
}

func (c *Catalog) setConfigValue(key, value string) error {
	_, err := c.db.Exec(`INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return &corerr.CatalogError{Op: "set config " + key, Err: err}
	}
	return nil
}

// AddSource registers a source directory, idempotently. Re-adding an
// already-registered path is a no-op.
func (c *Catalog) AddSource(path string) (int64, error) {
	res, err := c.db.Exec(`INSERT INTO sources (path) VALUES (?) ON CONFLICT(path) DO NOTHING`, path)
	if err != nil {
		return 0, &corerr.CatalogError{Op: "add source", Err: err}
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		return id, nil
	}

	var id int64
	if err := c.db.QueryRow(`SELECT id FROM sources WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, &corerr.CatalogError{Op: "lookup source", Err: err}
	}
	return id, nil
}

// RemoveSource deletes a registered source and, via ON DELETE CASCADE,
// every photo recorded under it.
func (c *Catalog) RemoveSource(path string) error {
	_, err := c.db.Exec(`DELETE FROM sources WHERE path = ?`, path)
	if err != nil {
		return &corerr.CatalogError{Op: "remove source", Err: err}
	}
	return nil
}

// ListSources returns every registered source directory.
func (c *Catalog) ListSources() ([]domain.SourceDirectory, error) {
	rows, err := c.db.Query(`SELECT id, path, last_scan_at FROM sources ORDER BY path`)
	if err != nil {
		return nil, &corerr.CatalogError{Op: "list sources", Err: err}
	}
	defer rows.Close()

	var out []domain.SourceDirectory
	for rows.Next() {
		var s domain.SourceDirectory
		if err := rows.Scan(&s.ID, &s.Path, &s.LastScanAt); err != nil {
			return nil, &corerr.CatalogError{Op: "scan source row", Err: err}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSourceScanned stamps a source's last_scan_at.
func (c *Catalog) UpdateSourceScanned(sourceID int64, scannedAt int64) error {
	_, err := c.db.Exec(`UPDATE sources SET last_scan_at = ? WHERE id = ?`, scannedAt, sourceID)
	if err != nil {
		return &corerr.CatalogError{Op: "update source scanned", Err: err}
	}
	return nil
}

// BatchFetchMTimes returns the recorded mtime for every already-known
// path under sourceID, keyed by path. The scan orchestrator uses this to skip
// re-hashing files whose mtime has not changed since the last scan.
func (c *Catalog) BatchFetchMTimes(sourceID int64) (map[string]int64, error) {
	rows, err := c.db.Query(`SELECT path, mtime FROM photos WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, &corerr.CatalogError{Op: "batch fetch mtimes", Err: err}
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, &corerr.CatalogError{Op: "scan mtime row", Err: err}
		}
		out[path] = mtime
	}
	return out, rows.Err()
}

// CachedPerceptualHash looks up an already-computed (aHash, dHash) pair
// for content with the given SHA-256, letting a scan reuse the hash
// for byte-identical files discovered at a new path instead of
// redecoding and rehashing them.
func (c *Catalog) CachedPerceptualHash(sha256 string) (aHash, dHash uint64, ok bool, err error) {
	row := c.db.QueryRow(`SELECT ahash, dhash FROM photos WHERE sha256 = ? AND ahash IS NOT NULL AND dhash IS NOT NULL LIMIT 1`, sha256)
	var a, d sql.NullInt64
	if err := row.Scan(&a, &d); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, false, nil
		}
		return 0, 0, false, &corerr.CatalogError{Op: "lookup cached perceptual hash", Err: err}
	}
	if !a.Valid || !d.Valid {
		return 0, 0, false, nil
	}
	return uint64(a.Int64), uint64(d.Int64), true, nil
}

// UpsertPhoto records the result of Phase-A (content hash + EXIF) for
// a path, replacing any prior record at that path. The row keeps its
// id; its perceptual hashes are cleared until UpdatePerceptualHash
// records fresh ones.
func (c *Catalog) UpsertPhoto(p domain.PhotoRecord) (int64, error) {
	var capturedAt *int64
	if p.Exif.CapturedAt != nil {
		v := p.Exif.CapturedAt.Unix()
		capturedAt = &v
	}
	var orientation *int
	if p.Exif.Orientation != nil {
		v := int(*p.Exif.Orientation)
		orientation = &v
	}

	res, err := c.db.Exec(`
		INSERT INTO photos (path, source_id, sha256, size, mtime, format, captured_at, camera_model, orientation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			source_id = excluded.source_id,
			sha256 = excluded.sha256,
			size = excluded.size,
			mtime = excluded.mtime,
			format = excluded.format,
			captured_at = excluded.captured_at,
			camera_model = excluded.camera_model,
			orientation = excluded.orientation,
			ahash = NULL,
			dhash = NULL`,
		p.Path, p.SourceID, p.SHA256, p.Size, p.MTime, int(p.Format), capturedAt, p.Exif.CameraModel, orientation)
	if err != nil {
		return 0, &corerr.CatalogError{Op: "upsert photo", Err: err}
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		return id, nil
	}

	var id int64
	if err := c.db.QueryRow(`SELECT id FROM photos WHERE path = ?`, p.Path).Scan(&id); err != nil {
		return 0, &corerr.CatalogError{Op: "lookup upserted photo", Err: err}
	}
	return id, nil
}

// UpdatePerceptualHash records the result of Phase-B for a photo.
func (c *Catalog) UpdatePerceptualHash(photoID int64, aHash, dHash uint64) error {
	_, err := c.db.Exec(`UPDATE photos SET ahash = ?, dhash = ? WHERE id = ?`, int64(aHash), int64(dHash), photoID)
	if err != nil {
		return &corerr.CatalogError{Op: "update perceptual hash", Err: err}
	}
	return nil
}

// RemovePhotosByPath deletes catalog rows for paths no longer present
// on disk under sourceID.
func (c *Catalog) RemovePhotosByPath(sourceID int64, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := c.db.Begin()
	if err != nil {
		return &corerr.CatalogError{Op: "remove photos by path", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM photos WHERE source_id = ? AND path = ?`)
	if err != nil {
		return &corerr.CatalogError{Op: "prepare remove photos by path", Err: err}
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.Exec(sourceID, p); err != nil {
			return &corerr.CatalogError{Op: "remove photo by path", Err: err}
		}
	}
	return tx.Commit()
}

// ListPhotos returns every photo, optionally filtered to one source.
func (c *Catalog) ListPhotos(sourceID *int64) ([]domain.PhotoRecord, error) {
	query := `SELECT id, path, source_id, sha256, size, mtime, format, ahash, dhash, captured_at, camera_model, orientation, group_id FROM photos`
	args := []any{}
	if sourceID != nil {
		query += ` WHERE source_id = ?`
		args = append(args, *sourceID)
	}
	query += ` ORDER BY path`

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, &corerr.CatalogError{Op: "list photos", Err: err}
	}
	defer rows.Close()

	var out []domain.PhotoRecord
	for rows.Next() {
		p, err := scanPhotoRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhotoRow(rows rowScanner) (domain.PhotoRecord, error) {
	var p domain.PhotoRecord
	var format int
	var ahash, dhash sql.NullInt64
	var capturedAt sql.NullInt64
	var cameraModel sql.NullString
	var orientation sql.NullInt64
	var groupID sql.NullInt64

	if err := rows.Scan(&p.ID, &p.Path, &p.SourceID, &p.SHA256, &p.Size, &p.MTime, &format,
		&ahash, &dhash, &capturedAt, &cameraModel, &orientation, &groupID); err != nil {
		return domain.PhotoRecord{}, &corerr.CatalogError{Op: "scan photo row", Err: err}
	}

	p.Format = domain.PhotoFormat(format)
	if ahash.Valid {
		v := uint64(ahash.Int64)
		p.AHash = &v
	}
	if dhash.Valid {
		v := uint64(dhash.Int64)
		p.DHash = &v
	}
	if capturedAt.Valid {
		t := timeFromUnix(capturedAt.Int64)
		p.Exif.CapturedAt = &t
	}
	if cameraModel.Valid {
		p.Exif.CameraModel = &cameraModel.String
	}
	if orientation.Valid {
		v := uint8(orientation.Int64)
		p.Exif.Orientation = &v
	}
	if groupID.Valid {
		v := groupID.Int64
		p.GroupID = &v
	}
	return p, nil
}

// ReplaceGroups atomically discards every previously computed
// duplicate group and re-inserts groups, reassigning each member
// photo's group_id. Groups are always rebuilt wholesale; there is no
// incremental group update.
func (c *Catalog) ReplaceGroups(groups []domain.DuplicateGroup) error {
	tx, err := c.db.Begin()
	if err != nil {
		return &corerr.CatalogError{Op: "replace groups", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE photos SET group_id = NULL`); err != nil {
		return &corerr.CatalogError{Op: "clear photo group assignments", Err: err}
	}
	if _, err := tx.Exec(`DELETE FROM group_members`); err != nil {
		return &corerr.CatalogError{Op: "clear group members", Err: err}
	}
	if _, err := tx.Exec(`DELETE FROM groups`); err != nil {
		return &corerr.CatalogError{Op: "clear groups", Err: err}
	}

	groupStmt, err := tx.Prepare(`INSERT INTO groups (confidence, source_of_truth_id) VALUES (?, ?)`)
	if err != nil {
		return &corerr.CatalogError{Op: "prepare insert group", Err: err}
	}
	defer groupStmt.Close()

	memberStmt, err := tx.Prepare(`INSERT INTO group_members (group_id, photo_id) VALUES (?, ?)`)
	if err != nil {
		return &corerr.CatalogError{Op: "prepare insert group member", Err: err}
	}
	defer memberStmt.Close()

	assignStmt, err := tx.Prepare(`UPDATE photos SET group_id = ? WHERE id = ?`)
	if err != nil {
		return &corerr.CatalogError{Op: "prepare assign group", Err: err}
	}
	defer assignStmt.Close()

	for _, g := range groups {
		res, err := groupStmt.Exec(int(g.Confidence), g.SourceOfTruthID)
		if err != nil {
			return &corerr.CatalogError{Op: "insert group", Err: err}
		}
		groupID, err := res.LastInsertId()
		if err != nil {
			return &corerr.CatalogError{Op: "read inserted group id", Err: err}
		}

		for _, memberID := range g.MemberIDs {
			if _, err := memberStmt.Exec(groupID, memberID); err != nil {
				return &corerr.CatalogError{Op: "insert group member", Err: err}
			}
			if _, err := assignStmt.Exec(groupID, memberID); err != nil {
				return &corerr.CatalogError{Op: "assign photo group", Err: err}
			}
		}
	}

	return tx.Commit()
}

// ListGroups returns every duplicate group with its member photo ids.
func (c *Catalog) ListGroups() ([]domain.DuplicateGroup, error) {
	rows, err := c.db.Query(`SELECT id, confidence, source_of_truth_id FROM groups ORDER BY id`)
	if err != nil {
		return nil, &corerr.CatalogError{Op: "list groups", Err: err}
	}

	var groups []domain.DuplicateGroup
	for rows.Next() {
		var g domain.DuplicateGroup
		var confidence int
		if err := rows.Scan(&g.ID, &confidence, &g.SourceOfTruthID); err != nil {
			rows.Close()
			return nil, &corerr.CatalogError{Op: "scan group row", Err: err}
		}
		g.Confidence = domain.Confidence(confidence)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &corerr.CatalogError{Op: "iterate groups", Err: err}
	}
	rows.Close()

	for i := range groups {
		members, err := c.groupMemberIDs(groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].MemberIDs = members
	}
	return groups, nil
}

func (c *Catalog) groupMemberIDs(groupID int64) ([]int64, error) {
	rows, err := c.db.Query(`SELECT photo_id FROM group_members WHERE group_id = ? ORDER BY photo_id`, groupID)
	if err != nil {
		return nil, &corerr.CatalogError{Op: "list group members", Err: err}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &corerr.CatalogError{Op: "scan group member", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// PhotoByID is a small helper used by the vault facade to resolve a
// source-of-truth id back to a full record.
func (c *Catalog) PhotoByID(id int64) (domain.PhotoRecord, error) {
	row := c.db.QueryRow(`SELECT id, path, source_id, sha256, size, mtime, format, ahash, dhash, captured_at, camera_model, orientation, group_id FROM photos WHERE id = ?`, id)
	p, err := scanPhotoRow(row)
	if err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("photo %d: %w", id, err)
	}
	return p, nil
}
