package pack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"photocore/internal/domain"
	"photocore/internal/logging"
	"photocore/internal/workerpool"
)

// entry is the manifest row shape, independent of domain.PhotoRecord
// so the manifest schema does not need to track every catalog column.
type entry struct {
	sha         string
	filename    string
	format      domain.PhotoFormat
	size        int64
	capturedAt  *int64
	cameraModel *string
}

// Desired is one record the pack should contain: the elected
// source-of-truth of a group, or an ungrouped photo.
type Desired struct {
	SHA256 string
	Path   string
	Format domain.PhotoFormat
	Size   int64
	Exif   domain.ExifData
}

// Writer materializes a content-addressable archive at Root.
type Writer struct {
	Root    string
	Workers int
	Logger  logging.Logger
}

func NewWriter(root string, workers int, logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &Writer{Root: root, Workers: workers, Logger: logger}
}

func (w *Writer) manifestPath() string {
	return filepath.Join(w.Root, ".photopack", "manifest.sqlite")
}

func (w *Writer) shardPath(sha string, format domain.PhotoFormat) string {
	prefix := sha
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(w.Root, prefix, sha+"."+format.Extension())
}

// copyOutcome is one desired entry's file-copy result, produced by the
// parallel copy pool and consumed back on the single manifest-writing
// goroutine.
type copyOutcome struct {
	desired Desired
	err     error
}

// Write reconciles the pack against desired: copying any missing
// file, inserting any missing manifest row, and deleting any file and
// manifest row for a SHA no longer desired (quality-upgrade cleanup).
// File copies run across Workers goroutines, the same two-class
// concurrency split the scan orchestrator uses for hashing; manifest
// reads and writes stay on the calling goroutine since the manifest
// is a single SQLite connection.
func (w *Writer) Write(desired []Desired) error {
	if err := os.MkdirAll(filepath.Join(w.Root, ".photopack"), 0o755); err != nil {
		return fmt.Errorf("creating pack manifest directory: %w", err)
	}

	m, err := openManifest(w.manifestPath())
	if err != nil {
		return err
	}
	defer m.Close()

	desiredSHAs := make(map[string]bool, len(desired))
	var toCopy []Desired
	for _, d := range desired {
		desiredSHAs[d.SHA256] = true

		target := w.shardPath(d.SHA256, d.Format)
		fileExists, err := pathExists(target)
		if err != nil {
			return err
		}
		manifestHas, err := m.has(d.SHA256)
		if err != nil {
			return err
		}
		if fileExists && manifestHas {
			continue
		}
		if !fileExists {
			toCopy = append(toCopy, d)
			continue
		}
		if err := m.upsert(toEntry(d)); err != nil {
			return err
		}
	}

	outcomes := workerpool.Run(w.Workers, toCopy, func(d Desired) copyOutcome {
		target := w.shardPath(d.SHA256, d.Format)
		if err := w.copyFile(d.Path, target); err != nil {
			return copyOutcome{desired: d, err: err}
		}
		return copyOutcome{desired: d}
	})
	for _, o := range outcomes {
		if o.err != nil {
			w.Logger.Warn("pack copy failed", "path", o.desired.Path, "error", o.err)
			continue
		}
		if err := m.upsert(toEntry(o.desired)); err != nil {
			return err
		}
	}

	existing, err := m.shas()
	if err != nil {
		return err
	}
	for sha := range existing {
		if desiredSHAs[sha] {
			continue
		}
		if err := w.removeStale(m, sha); err != nil {
			return err
		}
	}

	return nil
}

func toEntry(d Desired) entry {
	e := entry{sha: d.SHA256, filename: filepath.Base(d.Path), format: d.Format, size: d.Size}
	if d.Exif.CapturedAt != nil {
		v := d.Exif.CapturedAt.Unix()
		e.capturedAt = &v
	}
	e.cameraModel = d.Exif.CameraModel
	return e
}

// removeStale deletes a SHA's packed file and manifest row. The file's
// extension is unknown from the manifest alone without a format read,
// so the shard directory is searched for a file named sha.* instead of
// recomputing the shard path from a format we'd have to look up.
func (w *Writer) removeStale(m *manifest, sha string) error {
	prefix := sha
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	shardDir := filepath.Join(w.Root, prefix)
	matches, err := filepath.Glob(filepath.Join(shardDir, sha+".*"))
	if err != nil {
		return fmt.Errorf("globbing stale pack entry %s: %w", sha, err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale pack file %s: %w", match, err)
		}
	}
	return m.remove(sha)
}

func (w *Writer) copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("statting %s: %w", srcPath, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}

	return writeFileAtomic(destPath, src, info.Size())
}

// writeFileAtomic copies r to destPath via a temp file in the same
// directory followed by an atomic rename, so a crash mid-copy never
// leaves a partially-written file at destPath.
func writeFileAtomic(destPath string, r io.Reader, expectedSize int64) error {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch writing %s: expected %d, got %d", destPath, expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming into place %s: %w", destPath, err)
	}

	success = true
	return nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("statting %s: %w", path, err)
}
