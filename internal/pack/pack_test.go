package pack

import (
	"os"
	"path/filepath"
	"testing"

	"photocore/internal/domain"
)

func writeSourceFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing source file: %v", err)
	}
}

func TestWrite_CopiesFileAndManifestRow(t *testing.T) {
	srcDir := t.TempDir()
	packDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "img.jpg")
	writeSourceFile(t, srcPath, "jpeg-bytes")

	w := NewWriter(packDir, 2, nil)
	err := w.Write([]Desired{
		{SHA256: "abcd1234", Path: srcPath, Format: domain.FormatJPEG, Size: int64(len("jpeg-bytes"))},
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	target := filepath.Join(packDir, "ab", "abcd1234.jpg")
	if _, err := os.Stat(target); err != nil {
		t.Errorf("expected packed file at %s: %v", target, err)
	}

	m, err := openManifest(w.manifestPath())
	if err != nil {
		t.Fatalf("openManifest() error = %v", err)
	}
	defer m.Close()
	has, err := m.has("abcd1234")
	if err != nil || !has {
		t.Errorf("manifest.has() = (%v, %v), want (true, nil)", has, err)
	}
}

func TestWrite_SkipsWhenAlreadyPacked(t *testing.T) {
	srcDir := t.TempDir()
	packDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "img.jpg")
	writeSourceFile(t, srcPath, "jpeg-bytes")

	w := NewWriter(packDir, 2, nil)
	desired := []Desired{{SHA256: "abcd1234", Path: srcPath, Format: domain.FormatJPEG, Size: int64(len("jpeg-bytes"))}}

	if err := w.Write(desired); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}

	target := filepath.Join(packDir, "ab", "abcd1234.jpg")
	info1, _ := os.Stat(target)

	// Remove the source so a re-copy attempt would fail; the second
	// Write() must not need it because nothing changed.
	os.Remove(srcPath)

	if err := w.Write(desired); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	info2, _ := os.Stat(target)
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Error("second Write() re-copied an already-packed file")
	}
}

func TestWrite_QualityUpgradeCleansUpSuperseded(t *testing.T) {
	srcDir := t.TempDir()
	packDir := t.TempDir()
	jpgPath := filepath.Join(srcDir, "img.jpg")
	rawPath := filepath.Join(srcDir, "img.cr2")
	writeSourceFile(t, jpgPath, "jpeg-bytes")
	writeSourceFile(t, rawPath, "raw-bytes-longer")

	w := NewWriter(packDir, 2, nil)

	// Scan 1: only the JPEG exists.
	if err := w.Write([]Desired{
		{SHA256: "J", Path: jpgPath, Format: domain.FormatJPEG, Size: int64(len("jpeg-bytes"))},
	}); err != nil {
		t.Fatalf("scan 1 Write() error = %v", err)
	}
	// Scan 2: the RAW becomes the elected SOT; the JPEG is no longer desired.
	if err := w.Write([]Desired{
		{SHA256: "R", Path: rawPath, Format: domain.FormatCR2, Size: int64(len("raw-bytes-longer"))},
	}); err != nil {
		t.Fatalf("scan 2 Write() error = %v", err)
	}

	m, err := openManifest(w.manifestPath())
	if err != nil {
		t.Fatalf("openManifest() error = %v", err)
	}
	defer m.Close()

	if has, _ := m.has("J"); has {
		t.Error("manifest still has superseded SHA J after quality upgrade")
	}
	if has, _ := m.has("R"); !has {
		t.Error("manifest missing new SOT SHA R after quality upgrade")
	}

	matches, _ := filepath.Glob(filepath.Join(packDir, "*", "J.*"))
	if len(matches) != 0 {
		t.Errorf("superseded pack file not cleaned up: %v", matches)
	}
}
