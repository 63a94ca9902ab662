package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_AddSourceScanStatus(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer v.Close()

	if err := v.AddSource(dir); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}

	if _, err := v.Scan(nil); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	status, err := v.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Sources != 1 {
		t.Errorf("Sources = %d, want 1", status.Sources)
	}
	if status.Photos != 2 {
		t.Errorf("Photos = %d, want 2", status.Photos)
	}
	if status.Groups != 1 {
		t.Errorf("Groups = %d, want 1 (identical content)", status.Groups)
	}
	if status.DuplicateBytesWaste != int64(len("bytes")) {
		t.Errorf("DuplicateBytesWaste = %d, want %d", status.DuplicateBytesWaste, len("bytes"))
	}
}

func TestSetPackPath_RegistersPackAsSource(t *testing.T) {
	packDir := t.TempDir()

	v, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer v.Close()

	if err := v.SetPackPath(packDir); err != nil {
		t.Fatalf("SetPackPath() error = %v", err)
	}

	status, err := v.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Sources != 1 {
		t.Errorf("Sources = %d, want 1 (pack path auto-registered)", status.Sources)
	}
}

func TestPack_MaterializesSourceOfTruth(t *testing.T) {
	srcDir := t.TempDir()
	packDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.jpg"), []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer v.Close()

	if err := v.AddSource(srcDir); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	if err := v.SetPackPath(packDir); err != nil {
		t.Fatalf("SetPackPath() error = %v", err)
	}
	if _, err := v.Scan(nil); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if err := v.Pack(nil); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(packDir, "*", "*.jpg"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("len(matches) = %d, want 1, matches=%v", len(matches), matches)
	}
}
