package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		CatalogPath:    "/home/user/.local/share/photocore/catalog.sqlite",
		PackPath:       "/backup/pack",
		Sources:        []string{"/photos/a", "/photos/b"},
		WorkerPoolSize: 4,
		LogDir:         "/home/user/.local/share/photocore/log",
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.CatalogPath != original.CatalogPath {
		t.Errorf("CatalogPath = %q, want %q", got.CatalogPath, original.CatalogPath)
	}
	if got.PackPath != original.PackPath {
		t.Errorf("PackPath = %q, want %q", got.PackPath, original.PackPath)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(got.Sources))
	}
	if got.WorkerPoolSize != 4 {
		t.Errorf("WorkerPoolSize = %d, want 4", got.WorkerPoolSize)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/photocore")

	if cfg.CatalogPath != "/data/photocore/catalog.sqlite" {
		t.Errorf("CatalogPath = %q, want %q", cfg.CatalogPath, "/data/photocore/catalog.sqlite")
	}
	if cfg.LogDir != "/data/photocore/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/photocore/log")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "photocore.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "photocore.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "photocore.toml")
		cfg := NewConfig(dir)
		cfg.Sources = []string{"/photos"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if len(got.Sources) != 1 || got.Sources[0] != "/photos" {
			t.Errorf("Sources = %v, want [/photos]", got.Sources)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/photocore.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
