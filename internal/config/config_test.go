package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Calculator.DebounceMillis != 200 {
		t.Errorf("expected 200ms debounce, got %d", cfg.Calculator.DebounceMillis)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"storage": {"backend": "file", "path": "/tmp/slates"}, "institution": {"name": "State U"}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Path != "/tmp/slates" {
		t.Errorf("storage not loaded: %+v", cfg.Storage)
	}
	if cfg.Institution.Name != "State U" {
		t.Errorf("institution not loaded: %q", cfg.Institution.Name)
	}
	if cfg.Calculator.DebounceMillis != 200 {
		t.Errorf("default debounce lost: %d", cfg.Calculator.DebounceMillis)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Catalog.Path = "/etc/planner/catalog.yaml"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Catalog.Path != cfg.Catalog.Path {
		t.Errorf("expected %q, got %q", cfg.Catalog.Path, loaded.Catalog.Path)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
