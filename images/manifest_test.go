package images

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	imageDir := t.TempDir()
	v1 := filepath.Join(imageDir, "responsive", "abc-photo-480w.webp")
	v2 := filepath.Join(imageDir, "responsive", "abc-photo-1000w.webp")
	touch(t, v1)
	touch(t, v2)

	m := LoadManifest(imageDir)
	if m.Len() != 0 {
		t.Fatalf("Expected empty manifest, got %d entries", m.Len())
	}

	m.Record("abc123def456", filepath.Join(imageDir, "original", "abc-photo.png"), []string{v1, v2})
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(ManifestPath(imageDir)); err != nil {
		t.Fatalf("Manifest file not written: %v", err)
	}

	m2 := LoadManifest(imageDir)
	if m2.Len() != 1 {
		t.Fatalf("Expected 1 entry after reload, got %d", m2.Len())
	}
	paths, ok := m2.Lookup("abc123def456")
	if !ok {
		t.Fatal("Expected entry to survive a reload")
	}
	if len(paths) != 2 || paths[0] != v1 || paths[1] != v2 {
		t.Errorf("Unexpected variant paths: %v", paths)
	}
}

func TestManifestLookupUnknownHash(t *testing.T) {
	m := LoadManifest(t.TempDir())
	if _, ok := m.Lookup("deadbeef0000"); ok {
		t.Error("Lookup of an unknown hash must miss")
	}
}

func TestManifestLookupMissingFile(t *testing.T) {
	imageDir := t.TempDir()
	v1 := filepath.Join(imageDir, "responsive", "abc-photo-480w.webp")
	touch(t, v1)

	m := LoadManifest(imageDir)
	m.Record("abc123def456", "", []string{v1})

	if _, ok := m.Lookup("abc123def456"); !ok {
		t.Fatal("Expected hit while all files exist")
	}

	// Deleting any recorded file invalidates the whole entry.
	if err := os.Remove(v1); err != nil {
		t.Fatalf("Failed to remove variant: %v", err)
	}
	if _, ok := m.Lookup("abc123def456"); ok {
		t.Error("Lookup must miss when a recorded file is gone")
	}
}

func TestLoadManifestCorrupt(t *testing.T) {
	imageDir := t.TempDir()
	if err := os.WriteFile(ManifestPath(imageDir), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	m := LoadManifest(imageDir)
	if m.Len() != 0 {
		t.Errorf("Corrupt manifest must load empty, got %d entries", m.Len())
	}
}

func TestManifestSavePreservesOldEntries(t *testing.T) {
	imageDir := t.TempDir()
	v1 := filepath.Join(imageDir, "responsive", "old-480w.webp")
	touch(t, v1)

	m := LoadManifest(imageDir)
	m.Record("oldhash000001", "", []string{v1})
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A later run loads the old entries and adds its own.
	m2 := LoadManifest(imageDir)
	v2 := filepath.Join(imageDir, "responsive", "new-480w.webp")
	touch(t, v2)
	m2.Record("newhash000002", "", []string{v2})
	if err := m2.Save(); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	m3 := LoadManifest(imageDir)
	if m3.Len() != 2 {
		t.Errorf("Expected both entries to persist, got %d", m3.Len())
	}
	if _, ok := m3.Lookup("oldhash000001"); !ok {
		t.Error("Old entry lost across runs")
	}
}
