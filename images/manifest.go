package images

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry records the stored original and generated variant paths for one
// content hash, with the generation timestamp in unix seconds.
type Entry struct {
	Original string   `json:"original"`
	Variants []string `json:"variants"`
	TS       int64    `json:"ts"`
}

// Manifest maps content hashes to their generated variant sets. It is
// loaded once per run, mutated in memory, and persisted once at the end,
// so a run that crashes midway loses only its own new entries. A single
// writer is assumed to own the output directory for the run's duration.
type Manifest struct {
	path string

	mu     sync.Mutex
	images map[string]Entry
}

// ManifestPath returns the manifest location inside the image directory.
func ManifestPath(imageDir string) string {
	return filepath.Join(imageDir, "manifest.json")
}

// LoadManifest reads the manifest for imageDir. A missing or unreadable
// manifest yields an empty one: the worst case is re-encoding, never a
// failed run.
func LoadManifest(imageDir string) *Manifest {
	m := &Manifest{
		path:   ManifestPath(imageDir),
		images: map[string]Entry{},
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return m
	}

	var loaded struct {
		Images map[string]Entry `json:"images"`
	}
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Images == nil {
		log.Warn().Str("path", m.path).Msg("manifest unreadable, starting empty")
		return m
	}

	m.images = loaded.Images
	return m
}

// Lookup returns the recorded variant paths for hash, but only while every
// recorded file still exists on disk. A deleted variant invalidates the
// whole entry so the ladder is regenerated.
func (m *Manifest) Lookup(hash string) ([]string, bool) {
	m.mu.Lock()
	entry, ok := m.images[hash]
	m.mu.Unlock()

	if !ok || len(entry.Variants) == 0 {
		return nil, false
	}
	for _, p := range entry.Variants {
		if _, err := os.Stat(p); err != nil {
			return nil, false
		}
	}
	return entry.Variants, true
}

// Record stores a freshly generated variant set for hash.
func (m *Manifest) Record(hash, original string, variants []string) {
	m.mu.Lock()
	m.images[hash] = Entry{
		Original: original,
		Variants: variants,
		TS:       time.Now().Unix(),
	}
	m.mu.Unlock()
}

// Len returns the number of recorded entries.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images)
}

// Save persists the manifest. Failing to create the image directory is the
// only fatal outcome; a failed write is logged and the run's document
// mutations stand.
func (m *Manifest) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	m.mu.Lock()
	data, err := json.MarshalIndent(struct {
		Images map[string]Entry `json:"images"`
	}{m.images}, "", "  ")
	m.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode manifest")
		return nil
	}

	if err := os.WriteFile(m.path, data, 0644); err != nil {
		log.Warn().Err(err).Str("path", m.path).Msg("failed to write manifest")
	}
	return nil
}
