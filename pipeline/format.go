package pipeline

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"postexport/rewrite"
)

const cacheDirName = ".cache"

// formatCache maps root-relative paths to the full content hash of their
// last formatted state, so untouched files skip the pretty-print pass on
// repeated runs.
type formatCache map[string]string

func formatCachePath(root string) string {
	return filepath.Join(root, cacheDirName, "format.json")
}

func loadFormatCache(root string) formatCache {
	data, err := os.ReadFile(formatCachePath(root))
	if err != nil {
		return formatCache{}
	}
	cache := formatCache{}
	if err := json.Unmarshal(data, &cache); err != nil {
		return formatCache{}
	}
	return cache
}

func (c formatCache) save(root string) error {
	if err := os.MkdirAll(filepath.Join(root, cacheDirName), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(formatCachePath(root), data, 0644)
}

// FormatTree pretty-prints every HTML document under root, skipping files
// whose content hash matches the format cache. Per-file failures are
// logged and skipped; formatting is cosmetic and never aborts the run.
func FormatTree(root string) {
	cache := loadFormatCache(root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("format pass skipped file")
			return nil
		}
		if cache[key] == contentHash(data) {
			return nil
		}

		node, err := html.Parse(bytes.NewReader(data))
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("format pass skipped file")
			return nil
		}

		out := rewrite.RenderPretty(node)
		if !bytes.Equal(out, data) {
			if err := os.WriteFile(path, out, 0644); err != nil {
				log.Warn().Err(err).Str("file", path).Msg("format pass skipped file")
				return nil
			}
		}
		cache[key] = contentHash(out)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("format pass incomplete")
	}

	if err := cache.save(root); err != nil {
		log.Warn().Err(err).Msg("failed to write format cache")
	}
}

func contentHash(data []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(data))
}
