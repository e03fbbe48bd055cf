package images

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	unsafeRe     = regexp.MustCompile(`[^a-z0-9._-]+`)
	hyphenRunRe  = regexp.MustCompile(`-{2,}`)
)

// Hash12 returns the first 12 hex characters of the SHA-1 of data. It is
// the content identity used for de-duplication and as the manifest key.
func Hash12(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])[:12]
}

// SlugifyName normalizes a filename for use in generated paths: lowercase,
// parentheses dropped, whitespace collapsed to hyphens, anything outside
// [a-z0-9._-] replaced, hyphen runs collapsed. An empty result falls back
// to "asset".
func SlugifyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "(", "")
	name = strings.ReplaceAll(name, ")", "")
	name = whitespaceRe.ReplaceAllString(name, "-")
	name = unsafeRe.ReplaceAllString(name, "-")
	name = hyphenRunRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "asset"
	}
	return name
}

// Store ingests raw image bytes into a single directory of de-duplicated,
// content-addressed originals named {hash12}-{slug}.
type Store struct {
	Dir    string
	Client *http.Client
}

// NewStore creates a store writing into dir, fetching remote sources with
// the given timeout.
func NewStore(dir string, timeout time.Duration) *Store {
	return &Store{
		Dir:    dir,
		Client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads a remote image and stores it, returning the stored path
// and content hash. The body is buffered fully in memory before anything
// touches disk, so a timed-out fetch never leaves a partial file.
func (s *Store) Fetch(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("%w: %s: status %d", ErrFetch, rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}

	return s.put(data, filenameFromURL(rawURL))
}

// Import reads a local image file and stores it, returning the stored
// path and content hash. Only a missing file maps to ErrNotFound; other
// read failures keep their real cause.
func (s *Store) Import(localPath string) (string, string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w: %s", ErrNotFound, localPath)
		}
		return "", "", fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	return s.put(data, filepath.Base(localPath))
}

// put writes data under {hash12}-{slug}, once per hash. If any file for
// the hash already exists it is reused, so byte-identical content ingested
// under different names still yields a single stored original.
func (s *Store) put(data []byte, base string) (string, string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create store directory: %w", err)
	}

	h := Hash12(data)
	if matches, err := filepath.Glob(filepath.Join(s.Dir, h+"-*")); err == nil && len(matches) > 0 {
		return matches[0], h, nil
	}

	dest := filepath.Join(s.Dir, h+"-"+SlugifyName(base))
	if err := writeFileAtomic(dest, data); err != nil {
		return "", "", fmt.Errorf("failed to write original: %w", err)
	}
	return dest, h, nil
}

// filenameFromURL extracts the basename of a URL path for slugification.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "asset"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "asset"
	}
	return name
}

// writeFileAtomic writes data to a temp file in the destination directory
// and renames it into place, so an interrupted run never leaves a partial
// file under the final name.
func writeFileAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
