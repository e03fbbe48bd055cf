package rewrite

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// PassThrough reports whether a reference must be left untouched: fragment
// links, data URIs, and URLs on schemes the pipeline cannot ingest.
// Scheme-relative //host/... references normalize to https and are not
// passed through.
func PassThrough(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "data:") {
		return true
	}
	if strings.HasPrefix(raw, "//") {
		return false
	}
	if schemeRe.MatchString(raw) {
		return !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://")
	}
	return false
}

// RelativeTo returns path relative to dir with forward slashes, suitable
// for embedding in a document that lives in dir.
func RelativeTo(path, dir string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// QuotePath percent-encodes a path for use in an attribute or url()
// token, leaving '/' and ':' intact.
func QuotePath(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-', c == '.', c == '_', c == '~', c == '/', c == ':':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
