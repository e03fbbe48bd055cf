package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	attrRe       = regexp.MustCompile(`(?i)(\b(?:href|src|action)\s*=\s*["'])([^"']+)(["'])`)
	linkSchemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
)

// LooksLikeHTML sniffs the first 4KiB of a file for an HTML document
// shell.
func LooksLikeHTML(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}

	s := strings.ToLower(string(head[:n]))
	return strings.Contains(s, "<!doctype html") ||
		(strings.Contains(s, "<html") && strings.Contains(s, "</html>"))
}

// FixExtensionlessHTML renames dotless files that contain HTML to *.html
// and returns the old to new mapping as root-relative slash paths, the
// input for RewriteLinks.
func FixExtensionlessHTML(root string) (map[string]string, error) {
	renamed := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.Contains(d.Name(), ".") {
			return nil
		}
		if !LooksLikeHTML(path) {
			return nil
		}

		newPath := path + ".html"
		if err := os.Rename(path, newPath); err != nil {
			return fmt.Errorf("failed to rename %s: %w", path, err)
		}

		relOld, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relNew, err := filepath.Rel(root, newPath)
		if err != nil {
			return err
		}
		renamed[filepath.ToSlash(relOld)] = filepath.ToSlash(relNew)
		return nil
	})

	return renamed, err
}

// RewriteLinks updates href/src/action attributes that point at renamed
// files, preserving any query string and fragment. The document is written
// back only when something changed.
func RewriteLinks(path string, renamed map[string]string) error {
	if len(renamed) == 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	text := string(data)
	out := attrRe.ReplaceAllStringFunc(text, func(tok string) string {
		m := attrRe.FindStringSubmatch(tok)
		return m[1] + fixLink(m[2], renamed) + m[3]
	})

	if out == text {
		return nil
	}
	return os.WriteFile(path, []byte(out), 0644)
}

// fixLink maps one attribute value through the rename map. Scheme-
// qualified, fragment and data URLs stay as they are; for the rest the
// value is normalized (./ and leading / stripped, query and fragment cut)
// before lookup, and reassembled on a hit.
func fixLink(val string, renamed map[string]string) string {
	if linkSchemeRe.MatchString(val) || strings.HasPrefix(val, "#") || strings.HasPrefix(val, "data:") {
		return val
	}

	norm := val
	for strings.HasPrefix(norm, "./") {
		norm = norm[2:]
	}
	norm = strings.TrimLeft(norm, "/")

	base := norm
	if i := strings.Index(base, "#"); i != -1 {
		base = base[:i]
	}
	if i := strings.Index(base, "?"); i != -1 {
		base = base[:i]
	}

	target, ok := renamed[base]
	if !ok {
		return val
	}

	prefix := ""
	if strings.HasPrefix(val, "/") {
		prefix = "/"
	}

	q, h := "", ""
	qpos := strings.Index(val, "?")
	hpos := strings.Index(val, "#")
	if qpos != -1 && (hpos == -1 || qpos < hpos) {
		end := len(val)
		if hpos != -1 {
			end = hpos
		}
		q = val[qpos:end]
	}
	if hpos != -1 {
		h = val[hpos:]
	}

	return prefix + target + q + h
}

// EnsureIndex writes a minimal meta-refresh index.html when the export did
// not ship one, targeting preferred (matched by basename) or the first
// HTML file found.
func EnsureIndex(root, preferred string) error {
	indexPath := filepath.Join(root, "index.html")
	if _, err := os.Stat(indexPath); err == nil {
		return nil
	}

	var all []string
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
		all = append(all, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return err
	}

	cand := ""
	if preferred != "" {
		for _, p := range all {
			if filepath.Base(p) == preferred {
				cand = p
				break
			}
		}
	}
	if cand == "" && len(all) > 0 {
		cand = all[0]
	}

	meta := ""
	if cand != "" {
		meta = fmt.Sprintf(`<meta http-equiv="refresh" content="0; url=%s">`, cand)
	}
	body := fmt.Sprintf("<!doctype html><html><head><meta charset='utf-8'>%s<title>Index</title></head><body><p>Loading… <a href='%s'>Continue</a></p></body></html>", meta, cand)
	return os.WriteFile(indexPath, []byte(body), 0644)
}
