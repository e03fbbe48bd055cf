package pipeline

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CopySource stages src (a directory or .zip archive) into root. For a
// directory the previous tree is replaced, except for the preserved
// subdirectories (the image store and caches), which must survive between
// runs so earlier generation work is reused instead of redone. A .zip is
// extracted over whatever is present.
func CopySource(src, root string, preserve []string) error {
	if info, err := os.Stat(src); err == nil && !info.IsDir() && strings.EqualFold(filepath.Ext(src), ".zip") {
		return extractZip(src, root)
	}

	if err := clearTree(root, preserve); err != nil {
		return fmt.Errorf("failed to clear output tree: %w", err)
	}
	return copyTree(src, root)
}

// clearTree removes every top-level entry of root except the preserved
// names.
func clearTree(root string, preserve []string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	keep := map[string]bool{}
	for _, name := range preserve {
		keep[name] = true
	}

	for _, e := range entries {
		if keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies all files under src into dst recursively.
func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		dstPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode())
		}

		return copyFile(path, dstPath, info.Mode())
	})
}

// copyFile copies a single file
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// extractZip unpacks a zip archive into root, refusing entries that would
// escape it.
func extractZip(src, root string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	cleanRoot := filepath.Clean(root)
	for _, f := range r.File {
		dest := filepath.Join(root, f.Name)
		if dest != cleanRoot && !strings.HasPrefix(dest, cleanRoot+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes output root: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := extractFile(f, dest); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
