package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// widthRe extracts the pixel width baked into a variant filename.
var widthRe = regexp.MustCompile(`-(\d+)w\.[^.]+$`)

// Resolver is the shared resolution path for document references: ingest
// the source into the content store, then return its variant ladder,
// generating it only when the manifest has no intact entry for the content
// hash. Concurrent resolutions of the same hash collapse to a single
// generation.
type Resolver struct {
	Root     string // output tree root, second base for rooted local refs
	Store    *Store
	Manifest *Manifest
	VarDir   string
	Widths   []int
	Format   OutputFormat
	Quality  int

	group singleflight.Group
}

// Resolve turns one raw document reference into the ascending variant
// ladder for its content. docDir is the directory of the referencing
// document, tried first for relative lookups. Scheme-relative references
// are fetched over https. Failures are per-asset: the caller skips the
// reference and continues.
func (r *Resolver) Resolve(ctx context.Context, rawURL, docDir string) ([]Variant, error) {
	src := rawURL
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}

	var stored, hash string
	var err error
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		stored, hash, err = r.Store.Fetch(ctx, src)
	} else {
		stored, hash, err = r.importLocal(src, docDir)
	}
	if err != nil {
		return nil, err
	}

	v, err, _ := r.group.Do(hash, func() (interface{}, error) {
		if paths, ok := r.Manifest.Lookup(hash); ok {
			return variantsFromPaths(paths), nil
		}
		variants, err := Generate(stored, r.VarDir, r.Widths, r.Format, r.Quality)
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(variants))
		for i, vv := range variants {
			paths[i] = vv.Path
		}
		r.Manifest.Record(hash, stored, paths)
		return variants, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Variant), nil
}

// importLocal resolves a local reference against the document directory
// first, then against the tree root with any leading slash stripped.
func (r *Resolver) importLocal(src, docDir string) (string, string, error) {
	candidate := filepath.Clean(filepath.Join(docDir, src))
	if _, err := os.Stat(candidate); err != nil {
		candidate = filepath.Join(r.Root, strings.TrimPrefix(src, "/"))
		if _, err := os.Stat(candidate); err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrNotFound, src)
		}
	}
	return r.Store.Import(candidate)
}

// variantsFromPaths rebuilds the (width, path) ladder from recorded paths,
// parsing widths back out of the filenames. Paths without a width marker
// are dropped.
func variantsFromPaths(paths []string) []Variant {
	variants := make([]Variant, 0, len(paths))
	for _, p := range paths {
		m := widthRe.FindStringSubmatch(filepath.Base(p))
		if m == nil {
			continue
		}
		w, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		variants = append(variants, Variant{Width: w, Path: p})
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Width < variants[j].Width })
	return variants
}
