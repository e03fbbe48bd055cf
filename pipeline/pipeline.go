package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"postexport/config"
	"postexport/images"
	"postexport/rewrite"
)

// Pipeline runs the whole post-export flow over one exported site tree.
type Pipeline struct {
	cfg *config.Config
}

// New creates a pipeline for the given configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run executes the full pipeline: stage the source tree into the output
// directory, normalize HTML file extensions and intra-site links, ensure
// an index page, rewrite image references against the content store, then
// pretty-print and persist the manifest. Per-reference failures degrade
// gracefully; only infrastructure failures abort the run.
func (p *Pipeline) Run(ctx context.Context, input string) error {
	root, err := filepath.Abs(p.cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	src, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}

	imageDir := filepath.Join(root, p.cfg.ImageDir)
	manifest := images.LoadManifest(imageDir)

	log.Info().Str("input", src).Str("output", root).Msg("staging source tree")
	if err := CopySource(src, root, []string{p.cfg.ImageDir, cacheDirName}); err != nil {
		return fmt.Errorf("failed to stage source tree: %w", err)
	}

	renamed, err := FixExtensionlessHTML(root)
	if err != nil {
		return fmt.Errorf("failed to fix extensionless HTML: %w", err)
	}
	if len(renamed) > 0 {
		log.Info().Int("count", len(renamed)).Msg("renamed extensionless HTML files")
	}

	htmlFiles, _, err := collectDocuments(root)
	if err != nil {
		return fmt.Errorf("failed to enumerate documents: %w", err)
	}
	for _, f := range htmlFiles {
		if err := RewriteLinks(f, renamed); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("link rewrite failed")
		}
	}

	if err := EnsureIndex(root, p.cfg.PreferredHomepage); err != nil {
		return fmt.Errorf("failed to ensure index: %w", err)
	}

	if p.cfg.DownloadImages {
		resolver, err := p.newResolver(root, manifest)
		if err != nil {
			return err
		}
		htmlFiles, cssFiles, err := collectDocuments(root)
		if err != nil {
			return fmt.Errorf("failed to enumerate documents: %w", err)
		}
		p.rewriteImages(ctx, htmlFiles, cssFiles, resolver)
	}

	if p.cfg.FormatHTML {
		FormatTree(root)
	}

	if err := manifest.Save(); err != nil {
		return err
	}

	log.Info().Str("output", root).Msg("done")
	return nil
}

// newResolver wires the content store, manifest and variant settings into
// one shared resolution path.
func (p *Pipeline) newResolver(root string, manifest *images.Manifest) (*images.Resolver, error) {
	format, err := images.ParseFormat(p.cfg.ImageFormat)
	if err != nil {
		return nil, err
	}
	imageDir := filepath.Join(root, p.cfg.ImageDir)
	return &images.Resolver{
		Root:     root,
		Store:    images.NewStore(filepath.Join(imageDir, "original"), p.cfg.Timeout()),
		Manifest: manifest,
		VarDir:   filepath.Join(imageDir, "responsive"),
		Widths:   p.cfg.ImageVariants,
		Format:   format,
		Quality:  p.cfg.Quality,
	}, nil
}

// rewriteImages runs the HTML pass then the CSS pass, each parallel across
// documents. Output content is independent of execution order: the
// resolver collapses concurrent same-hash generations and the store writes
// once per hash.
func (p *Pipeline) rewriteImages(ctx context.Context, htmlFiles, cssFiles []string, resolver *images.Resolver) {
	log.Info().Int("html", len(htmlFiles)).Int("css", len(cssFiles)).Msg("processing image references")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, f := range htmlFiles {
		f := f
		g.Go(func() error {
			if err := rewriteHTMLFile(gctx, f, resolver); err != nil {
				log.Warn().Err(err).Str("file", f).Msg("image rewrite failed")
			}
			return nil
		})
	}
	g.Wait()

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, f := range cssFiles {
		f := f
		g.Go(func() error {
			if err := rewriteCSSFile(gctx, f, resolver); err != nil {
				log.Warn().Err(err).Str("file", f).Msg("image rewrite failed")
			}
			return nil
		})
	}
	g.Wait()
}

func (p *Pipeline) workers() int {
	if p.cfg.Workers > 0 {
		return p.cfg.Workers
	}
	return runtime.NumCPU()
}

// rewriteHTMLFile rewrites one document in place, writing back only when
// something changed.
func rewriteHTMLFile(ctx context.Context, path string, resolver rewrite.Resolver) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, changed, err := rewrite.HTML(ctx, doc, resolver, filepath.Dir(path))
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return os.WriteFile(path, out, 0644)
}

func rewriteCSSFile(ctx context.Context, path string, resolver rewrite.Resolver) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, changed := rewrite.CSS(ctx, doc, resolver, filepath.Dir(path))
	if !changed {
		return nil
	}
	return os.WriteFile(path, out, 0644)
}

// collectDocuments walks the tree and returns all HTML and CSS files in
// lexical order.
func collectDocuments(root string) (htmlFiles, cssFiles []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html":
			htmlFiles = append(htmlFiles, path)
		case ".css":
			cssFiles = append(cssFiles, path)
		}
		return nil
	})
	return htmlFiles, cssFiles, err
}
