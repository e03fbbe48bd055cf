package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"postexport/images"
)

// defaultSizes is the sizing hint applied to <img> elements that carry
// none of their own.
const defaultSizes = "(max-width: 1200px) 100vw, 1200px"

// Resolver supplies the variant ladder for one raw document reference.
type Resolver interface {
	Resolve(ctx context.Context, rawURL, docDir string) ([]images.Variant, error)
}

// HTML rewrites <img> and <picture><source> references in doc to point at
// generated variant ladders, returning the re-rendered document and
// whether anything changed. Resolution failures leave the element alone
// and never fail the document; an unchanged document is returned verbatim.
func HTML(ctx context.Context, doc []byte, resolver Resolver, docDir string) ([]byte, bool, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse HTML: %w", err)
	}

	changed := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img:
				if rewriteImg(ctx, n, resolver, docDir) {
					changed = true
				}
			case atom.Source:
				if rewriteSource(ctx, n, resolver, docDir) {
					changed = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if !changed {
		return doc, false, nil
	}
	return RenderPretty(root), true, nil
}

// rewriteImg points an <img> at the middle variant and attaches the full
// ladder as srcset, adding a default sizes hint only when none is set.
func rewriteImg(ctx context.Context, n *html.Node, resolver Resolver, docDir string) bool {
	src := getAttr(n, "src")
	if src == "" || PassThrough(src) {
		return false
	}

	variants := resolveVariants(ctx, resolver, src, docDir)
	if len(variants) == 0 {
		return false
	}

	rels, srcset, ok := srcsetFor(variants, docDir)
	if !ok {
		return false
	}

	mid := len(rels) / 2
	if mid > len(rels)-1 {
		mid = len(rels) - 1
	}
	setAttr(n, "src", rels[mid])
	setAttr(n, "srcset", srcset)
	if getAttr(n, "sizes") == "" {
		setAttr(n, "sizes", defaultSizes)
	}
	return true
}

// rewriteSource replaces a <source> srcset with the ladder resolved from
// its first candidate URL. Later candidates are discarded; the attribute
// is regenerated wholesale from the resolved ladder.
func rewriteSource(ctx context.Context, n *html.Node, resolver Resolver, docDir string) bool {
	srcset := getAttr(n, "srcset")
	if srcset == "" {
		return false
	}
	first := strings.TrimSpace(strings.Split(srcset, ",")[0])
	if first == "" {
		return false
	}
	firstURL := strings.Fields(first)[0]
	if PassThrough(firstURL) {
		return false
	}

	variants := resolveVariants(ctx, resolver, firstURL, docDir)
	if len(variants) == 0 {
		return false
	}

	_, newSrcset, ok := srcsetFor(variants, docDir)
	if !ok {
		return false
	}
	setAttr(n, "srcset", newSrcset)
	return true
}

// resolveVariants resolves one reference, logging and swallowing per-asset
// failures so the document keeps its original reference.
func resolveVariants(ctx context.Context, resolver Resolver, raw, docDir string) []images.Variant {
	variants, err := resolver.Resolve(ctx, raw, docDir)
	if err != nil {
		log.Warn().Err(err).Str("url", raw).Msg("leaving image reference unresolved")
		return nil
	}
	return variants
}

// srcsetFor builds the "path 480w, path 800w" attribute value plus the
// per-variant document-relative paths, ordered ascending by width.
func srcsetFor(variants []images.Variant, docDir string) ([]string, string, bool) {
	rels := make([]string, 0, len(variants))
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		rel, err := RelativeTo(v.Path, docDir)
		if err != nil {
			return nil, "", false
		}
		rel = QuotePath(rel)
		rels = append(rels, rel)
		parts = append(parts, fmt.Sprintf("%s %dw", rel, v.Width))
	}
	return rels, strings.Join(parts, ", "), true
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
