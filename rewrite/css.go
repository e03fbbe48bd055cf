package rewrite

import (
	"context"
	"regexp"
)

// cssURLRe matches url(...) tokens whose target has no embedded
// parentheses or whitespace. Optional symmetric quotes are stripped
// afterwards.
var cssURLRe = regexp.MustCompile(`url\(([^)\s]+)\)`)

// CSS rewrites every resolvable url(...) token in doc to the single
// largest generated variant, relative to the document's directory. CSS has
// no responsive-set syntax in this position, so the ladder always
// collapses to one URL. Any resolution failure leaves the occurrence
// verbatim.
func CSS(ctx context.Context, doc []byte, resolver Resolver, docDir string) ([]byte, bool) {
	text := string(doc)
	out := cssURLRe.ReplaceAllStringFunc(text, func(tok string) string {
		m := cssURLRe.FindStringSubmatch(tok)
		raw := unquote(m[1])
		if PassThrough(raw) {
			return tok
		}

		variants := resolveVariants(ctx, resolver, raw, docDir)
		if len(variants) == 0 {
			return tok
		}

		largest := variants[len(variants)-1]
		rel, err := RelativeTo(largest.Path, docDir)
		if err != nil {
			return tok
		}
		return "url(" + QuotePath(rel) + ")"
	})

	if out == text {
		return doc, false
	}
	return []byte(out), true
}

// unquote strips one pair of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
