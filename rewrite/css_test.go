package rewrite

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"postexport/images"
)

func TestCSSRewritesToLargest(t *testing.T) {
	root := filepath.FromSlash("/site")
	docDir := filepath.Join(root, "css")
	resolver := &fakeResolver{ladders: map[string][]images.Variant{
		"../bg.png": testLadder(root),
	}}

	doc := []byte(`.hero { background: url(../bg.png) no-repeat; }`)
	out, changed := CSS(context.Background(), doc, resolver, docDir)
	if !changed {
		t.Fatal("Expected the stylesheet to change")
	}
	if !strings.Contains(string(out), "url(../images/responsive/abc123-photo-1000w.webp)") {
		t.Errorf("Expected the largest variant, got:\n%s", out)
	}
	if strings.Contains(string(out), "480w") {
		t.Errorf("Smaller variants leaked into the stylesheet:\n%s", out)
	}
}

func TestCSSQuotedURL(t *testing.T) {
	root := filepath.FromSlash("/site")
	resolver := &fakeResolver{ladders: map[string][]images.Variant{
		"bg.png": testLadder(root),
	}}

	for _, doc := range []string{
		`a { background: url("bg.png"); }`,
		`a { background: url('bg.png'); }`,
	} {
		out, changed := CSS(context.Background(), []byte(doc), resolver, root)
		if !changed {
			t.Errorf("Expected %q to change", doc)
			continue
		}
		if !strings.Contains(string(out), "url(images/responsive/abc123-photo-1000w.webp)") {
			t.Errorf("Quoted reference not rewritten:\n%s", out)
		}
	}
}

func TestCSSPassThrough(t *testing.T) {
	resolver := &fakeResolver{ladders: map[string][]images.Variant{}}

	tests := []string{
		`a { background: url(data:image/png;base64,AAAA); }`,
		`a { src: url(#glyph); }`,
		`@font-face { src: url(font.woff2); }`, // resolver misses, stays verbatim
	}
	for _, doc := range tests {
		out, changed := CSS(context.Background(), []byte(doc), resolver, "/site")
		if changed {
			t.Errorf("Expected %q to pass through", doc)
		}
		if !bytes.Equal(out, []byte(doc)) {
			t.Errorf("Pass-through altered the stylesheet: %q -> %q", doc, out)
		}
	}
}

func TestCSSMultipleOccurrences(t *testing.T) {
	root := filepath.FromSlash("/site")
	resolver := &fakeResolver{ladders: map[string][]images.Variant{
		"a.png": {{Width: 400, Path: filepath.Join(root, "images", "responsive", "h1-a-400w.webp")}},
		"b.png": {{Width: 900, Path: filepath.Join(root, "images", "responsive", "h2-b-900w.webp")}},
	}}

	doc := []byte(`.a { background: url(a.png); } .b { background: url(b.png); }`)
	out, changed := CSS(context.Background(), doc, resolver, root)
	if !changed {
		t.Fatal("Expected the stylesheet to change")
	}
	text := string(out)
	if !strings.Contains(text, "h1-a-400w.webp") || !strings.Contains(text, "h2-b-900w.webp") {
		t.Errorf("Not every occurrence was rewritten:\n%s", text)
	}
}

func TestCSSUnchangedReturnsVerbatim(t *testing.T) {
	resolver := &fakeResolver{}
	doc := []byte(`a { color: red; }`)
	out, changed := CSS(context.Background(), doc, resolver, "/site")
	if changed {
		t.Error("Expected no change")
	}
	if !bytes.Equal(out, doc) {
		t.Error("Unchanged stylesheet must be returned byte for byte")
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a.png"`, "a.png"},
		{`'a.png'`, "a.png"},
		{`a.png`, "a.png"},
		{`"a.png'`, `"a.png'`},
		{`"`, `"`},
	}
	for _, tt := range tests {
		if got := unquote(tt.input); got != tt.expected {
			t.Errorf("unquote(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
