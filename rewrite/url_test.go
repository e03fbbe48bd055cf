package rewrite

import (
	"path/filepath"
	"testing"
)

func TestPassThrough(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{"", true},
		{"#section", true},
		{"data:image/png;base64,AAAA", true},
		{"mailto:someone@example.com", true},
		{"ftp://example.com/a.png", true},
		{"http://example.com/a.png", false},
		{"https://example.com/a.png", false},
		{"//example.com/a.png", false},
		{"images/a.png", false},
		{"/images/a.png", false},
		{"../a.png", false},
	}

	for _, tt := range tests {
		if got := PassThrough(tt.raw); got != tt.expected {
			t.Errorf("PassThrough(%q) = %v, want %v", tt.raw, got, tt.expected)
		}
	}
}

func TestRelativeTo(t *testing.T) {
	root := filepath.FromSlash("/site")
	path := filepath.Join(root, "images", "responsive", "a-480w.webp")

	rel, err := RelativeTo(path, filepath.Join(root, "posts"))
	if err != nil {
		t.Fatalf("RelativeTo failed: %v", err)
	}
	if rel != "../images/responsive/a-480w.webp" {
		t.Errorf("Unexpected relative path: %s", rel)
	}

	rel, err = RelativeTo(path, root)
	if err != nil {
		t.Fatalf("RelativeTo failed: %v", err)
	}
	if rel != "images/responsive/a-480w.webp" {
		t.Errorf("Unexpected relative path: %s", rel)
	}
}

func TestQuotePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"images/a-480w.webp", "images/a-480w.webp"},
		{"images/my photo.webp", "images/my%20photo.webp"},
		{"a&b.png", "a%26b.png"},
		{"https://x/y.png", "https://x/y.png"},
		{"café.png", "caf%C3%A9.png"},
	}

	for _, tt := range tests {
		if got := QuotePath(tt.input); got != tt.expected {
			t.Errorf("QuotePath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
