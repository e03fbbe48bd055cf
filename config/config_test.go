package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.OutputDir != "dist" {
		t.Errorf("Expected output dir 'dist', got '%s'", cfg.OutputDir)
	}
	if !cfg.DownloadImages {
		t.Error("Expected download_images to default to true")
	}
	if cfg.ImageFormat != "webp" {
		t.Errorf("Expected image format 'webp', got '%s'", cfg.ImageFormat)
	}
	if cfg.Quality != 82 {
		t.Errorf("Expected quality 82, got %d", cfg.Quality)
	}

	want := []int{480, 800, 1200, 1600, 2000}
	if len(cfg.ImageVariants) != len(want) {
		t.Fatalf("Expected %d variants, got %d", len(want), len(cfg.ImageVariants))
	}
	for i, w := range want {
		if cfg.ImageVariants[i] != w {
			t.Errorf("Expected variant %d at index %d, got %d", w, i, cfg.ImageVariants[i])
		}
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	content := `
output_dir: out
image_format: keep
quality: 70
image_variants: [320, 640]
download_images: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OutputDir != "out" {
		t.Errorf("Expected output dir 'out', got '%s'", cfg.OutputDir)
	}
	if cfg.ImageFormat != "keep" {
		t.Errorf("Expected format 'keep', got '%s'", cfg.ImageFormat)
	}
	if cfg.Quality != 70 {
		t.Errorf("Expected quality 70, got %d", cfg.Quality)
	}
	if cfg.DownloadImages {
		t.Error("Expected download_images false")
	}
	// Unset fields keep their defaults
	if cfg.ImageDir != "images" {
		t.Errorf("Expected image dir default 'images', got '%s'", cfg.ImageDir)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path failed: %v", err)
	}
	if cfg.OutputDir != "dist" {
		t.Errorf("Expected defaults, got output dir '%s'", cfg.OutputDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POSTEXPORT_OUTPUT_DIR", "elsewhere")
	t.Setenv("POSTEXPORT_QUALITY", "55")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OutputDir != "elsewhere" {
		t.Errorf("Expected env override 'elsewhere', got '%s'", cfg.OutputDir)
	}
	if cfg.Quality != 55 {
		t.Errorf("Expected env override quality 55, got %d", cfg.Quality)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.ImageFormat = "avif" },
			wantErr: true,
		},
		{
			name:    "keep format",
			mutate:  func(c *Config) { c.ImageFormat = "keep" },
			wantErr: false,
		},
		{
			name:    "quality too low",
			mutate:  func(c *Config) { c.Quality = 0 },
			wantErr: true,
		},
		{
			name:    "quality too high",
			mutate:  func(c *Config) { c.Quality = 101 },
			wantErr: true,
		},
		{
			name:    "empty variants",
			mutate:  func(c *Config) { c.ImageVariants = nil },
			wantErr: true,
		},
		{
			name:    "descending variants",
			mutate:  func(c *Config) { c.ImageVariants = []int{800, 480} },
			wantErr: true,
		},
		{
			name:    "duplicate variants",
			mutate:  func(c *Config) { c.ImageVariants = []int{480, 480} },
			wantErr: true,
		},
		{
			name:    "empty output dir",
			mutate:  func(c *Config) { c.OutputDir = "" },
			wantErr: true,
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(c *Config) { c.FetchTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Workers = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got: %v", err)
			}
		})
	}
}
