package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the post-export pipeline configuration
type Config struct {
	OutputDir         string `yaml:"output_dir"`
	PreferredHomepage string `yaml:"preferred_homepage"`
	DownloadImages    bool   `yaml:"download_images"`
	ImageDir          string `yaml:"image_dir"`
	ImageVariants     []int  `yaml:"image_variants"`
	ImageFormat       string `yaml:"image_format"` // "webp" or "keep"
	Quality           int    `yaml:"quality"`
	FormatHTML        bool   `yaml:"format_html"`
	FetchTimeout      int    `yaml:"fetch_timeout"` // seconds
	Workers           int    `yaml:"workers"`       // 0 = number of CPUs
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		OutputDir:      "dist",
		DownloadImages: true,
		ImageDir:       "images",
		ImageVariants:  []int{480, 800, 1200, 1600, 2000},
		ImageFormat:    "webp",
		Quality:        82,
		FormatHTML:     true,
		FetchTimeout:   30,
	}
}

// Load reads and parses the configuration file, merging it over the
// defaults. An empty path yields the defaults. Environment variables
// (optionally from a .env file) override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays POSTEXPORT_* environment variables. A .env file in the
// working directory is honored when present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("POSTEXPORT_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("POSTEXPORT_IMAGE_FORMAT"); v != "" {
		c.ImageFormat = v
	}
	if v := os.Getenv("POSTEXPORT_QUALITY"); v != "" {
		if q, err := strconv.Atoi(v); err == nil {
			c.Quality = q
		}
	}
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.ImageDir == "" {
		return fmt.Errorf("image_dir is required")
	}
	if c.ImageFormat != "webp" && c.ImageFormat != "keep" {
		return fmt.Errorf("image_format must be \"webp\" or \"keep\", got %q", c.ImageFormat)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	if len(c.ImageVariants) == 0 {
		return fmt.Errorf("image_variants must not be empty")
	}
	for i, w := range c.ImageVariants {
		if w < 1 {
			return fmt.Errorf("image_variants must be positive, got %d", w)
		}
		if i > 0 && w <= c.ImageVariants[i-1] {
			return fmt.Errorf("image_variants must be strictly ascending")
		}
	}
	if c.FetchTimeout < 1 {
		return fmt.Errorf("fetch_timeout must be at least 1 second")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Timeout returns the remote fetch timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}
