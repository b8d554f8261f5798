// Package config holds the engine configuration: classification thresholds,
// page-level concurrency, OCR settings, image-extraction limits and the
// per-category backend priority lists.
//
// The zero config is not usable; start from [Default] and override, or load
// a YAML file with [Load]. Once handed to the engine the configuration is
// treated as read-only.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	// ScannedThreshold is the textless-page fraction at or above which a PDF
	// classifies as scanned. In (0,1].
	ScannedThreshold float64 `yaml:"scanned_threshold"`
	// SampleSize caps how many leading pages the analyzer samples.
	SampleSize int `yaml:"sample_size"`
	// TextCharThreshold is the minimum extractable characters for a page to
	// count as text-bearing.
	TextCharThreshold int `yaml:"text_char_threshold"`
	// MaxParallelPages bounds simultaneous page-level jobs.
	MaxParallelPages int `yaml:"max_parallel_pages"`
	// BackendTimeout bounds one adapter call. Zero disables the extra
	// deadline; the caller's context still applies.
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	// EnableFallback allows one retry against the next backend in the
	// priority list when an adapter is unavailable or times out.
	EnableFallback bool `yaml:"enable_fallback"`
	// DownloadTimeout bounds URL ingestion.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// MaxFileMB caps input size in megabytes.
	MaxFileMB int `yaml:"max_file_mb"`

	OCR        OCRConfig   `yaml:"ocr"`
	Images     ImageConfig `yaml:"images"`
	Priorities Priorities  `yaml:"priorities"`
}

// OCRConfig configures the OCR backends and the rasterization they share.
type OCRConfig struct {
	// Language is the default recognition language, passed through to the
	// engine untouched.
	Language string `yaml:"language"`
	// AvailableLanguages lists the advertised installable languages.
	AvailableLanguages []string `yaml:"available_languages"`
	// DPI is the rasterization resolution for OCR.
	DPI int `yaml:"dpi"`
	// TesseractArgs is extra tesseract CLI configuration.
	TesseractArgs string `yaml:"tesseract_args"`
	// TesseractPath is the tesseract binary for the CLI backend.
	TesseractPath string `yaml:"tesseract_path"`
	// PdftoppmPath is the poppler rasterizer binary.
	PdftoppmPath string `yaml:"pdftoppm_path"`
}

// ImageConfig limits embedded image extraction.
type ImageConfig struct {
	MinWidth   int `yaml:"min_width"`
	MinHeight  int `yaml:"min_height"`
	MaxPerPage int `yaml:"max_per_page"`
}

// Priorities lists backend identifiers in selection order per category.
// Order is explicit configuration, never map iteration order.
type Priorities struct {
	PDF        []string `yaml:"pdf"`
	ScannedPDF []string `yaml:"scanned_pdf"`
	Word       []string `yaml:"word"`
	PowerPoint []string `yaml:"powerpoint"`
	Excel      []string `yaml:"excel"`
	Text       []string `yaml:"text"`
	HTML       []string `yaml:"html"`
}

// Default returns the shipped configuration.
func Default() *Config {
	return &Config{
		ScannedThreshold:  0.7,
		SampleSize:        5,
		TextCharThreshold: 50,
		MaxParallelPages:  4,
		BackendTimeout:    2 * time.Minute,
		EnableFallback:    true,
		DownloadTimeout:   30 * time.Second,
		MaxFileMB:         100,
		OCR: OCRConfig{
			Language: "eng",
			AvailableLanguages: []string{
				"eng", "fra", "deu", "spa", "ita", "por",
				"rus", "chi_sim", "chi_tra", "jpn", "kor", "ara",
			},
			DPI:           300,
			TesseractArgs: "--psm 3",
			TesseractPath: "tesseract",
			PdftoppmPath:  "pdftoppm",
		},
		Images: ImageConfig{
			MinWidth:   50,
			MinHeight:  50,
			MaxPerPage: 20,
		},
		Priorities: Priorities{
			PDF:        []string{"pdf-markdown", "pdf-text", "pdf-table"},
			ScannedPDF: []string{"ocr", "ocr-cli"},
			Word:       []string{"docx"},
			PowerPoint: []string{"pptx"},
			Excel:      []string{"xlsx"},
			Text:       []string{"text"},
			HTML:       []string{"html"},
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ScannedThreshold <= 0 || c.ScannedThreshold > 1 {
		return fmt.Errorf("scanned_threshold must be in (0,1], got %v", c.ScannedThreshold)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be > 0")
	}
	if c.TextCharThreshold < 0 {
		return fmt.Errorf("text_char_threshold must be >= 0")
	}
	if c.MaxParallelPages <= 0 {
		return fmt.Errorf("max_parallel_pages must be > 0")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("ocr.dpi must be > 0")
	}
	if c.Images.MaxPerPage <= 0 {
		return fmt.Errorf("images.max_per_page must be > 0")
	}
	if len(c.Priorities.ScannedPDF) == 0 {
		return fmt.Errorf("priorities.scanned_pdf must name at least one OCR backend")
	}
	return nil
}

// MaxFileBytes returns the input size cap in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
