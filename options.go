package parsemux

import (
	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/config"
)

// ParseOptions holds the per-call knobs. Defaults come from the engine
// configuration; the With methods on Parser adjust a copy per call, so a
// configured Parser can be reused and shared freely.
type ParseOptions struct {
	// toolOverride forces a backend, bypassing selection. None lets the
	// policy decide.
	toolOverride backend.ID
	// detectScanned enables the structural analysis of PDFs. Off, every
	// PDF takes the digital path.
	detectScanned bool
	// extractImages asks the backend for embedded raster images.
	extractImages bool
	// ocrLanguage is passed to OCR backends untouched.
	ocrLanguage string
	// scannedThreshold is the textless-page fraction at or above which a
	// PDF classifies as scanned. In (0,1].
	scannedThreshold float64
}

// defaultParseOptions seeds per-call options from the engine configuration.
func defaultParseOptions(cfg *config.Config) ParseOptions {
	return ParseOptions{
		detectScanned:    true,
		ocrLanguage:      cfg.OCR.Language,
		scannedThreshold: cfg.ScannedThreshold,
	}
}
