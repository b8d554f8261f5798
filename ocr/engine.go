package ocr

import (
	"context"
	"errors"
)

// ErrOCRNotEnabled is returned when the in-process gosseract client is used
// but OCR support was not compiled in. Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Word is one recognized word with its pixel-space box on the source image.
type Word struct {
	Text       string
	X0, Y0     int
	X1, Y1     int
	Confidence float64
}

// Result holds the output of recognizing a single image.
type Result struct {
	Text  string
	Words []Word
}

// Engine recognizes text in a rasterized page image. Implementations are
// safe for concurrent use, but may serialize recognition internally;
// callers wanting real parallelism create one engine per worker.
type Engine interface {
	// Probe reports whether the engine can run on this system.
	Probe(ctx context.Context) error

	// Recognize runs OCR on PNG image data. lang is a Tesseract language
	// code such as "eng", or "+"-separated codes; empty keeps the engine
	// default.
	Recognize(ctx context.Context, image []byte, lang string) (*Result, error)

	// Close releases engine resources.
	Close() error
}
