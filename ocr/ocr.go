//go:build ocr

// Package ocr provides OCR (Optical Character Recognition) capabilities
// for extracting text from images in scanned PDFs.
//
// This package wraps the Tesseract OCR engine via gosseract. It requires
// Tesseract to be installed on the system. On macOS, install via:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
//
// A slower fallback that shells out to the tesseract binary is available
// as CLIEngine regardless of build tags.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps Tesseract for OCR operations.
//
// The underlying gosseract client carries per-call state (image, language),
// so recognition is serialized internally; callers may share one Client
// across goroutines but gain no recognition parallelism from it.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a new OCR client.
// The client should be closed when no longer needed to release resources.
func New() (*Client, error) {
	client := gosseract.NewClient()
	return &Client{client: client}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Probe reports whether the linked Tesseract library is usable.
func (c *Client) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.client == nil {
		return fmt.Errorf("ocr client is closed")
	}
	return nil
}

// RecognizeImage performs OCR on image data (PNG, TIFF, JPEG, etc.).
// Returns the recognized text with leading/trailing whitespace trimmed.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// Recognize runs OCR on PNG image data and returns the full text along
// with word-level bounding boxes in pixel coordinates.
func (c *Client) Recognize(ctx context.Context, image []byte, lang string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if lang != "" {
		if err := c.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return nil, fmt.Errorf("set language %q: %w", lang, err)
		}
	}
	if err := c.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := c.client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR word boxes failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		words = append(words, Word{
			Text:       b.Word,
			X0:         b.Box.Min.X,
			Y0:         b.Box.Min.Y,
			X1:         b.Box.Max.X,
			Y1:         b.Box.Max.Y,
			Confidence: b.Confidence,
		})
	}

	return &Result{Text: strings.TrimSpace(text), Words: words}, nil
}

// SetLanguage sets the language(s) for OCR recognition.
// Multiple languages can be specified as a "+" separated string (e.g., "eng+fra").
// Default is "eng" (English).
func (c *Client) SetLanguage(lang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.SetLanguage(strings.Split(lang, "+")...)
}

// SetPageSegMode sets the page segmentation mode.
// This affects how Tesseract analyzes the page layout.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.SetPageSegMode(gosseract.PageSegMode(mode))
}
