//go:build !ocr

// Package ocr provides OCR (Optical Character Recognition) capabilities
// for extracting text from images in scanned PDFs.
//
// This is the stub implementation used when the "ocr" build tag is not set.
// All Client functions return ErrOCRNotEnabled. The CLIEngine, which shells
// out to the tesseract binary, works without the build tag.
//
// To enable in-process OCR, rebuild with the "ocr" build tag:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
package ocr

import "context"

// Client is a stub OCR client that returns errors for all operations.
type Client struct{}

// New returns an error indicating OCR support is not enabled.
// To enable OCR, rebuild with: go build -tags ocr
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op for the stub client.
// It is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// Probe returns an error indicating OCR support is not enabled.
func (c *Client) Probe(ctx context.Context) error {
	return ErrOCRNotEnabled
}

// RecognizeImage returns an error indicating OCR support is not enabled.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// Recognize returns an error indicating OCR support is not enabled.
func (c *Client) Recognize(ctx context.Context, image []byte, lang string) (*Result, error) {
	return nil, ErrOCRNotEnabled
}

// SetLanguage returns an error indicating OCR support is not enabled.
func (c *Client) SetLanguage(lang string) error {
	return ErrOCRNotEnabled
}

// SetPageSegMode returns an error indicating OCR support is not enabled.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	return ErrOCRNotEnabled
}
