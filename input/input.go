// Package input supplies document bytes to the engine.
//
// The engine core never performs its own I/O; it consumes a [Handle] built
// here from a local path, an in-memory buffer, an io.Reader, or a URL
// download. A Handle is immutable once built and safe to hand to any number
// of backends.
package input

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Handle is a stable reference to one document's bytes plus the little
// identity the resolver needs: a name to take an extension from and an
// optionally declared content type.
type Handle struct {
	Name         string
	Data         []byte
	DeclaredType string
}

// FromBytes wraps an in-memory document.
func FromBytes(data []byte, name string) *Handle {
	return &Handle{Name: name, Data: data}
}

// FromPath reads a document from the local filesystem.
func FromPath(p string) (*Handle, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return &Handle{Name: filepath.Base(p), Data: data}, nil
}

// FromReader drains r into a handle. The name is only used for extension
// resolution and display.
func FromReader(r io.Reader, name string) (*Handle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return &Handle{Name: name, Data: data}, nil
}

// Reader returns a fresh reader over the document bytes.
func (h *Handle) Reader() *bytes.Reader {
	return bytes.NewReader(h.Data)
}

// Size returns the document size in bytes.
func (h *Handle) Size() int64 {
	return int64(len(h.Data))
}

// Sniff returns up to n leading bytes for magic-based category resolution.
func (h *Handle) Sniff(n int) []byte {
	if n > len(h.Data) {
		n = len(h.Data)
	}
	return h.Data[:n]
}

// DownloadConfig configures URL ingestion.
type DownloadConfig struct {
	Timeout   time.Duration // HTTP timeout. Default: 30s.
	MaxBytes  int64         // Max response body size. Default: 100MB.
	UserAgent string
}

func (c *DownloadConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 100 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "parsemux/1.0"
	}
}

// Downloader fetches documents over HTTP.
type Downloader struct {
	client *http.Client
	config DownloadConfig
}

// NewDownloader creates a Downloader with a bounded redirect chain.
func NewDownloader(cfg DownloadConfig) *Downloader {
	cfg.defaults()
	return &Downloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch downloads one document. The handle's name comes from the URL path
// and the declared type from the Content-Type header.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", d.config.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d fetching %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > d.config.MaxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", d.config.MaxBytes)
	}

	name := "download"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}

	return &Handle{
		Name:         name,
		Data:         body,
		DeclaredType: resp.Header.Get("Content-Type"),
	}, nil
}

// FromURL downloads a document with default settings.
func FromURL(ctx context.Context, rawURL string) (*Handle, error) {
	return NewDownloader(DownloadConfig{}).Fetch(ctx, rawURL)
}
