package input

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromBytes(t *testing.T) {
	h := FromBytes([]byte("%PDF-1.4"), "doc.pdf")
	if h.Name != "doc.pdf" {
		t.Errorf("Name = %q, want %q", h.Name, "doc.pdf")
	}
	if h.Size() != 8 {
		t.Errorf("Size() = %d, want 8", h.Size())
	}
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := FromPath(p)
	if err != nil {
		t.Fatalf("FromPath() error = %v", err)
	}
	if h.Name != "sample.txt" {
		t.Errorf("Name = %q, want %q", h.Name, "sample.txt")
	}
	if string(h.Data) != "hello" {
		t.Errorf("Data = %q, want %q", h.Data, "hello")
	}

	if _, err := FromPath(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("FromPath() on missing file: error = nil, want error")
	}
}

func TestFromReader(t *testing.T) {
	h, err := FromReader(strings.NewReader("streamed"), "stream.md")
	if err != nil {
		t.Fatalf("FromReader() error = %v", err)
	}
	if string(h.Data) != "streamed" || h.Name != "stream.md" {
		t.Errorf("FromReader() = %+v", h)
	}
}

func TestSniff(t *testing.T) {
	h := FromBytes([]byte("abcdef"), "x")

	if got := h.Sniff(4); !bytes.Equal(got, []byte("abcd")) {
		t.Errorf("Sniff(4) = %q, want %q", got, "abcd")
	}
	if got := h.Sniff(100); !bytes.Equal(got, []byte("abcdef")) {
		t.Errorf("Sniff(100) = %q, want full data", got)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/report.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 fake"))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	d := NewDownloader(DownloadConfig{})

	h, err := d.Fetch(context.Background(), srv.URL+"/files/report.pdf")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if h.Name != "report.pdf" {
		t.Errorf("Name = %q, want %q", h.Name, "report.pdf")
	}
	if h.DeclaredType != "application/pdf" {
		t.Errorf("DeclaredType = %q, want %q", h.DeclaredType, "application/pdf")
	}
	if !bytes.HasPrefix(h.Data, []byte("%PDF")) {
		t.Errorf("Data = %q, want PDF prefix", h.Data)
	}

	if _, err := d.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Fetch() on 404: error = nil, want error")
	}
}

func TestFetchSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer srv.Close()

	d := NewDownloader(DownloadConfig{MaxBytes: 1024})
	if _, err := d.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch() over size cap: error = nil, want error")
	}
}
