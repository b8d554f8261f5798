// Package format resolves inputs to a coarse document category.
//
// Resolution order: known filename extension first, then magic-byte
// signatures on a content sniff, then a ZIP manifest walk to tell the Office
// Open XML families apart. Callers may opt into a plain-text fallback for
// content that decodes as UTF-8 text.
package format

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Category is the coarse document family an input resolves to. It is derived
// once per input and never changes afterwards.
type Category int

const (
	// Unknown indicates an unrecognized category.
	Unknown Category = iota
	// PDF indicates a PDF document.
	PDF
	// Word indicates a Microsoft Word document (.docx, .doc).
	Word
	// PowerPoint indicates a Microsoft PowerPoint document (.pptx, .ppt).
	PowerPoint
	// Excel indicates a spreadsheet (.xlsx, .xls, .csv).
	Excel
	// PlainText indicates plain text or markdown.
	PlainText
	// HTML indicates an HTML document.
	HTML
)

// ErrUnsupported is returned by Resolve when no category matches and the
// caller did not request the plain-text fallback.
var ErrUnsupported = errors.New("unsupported document category")

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case PDF:
		return "pdf"
	case Word:
		return "word"
	case PowerPoint:
		return "powerpoint"
	case Excel:
		return "excel"
	case PlainText:
		return "text"
	case HTML:
		return "html"
	default:
		return "unknown"
	}
}

// Extensions returns the filename extensions that resolve to the category.
func (c Category) Extensions() []string {
	switch c {
	case PDF:
		return []string{".pdf"}
	case Word:
		return []string{".docx", ".doc"}
	case PowerPoint:
		return []string{".pptx", ".ppt"}
	case Excel:
		return []string{".xlsx", ".xls", ".csv"}
	case PlainText:
		return []string{".txt", ".md", ".markdown"}
	case HTML:
		return []string{".html", ".htm"}
	default:
		return nil
	}
}

// Detect determines the category from the filename extension alone.
func Detect(filename string) Category {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return PDF
	case ".docx", ".doc":
		return Word
	case ".pptx", ".ppt":
		return PowerPoint
	case ".xlsx", ".xls", ".csv":
		return Excel
	case ".txt", ".md", ".markdown":
		return PlainText
	case ".html", ".htm":
		return HTML
	default:
		return Unknown
	}
}

// DetectFromMagic checks content magic bytes to determine the category.
// ZIP-based Office formats cannot be told apart from the magic alone;
// DetectFromReader walks the archive manifest for those. Returns Unknown
// when the signature is ambiguous or unrecognized.
func DetectFromMagic(data []byte) Category {
	if len(data) < 4 {
		return Unknown
	}

	// PDF magic: %PDF
	if data[0] == '%' && data[1] == 'P' && data[2] == 'D' && data[3] == 'F' {
		return PDF
	}

	// ZIP magic: PK\x03\x04. Could be docx, xlsx or pptx; the caller needs
	// DetectFromReader to disambiguate.
	if isZIPMagic(data) {
		return Unknown
	}

	if detectHTMLMagic(data) {
		return HTML
	}

	return Unknown
}

func isZIPMagic(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04
}

// detectHTMLMagic checks if the data looks like HTML content.
func detectHTMLMagic(data []byte) bool {
	start := 0
	for start < len(data) && (data[start] == ' ' || data[start] == '\t' || data[start] == '\n' || data[start] == '\r') {
		start++
	}
	if start >= len(data) {
		return false
	}
	data = data[start:]

	upper := strings.ToUpper(string(data))
	if strings.HasPrefix(upper, "<!DOCTYPE HTML") {
		return true
	}
	if strings.HasPrefix(upper, "<HTML") {
		return true
	}
	// XML declaration followed by html-like content could be XHTML.
	if strings.HasPrefix(upper, "<?XML") && strings.Contains(upper[:min(500, len(upper))], "<HTML") {
		return true
	}

	return false
}

// DetectFromReader inspects content to determine the category, including the
// ZIP manifest walk that tells the Office Open XML families apart.
func DetectFromReader(r io.ReaderAt, size int64) (Category, error) {
	magic := make([]byte, 512)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	if c := DetectFromMagic(magic); c != Unknown {
		return c, nil
	}

	if isZIPMagic(magic) {
		return detectZIPCategory(r, size)
	}

	return Unknown, nil
}

// detectZIPCategory inspects a ZIP archive for Office Open XML member
// prefixes: word/ for Word, xl/ for Excel, ppt/ for PowerPoint.
func detectZIPCategory(r io.ReaderAt, size int64) (Category, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	// OpenDocument archives carry a mimetype member. None of those map to a
	// supported category, so they stay Unknown rather than being misread as
	// OOXML.
	for _, f := range zr.File {
		if f.Name == "mimetype" {
			return Unknown, nil
		}
	}

	for _, f := range zr.File {
		switch {
		case f.Name == "[Content_Types].xml":
			continue
		case strings.HasPrefix(f.Name, "word/"):
			return Word, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return Excel, nil
		case strings.HasPrefix(f.Name, "ppt/"):
			return PowerPoint, nil
		}
	}

	return Unknown, nil
}

// Resolve maps a path plus optional content sniff to a category.
//
// Determination order: exact extension match, then magic-byte signature on
// the sniff (with the ZIP manifest walk for Office archives), then Unknown.
// When the category stays Unknown, textFallback selects whether content that
// decodes as UTF-8 text resolves to PlainText or the resolution fails with
// ErrUnsupported. Resolve has no side effects.
func Resolve(path string, sniff []byte, textFallback bool) (Category, error) {
	if c := Detect(path); c != Unknown {
		return c, nil
	}

	if len(sniff) > 0 {
		if isZIPMagic(sniff) {
			c, err := detectZIPCategory(bytes.NewReader(sniff), int64(len(sniff)))
			if err == nil && c != Unknown {
				return c, nil
			}
		} else if c := DetectFromMagic(sniff); c != Unknown {
			return c, nil
		}
	}

	if textFallback && looksLikeText(sniff) {
		return PlainText, nil
	}

	return Unknown, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Base(path))
}

// looksLikeText reports whether the sniff decodes as UTF-8 text without NUL
// bytes.
func looksLikeText(sniff []byte) bool {
	if len(sniff) == 0 {
		return false
	}
	if !utf8.Valid(sniff) {
		return false
	}
	return !bytes.ContainsRune(sniff, 0)
}
