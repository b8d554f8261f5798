package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/parsemux/parsemux/model"
)

// DefaultMinTextChars is the rune count below which a page is considered
// textless for classification purposes.
const DefaultMinTextChars = 50

// ErrUnreadable reports a document whose structure cannot be parsed at all.
var ErrUnreadable = errors.New("unreadable pdf document")

// Default page dimensions (US Letter in points) used when the page tree
// carries no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Reader provides page-level access to a digital PDF. It is safe for
// concurrent use; operations on the underlying document serialize on an
// internal lock because pdfcpu caches decoded streams in place.
type Reader struct {
	// MinTextChars is the rune count threshold for HasExtractableText in
	// classification signals. Adjust before calling Signal.
	MinTextChars int

	mu   sync.Mutex
	pdf  *pdfmodel.Context
	dims []types.Dim
}

// Open parses a PDF held in memory. Structurally broken documents return
// an error wrapping ErrUnreadable.
func Open(data []byte) (*Reader, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	r := &Reader{MinTextChars: DefaultMinTextChars, pdf: ctx}
	if dims, err := ctx.PageDims(); err == nil && len(dims) == ctx.PageCount {
		r.dims = dims
	}
	return r, nil
}

// PageCount returns the number of pages in the document.
func (r *Reader) PageCount() int {
	return r.pdf.PageCount
}

// PageSize returns the page dimensions in PDF points for a zero-based page
// index, falling back to US Letter when the MediaBox is unavailable.
func (r *Reader) PageSize(pageIndex int) (width, height float64) {
	if pageIndex >= 0 && pageIndex < len(r.dims) {
		d := r.dims[pageIndex]
		if d.Width > 0 && d.Height > 0 {
			return d.Width, d.Height
		}
	}
	return defaultPageWidth, defaultPageHeight
}

// Signal samples one page for classification: extractable text presence,
// image XObject presence, and the extracted character count. Content
// stream errors degrade to a textless signal rather than failing the
// document; pages that resist text extraction are exactly the ones OCR
// exists for.
func (r *Reader) Signal(ctx context.Context, pageIndex int) (model.PageSignal, error) {
	if err := ctx.Err(); err != nil {
		return model.PageSignal{}, err
	}
	if pageIndex < 0 || pageIndex >= r.PageCount() {
		return model.PageSignal{}, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, r.PageCount())
	}

	text, err := r.PageText(pageIndex)
	if err != nil {
		text = ""
	}
	charCount := utf8.RuneCountInString(strings.TrimSpace(text))

	return model.PageSignal{
		Index:              pageIndex,
		HasExtractableText: charCount >= r.MinTextChars,
		HasImage:           r.pageHasImage(pageIndex),
		TextCharCount:      charCount,
	}, nil
}

// PageText returns the page's text assembled into reading-order lines.
func (r *Reader) PageText(pageIndex int) (string, error) {
	lines, err := r.PageLines(pageIndex)
	if err != nil {
		return "", err
	}
	return linesToText(lines), nil
}

// PageLines returns baseline-grouped lines with their bounding boxes in
// PDF points.
func (r *Reader) PageLines(pageIndex int) ([]Line, error) {
	frags, _, err := r.pageContent(pageIndex)
	if err != nil {
		return nil, err
	}
	return assembleLines(frags), nil
}

// PageFragments returns the raw positioned text fragments of a page.
func (r *Reader) PageFragments(pageIndex int) ([]Fragment, error) {
	frags, _, err := r.pageContent(pageIndex)
	return frags, err
}

// PageImageBoxes returns the placed rectangles of XObjects drawn on the
// page, in PDF points. Rectangles are only reported for pages that have
// image XObjects, filtering out pure form XObject draws.
func (r *Reader) PageImageBoxes(pageIndex int) ([]ImageBox, error) {
	_, images, err := r.pageContent(pageIndex)
	if err != nil {
		return nil, err
	}
	if len(images) > 0 && !r.pageHasImage(pageIndex) {
		return nil, nil
	}
	return images, nil
}

// pageContent extracts and interprets the page's content stream.
func (r *Reader) pageContent(pageIndex int) ([]Fragment, []ImageBox, error) {
	if pageIndex < 0 || pageIndex >= r.PageCount() {
		return nil, nil, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, r.PageCount())
	}

	r.mu.Lock()
	reader, err := pdfcpu.ExtractPageContent(r.pdf, pageIndex+1)
	if err != nil {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("page %d content: %w", pageIndex+1, err)
	}
	var data []byte
	if reader != nil {
		data, err = io.ReadAll(reader)
	}
	r.mu.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("page %d content: %w", pageIndex+1, err)
	}
	if len(data) == 0 {
		return nil, nil, nil
	}

	frags, images, err := interpretContent(data)
	if err != nil {
		return nil, nil, fmt.Errorf("page %d content: %w", pageIndex+1, err)
	}
	return frags, images, nil
}

// pageHasImage reports whether the page references image XObjects.
func (r *Reader) pageHasImage(pageIndex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pdf.Optimize != nil {
		return len(pdfcpu.ImageObjNrs(r.pdf, pageIndex+1)) > 0
	}

	// Without optimization data, fall back to a document-level scan of the
	// xref table. Attribution to individual pages is lost.
	for _, entry := range r.pdf.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if n, isName := subtype.(types.Name); isName && n == "Image" {
				return true
			}
		}
	}
	return false
}
