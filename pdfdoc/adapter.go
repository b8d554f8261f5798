package pdfdoc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
)

// Image extraction policy for the digital adapters. Images below the
// minimum dimension are almost always decoration: rules, bullets, logos at
// icon size.
const (
	minExtractImageDim = 50
	maxImagesPerPage   = 20
)

// ImageLimits bounds embedded image extraction. Zero fields take the
// package defaults.
type ImageLimits struct {
	MinWidth   int
	MinHeight  int
	MaxPerPage int
}

func (l *ImageLimits) defaults() {
	if l.MinWidth <= 0 {
		l.MinWidth = minExtractImageDim
	}
	if l.MinHeight <= 0 {
		l.MinHeight = minExtractImageDim
	}
	if l.MaxPerPage <= 0 {
		l.MaxPerPage = maxImagesPerPage
	}
}

// appendPageImages extracts one page's embedded images into res subject to
// lim. Extraction failures degrade to warnings.
func appendPageImages(r *Reader, pageIndex int, lim ImageLimits, res *backend.RawResult) {
	imgs, skipped, err := r.PageImages(pageIndex, lim.MinWidth, lim.MinHeight, lim.MaxPerPage)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: image extraction: %v", pageIndex+1, err))
	}
	if skipped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %d non-JPEG images skipped", pageIndex+1, skipped))
	}
	for _, img := range imgs {
		res.Images = append(res.Images, backend.RawImage{
			PageNumber: pageIndex + 1,
			Data:       img.Data,
			Extension:  img.Extension,
		})
	}
}

// DigitalAdapter serves the text-layer PDF backends. One implementation
// covers pdf-text, pdf-markdown and pdf-table; the ID selects which outputs
// a page carries.
type DigitalAdapter struct {
	// Images bounds embedded image extraction. Adjust before Parse; the
	// zero value takes the package defaults.
	Images ImageLimits

	id     backend.ID
	cap    backend.Capability
	tables tableConfig
	logger *slog.Logger
}

func newDigital(id backend.ID, logger *slog.Logger) *DigitalAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigitalAdapter{
		id:     id,
		cap:    backend.Lookup(id),
		tables: defaultTableConfig(),
		logger: logger,
	}
}

// NewTextAdapter returns the pdf-text backend: reading-order plain text with
// per-line boxes.
func NewTextAdapter(logger *slog.Logger) *DigitalAdapter {
	return newDigital(backend.PDFText, logger)
}

// NewMarkdownAdapter returns the pdf-markdown backend: markdown with
// font-size headings plus per-line boxes.
func NewMarkdownAdapter(logger *slog.Logger) *DigitalAdapter {
	return newDigital(backend.PDFMarkdown, logger)
}

// NewTableAdapter returns the pdf-table backend: markdown with detected
// tables rendered as pipe tables, plus line and table boxes.
func NewTableAdapter(logger *slog.Logger) *DigitalAdapter {
	return newDigital(backend.PDFTable, logger)
}

// ID implements backend.Adapter.
func (a *DigitalAdapter) ID() backend.ID { return a.id }

// Capability implements backend.Adapter.
func (a *DigitalAdapter) Capability() backend.Capability { return a.cap }

// Probe implements backend.Adapter. The digital path has no runtime
// dependencies beyond the process itself.
func (a *DigitalAdapter) Probe(ctx context.Context) error { return nil }

// Parse implements backend.Adapter. Per-page content failures degrade to an
// empty page plus a warning; only an unreadable document fails the call.
func (a *DigitalAdapter) Parse(ctx context.Context, doc *input.Handle, opts backend.Options) (*backend.RawResult, error) {
	r, err := Open(doc.Data)
	if err != nil {
		return nil, err
	}

	pages, err := pageSet(opts.Pages, r.PageCount())
	if err != nil {
		return nil, err
	}

	lim := a.Images
	lim.defaults()

	res := &backend.RawResult{}
	for _, pageIndex := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, warnings := a.extractPage(r, pageIndex)
		res.Pages = append(res.Pages, page)
		res.Warnings = append(res.Warnings, warnings...)

		if opts.ExtractImages {
			appendPageImages(r, pageIndex, lim, res)
		}
	}
	return res, nil
}

func (a *DigitalAdapter) extractPage(r *Reader, pageIndex int) (backend.RawPage, []string) {
	width, height := r.PageSize(pageIndex)
	page := backend.RawPage{Number: pageIndex + 1, Width: width, Height: height}

	frags, imgBoxes, err := r.pageContent(pageIndex)
	if err != nil {
		a.logger.Warn("page content extraction failed", "page", pageIndex+1, "error", err)
		return page, []string{fmt.Sprintf("page %d: %v", pageIndex+1, err)}
	}
	if len(imgBoxes) > 0 && !r.pageHasImage(pageIndex) {
		// Do operators on a page without image XObjects are form draws.
		imgBoxes = nil
	}

	lines := assembleLines(frags)

	var tables []Table
	switch a.id {
	case backend.PDFText:
		page.Text = linesToText(lines)
	case backend.PDFMarkdown:
		page.Text = linesToText(lines)
		page.Markdown = linesToMarkdown(lines)
	case backend.PDFTable:
		tables = detectTables(frags, a.tables)
		page.Text = linesToText(lines)
		page.Markdown = composeMarkdown(lines, tables)
	}

	for _, ln := range lines {
		page.Boxes = append(page.Boxes, flipY(backend.BoxText, ln.X0, ln.Y0, ln.X1, ln.Y1, height))
	}
	for _, t := range tables {
		page.Boxes = append(page.Boxes, flipY(backend.BoxTable, t.X0, t.Y0, t.X1, t.Y1, height))
	}
	for _, ib := range imgBoxes {
		page.Boxes = append(page.Boxes, flipY(backend.BoxImage, ib.X0, ib.Y0, ib.X1, ib.Y1, height))
	}
	return page, nil
}

// flipY converts a corner box from PDF user space, where the origin sits at
// the bottom-left, into the top-left orientation RawBox requires.
func flipY(kind backend.BoxKind, x0, y0, x1, y1, pageHeight float64) backend.RawBox {
	return backend.RawBox{Kind: kind, X0: x0, Y0: pageHeight - y1, X1: x1, Y1: pageHeight - y0}
}

// pageSet resolves a requested page subset against the page count. Empty
// means every page; indices are returned ascending and deduplicated.
func pageSet(requested []int, count int) ([]int, error) {
	if len(requested) == 0 {
		pages := make([]int, count)
		for i := range pages {
			pages[i] = i
		}
		return pages, nil
	}
	pages := make([]int, 0, len(requested))
	for _, p := range requested {
		if p < 0 || p >= count {
			return nil, fmt.Errorf("page index %d out of range [0,%d)", p, count)
		}
		pages = append(pages, p)
	}
	slices.Sort(pages)
	return slices.Compact(pages), nil
}
