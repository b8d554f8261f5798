// Package backend defines the contract every extraction backend satisfies
// and the static capability registry the selection policy consults.
//
// Backend identifiers form a closed enum: the engine maps each [ID] to its
// adapter in one exhaustive switch, so adding a backend is a reviewable
// change to this enum, the registry table and that switch, never a
// string-keyed method lookup.
//
// The [Registry] is constructed once at startup and read-only afterwards; it
// is safe for unlimited concurrent readers.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/parsemux/parsemux/format"
	"github.com/parsemux/parsemux/input"
)

// ID identifies one extraction backend.
type ID int

const (
	// None is the zero ID: no backend, used for "no override requested".
	None ID = iota
	// PDFMarkdown extracts digital PDFs to markdown with bounding boxes.
	PDFMarkdown
	// PDFText extracts digital PDFs to plain text with bounding boxes.
	PDFText
	// PDFTable extracts digital PDFs with table reconstruction.
	PDFTable
	// OCR recognizes rasterized pages with the linked tesseract engine.
	OCR
	// OCRCli recognizes rasterized pages by shelling out to tesseract.
	OCRCli
	// Docx reads Microsoft Word documents.
	Docx
	// Pptx reads Microsoft PowerPoint documents.
	Pptx
	// Xlsx reads spreadsheets.
	Xlsx
	// Text reads plain text and markdown.
	Text
	// HTML reads HTML documents.
	HTML
)

// String returns the stable identifier the backend registers under.
func (id ID) String() string {
	switch id {
	case PDFMarkdown:
		return "pdf-markdown"
	case PDFText:
		return "pdf-text"
	case PDFTable:
		return "pdf-table"
	case OCR:
		return "ocr"
	case OCRCli:
		return "ocr-cli"
	case Docx:
		return "docx"
	case Pptx:
		return "pptx"
	case Xlsx:
		return "xlsx"
	case Text:
		return "text"
	case HTML:
		return "html"
	default:
		return "none"
	}
}

// ParseID maps a stable identifier back to its ID. The empty string maps to
// None without error.
func ParseID(s string) (ID, error) {
	switch s {
	case "":
		return None, nil
	case "pdf-markdown":
		return PDFMarkdown, nil
	case "pdf-text":
		return PDFText, nil
	case "pdf-table":
		return PDFTable, nil
	case "ocr":
		return OCR, nil
	case "ocr-cli":
		return OCRCli, nil
	case "docx":
		return Docx, nil
	case "pptx":
		return Pptx, nil
	case "xlsx":
		return Xlsx, nil
	case "text":
		return Text, nil
	case "html":
		return HTML, nil
	default:
		return None, fmt.Errorf("unknown backend %q", s)
	}
}

// All returns every registered backend ID in declaration order.
func All() []ID {
	return []ID{PDFMarkdown, PDFText, PDFTable, OCR, OCRCli, Docx, Pptx, Xlsx, Text, HTML}
}

// Sentinel failures of the adapter contract.
var (
	// ErrUnavailable means a required runtime dependency is missing at call
	// time (OCR engine binary, rasterizer).
	ErrUnavailable = errors.New("backend unavailable")
	// ErrTimeout means the adapter exceeded the caller's deadline.
	ErrTimeout = errors.New("backend timed out")
)

// Capability declares what a backend can produce. Declared statically so the
// normalizer never probes output shapes at runtime.
type Capability struct {
	ProducesBoundingBoxes bool
	ProducesTables        bool
	RequiresOCREngine     bool
	SupportedCategories   []format.Category
}

// Supports reports whether the backend accepts the category.
func (c Capability) Supports(cat format.Category) bool {
	for _, sc := range c.SupportedCategories {
		if sc == cat {
			return true
		}
	}
	return false
}

// Options carries the per-call knobs an adapter may honor. Fields outside an
// adapter's declared capability are ignored by it.
type Options struct {
	// Pages restricts extraction to the given 0-based page indices
	// (ascending). Empty means all pages. Used for the OCR part of a hybrid
	// dispatch.
	Pages []int
	// ExtractImages toggles embedded image extraction where supported.
	ExtractImages bool
	// OCRLanguage passes through to OCR engines untouched.
	OCRLanguage string
}

// RawPage is one page in a backend's native output. Number keeps the
// backend's own numbering; the normalizer assigns canonical numbers.
// Width/Height are the page dimensions of the backend's native coordinate
// space; both zero when the backend reports no geometry.
type RawPage struct {
	Number   int
	Text     string
	Markdown string
	Boxes    []RawBox
	Width    float64
	Height   float64
}

// RawBox is a corner-form box in the backend's native units with the origin
// at the top-left of the page and Y increasing downward. Backends whose
// native space points the other way (PDF user space) flip before emitting,
// so the normalizer only ever scales.
type RawBox struct {
	Kind           BoxKind
	X0, Y0, X1, Y1 float64
}

// BoxKind mirrors the canonical box kinds for native output.
type BoxKind int

const (
	BoxText BoxKind = iota
	BoxImage
	BoxTable
)

// RawImage is an embedded image in a backend's native output.
type RawImage struct {
	PageNumber int
	Data       []byte
	Extension  string
}

// RawResult is a backend's native output. It may lack markdown, boxes or
// page segmentation; the declared Capability says which fields are promised.
type RawResult struct {
	Pages    []RawPage
	Images   []RawImage
	Metadata map[string]string
	Warnings []string
}

// Adapter is the uniform contract every backend implementation satisfies.
type Adapter interface {
	// ID returns the backend's stable identifier.
	ID() ID
	// Capability returns the backend's static capability declaration.
	Capability() Capability
	// Probe checks the backend's runtime dependencies before dispatch.
	// A nil return promises Parse will not fail with ErrUnavailable.
	Probe(ctx context.Context) error
	// Parse extracts the document into the backend's native shape.
	Parse(ctx context.Context, doc *input.Handle, opts Options) (*RawResult, error)
}

// Registry is the immutable capability table, written once at startup.
type Registry struct {
	caps map[ID]Capability
}

// NewRegistry builds the registry for the shipped backends.
func NewRegistry() *Registry {
	return &Registry{caps: map[ID]Capability{
		PDFMarkdown: {
			ProducesBoundingBoxes: true,
			SupportedCategories:   []format.Category{format.PDF},
		},
		PDFText: {
			ProducesBoundingBoxes: true,
			SupportedCategories:   []format.Category{format.PDF},
		},
		PDFTable: {
			ProducesBoundingBoxes: true,
			ProducesTables:        true,
			SupportedCategories:   []format.Category{format.PDF},
		},
		OCR: {
			ProducesBoundingBoxes: true,
			RequiresOCREngine:     true,
			SupportedCategories:   []format.Category{format.PDF},
		},
		OCRCli: {
			RequiresOCREngine:   true,
			SupportedCategories: []format.Category{format.PDF},
		},
		Docx: {
			ProducesTables:      true,
			SupportedCategories: []format.Category{format.Word},
		},
		Pptx: {
			SupportedCategories: []format.Category{format.PowerPoint},
		},
		Xlsx: {
			ProducesTables:      true,
			SupportedCategories: []format.Category{format.Excel},
		},
		Text: {
			SupportedCategories: []format.Category{format.PlainText},
		},
		HTML: {
			ProducesTables:      true,
			SupportedCategories: []format.Category{format.HTML},
		},
	}}
}

// Capability returns the declared capability for id.
func (r *Registry) Capability(id ID) (Capability, bool) {
	c, ok := r.caps[id]
	return c, ok
}

var defaultRegistry = NewRegistry()

// Lookup returns the default registry's capability for id. Unregistered IDs
// yield the zero Capability, which supports no category.
func Lookup(id ID) Capability {
	c, _ := defaultRegistry.Capability(id)
	return c
}

// IDs returns the registered backend IDs in declaration order.
func (r *Registry) IDs() []ID {
	var ids []ID
	for _, id := range All() {
		if _, ok := r.caps[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CapableOf returns, in declaration order, the backends supporting the
// category.
func (r *Registry) CapableOf(cat format.Category) []ID {
	var ids []ID
	for _, id := range All() {
		if c, ok := r.caps[id]; ok && c.Supports(cat) {
			ids = append(ids, id)
		}
	}
	return ids
}
