package model

import "sort"

// DocumentType is the structural classification of a PDF.
type DocumentType int

const (
	DocTypeDigital DocumentType = iota
	DocTypeScanned
	DocTypeHybrid
)

// String returns the lowercase name of the document type.
func (t DocumentType) String() string {
	switch t {
	case DocTypeDigital:
		return "digital"
	case DocTypeScanned:
		return "scanned"
	case DocTypeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so classifications serialize
// by name.
func (t DocumentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PageSignal is the per-page evidence the analyzer derives from a PDF page.
// Immutable after creation.
type PageSignal struct {
	Index              int  `json:"index"` // 0-based page index
	HasExtractableText bool `json:"hasExtractableText"`
	HasImage           bool `json:"hasImage"`
	TextCharCount      int  `json:"textCharCount"`
}

// PDFClassification is the analyzer's verdict for one PDF, derived
// deterministically from the ordered page signals.
//
// A page index may appear in both ScannedPageIndices and HybridPageIndices: a
// page with no extractable text is scanned, a page with both meaningful text
// and a substantial embedded image is hybrid, and the buckets are recorded
// independently. Callers wanting the pages that need OCR should use
// [PDFClassification.OCRPages].
type PDFClassification struct {
	DocumentType       DocumentType `json:"documentType"`
	TotalPages         int          `json:"totalPages"`
	SampledPages       int          `json:"sampledPages"`
	ScannedPageIndices []int        `json:"scannedPageIndices"`
	HybridPageIndices  []int        `json:"hybridPageIndices"`
}

// OCRPages returns the ascending, deduplicated union of the scanned and
// hybrid page indices: the pages an OCR pass should cover for a hybrid
// document.
func (c *PDFClassification) OCRPages() []int {
	seen := make(map[int]bool, len(c.ScannedPageIndices)+len(c.HybridPageIndices))
	var pages []int
	for _, lst := range [][]int{c.ScannedPageIndices, c.HybridPageIndices} {
		for _, idx := range lst {
			if !seen[idx] {
				seen[idx] = true
				pages = append(pages, idx)
			}
		}
	}
	sort.Ints(pages)
	return pages
}
