// Package policy decides which backend parses a document. Selection is a
// pure function of the resolved category, the PDF classification, the
// caller's override, the declared capabilities, and pre-dispatch probe
// results. It performs no I/O and returns the same decision for the same
// inputs.
package policy

import (
	"errors"
	"fmt"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/config"
	"github.com/parsemux/parsemux/format"
	"github.com/parsemux/parsemux/model"
)

// ErrIncompatible means the caller forced a backend that does not support
// the document's category. No adapter is invoked.
var ErrIncompatible = errors.New("incompatible tool selection")

// ErrNoBackend means no registered backend covers the document's category.
var ErrNoBackend = errors.New("no capable backend")

// Availability holds pre-dispatch probe results keyed by backend ID. A
// backend absent from the map counts as available; the engine probes only
// backends whose capability declares a runtime dependency.
type Availability map[backend.ID]bool

func (a Availability) ok(id backend.ID) bool {
	if v, probed := a[id]; probed {
		return v
	}
	return true
}

// Decision names the backend to dispatch. OCRPages and OCRBackend are set
// only for the hybrid composite: the primary parses the whole document and
// the OCR backend re-parses the listed 0-based pages for the merge.
type Decision struct {
	Primary    backend.ID
	OCRPages   []int
	OCRBackend backend.ID
}

// Select resolves the backend for a document. cls may be nil for non-PDF
// categories or when classification is disabled; a nil cls on a PDF takes
// the digital path.
func Select(category format.Category, cls *model.PDFClassification, override backend.ID, reg *backend.Registry, prio config.Priorities, avail Availability) (Decision, error) {
	if override != backend.None {
		c, ok := reg.Capability(override)
		if !ok || !c.Supports(category) {
			return Decision{}, fmt.Errorf("%w: %s cannot parse %s documents", ErrIncompatible, override, category)
		}
		return Decision{Primary: override}, nil
	}

	if category == format.PDF {
		return selectPDF(cls, reg, prio, avail)
	}

	id, err := firstCapable(listFor(category, prio), category, reg)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Primary: id}, nil
}

func selectPDF(cls *model.PDFClassification, reg *backend.Registry, prio config.Priorities, avail Availability) (Decision, error) {
	docType := model.DocTypeDigital
	if cls != nil {
		docType = cls.DocumentType
	}

	switch docType {
	case model.DocTypeScanned:
		id, err := firstOCR(reg, prio, avail)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Primary: id}, nil

	case model.DocTypeHybrid:
		ocrID, err := firstOCR(reg, prio, avail)
		if err != nil {
			return Decision{}, err
		}
		// The text part always runs the plain text backend; its per-page
		// text is what the merge checks to let OCR win textless pages.
		return Decision{
			Primary:    backend.PDFText,
			OCRPages:   cls.OCRPages(),
			OCRBackend: ocrID,
		}, nil

	default:
		id, err := firstCapable(prio.PDF, format.PDF, reg)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Primary: id}, nil
	}
}

// firstOCR picks the OCR backend in configured order, preferring the first
// whose runtime dependency probed available. When every candidate probed
// unavailable the first configured one is still named: the unavailability
// surfaces at the adapter stage, where the fallback contract lives.
func firstOCR(reg *backend.Registry, prio config.Priorities, avail Availability) (backend.ID, error) {
	unavailable := backend.None
	for _, name := range prio.ScannedPDF {
		id, err := backend.ParseID(name)
		if err != nil || id == backend.None {
			continue
		}
		c, ok := reg.Capability(id)
		if !ok || !c.Supports(format.PDF) {
			continue
		}
		if avail.ok(id) {
			return id, nil
		}
		if unavailable == backend.None {
			unavailable = id
		}
	}
	if unavailable != backend.None {
		return unavailable, nil
	}
	return backend.None, fmt.Errorf("%w: no ocr backend configured", ErrNoBackend)
}

// Fallback names the backend after failed in the category's priority order,
// for the engine's one-shot retry when a backend is unavailable or times
// out. The scanned-PDF list applies when the failed backend is an OCR
// backend; ok is false when the list holds no later capable entry.
func Fallback(category format.Category, failed backend.ID, reg *backend.Registry, prio config.Priorities) (next backend.ID, ok bool) {
	list := listFor(category, prio)
	if c, found := reg.Capability(failed); found && c.RequiresOCREngine {
		list = prio.ScannedPDF
	}

	seen := false
	for _, name := range list {
		id, err := backend.ParseID(name)
		if err != nil || id == backend.None {
			continue
		}
		if id == failed {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if c, found := reg.Capability(id); found && c.Supports(category) {
			return id, true
		}
	}
	return backend.None, false
}

// firstCapable returns the first configured backend that declares support
// for the category. Names that do not parse are skipped.
func firstCapable(names []string, category format.Category, reg *backend.Registry) (backend.ID, error) {
	for _, name := range names {
		id, err := backend.ParseID(name)
		if err != nil || id == backend.None {
			continue
		}
		if c, ok := reg.Capability(id); ok && c.Supports(category) {
			return id, nil
		}
	}
	return backend.None, fmt.Errorf("%w for category %s", ErrNoBackend, category)
}

func listFor(category format.Category, prio config.Priorities) []string {
	switch category {
	case format.PDF:
		return prio.PDF
	case format.Word:
		return prio.Word
	case format.PowerPoint:
		return prio.PowerPoint
	case format.Excel:
		return prio.Excel
	case format.PlainText:
		return prio.Text
	case format.HTML:
		return prio.HTML
	default:
		return nil
	}
}
