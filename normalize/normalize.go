// Package normalize folds backend-native results into the canonical document
// shape: canonical page numbering from 1, bounding boxes scaled into the unit
// square exactly once, and the hybrid text+OCR merge.
package normalize

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/model"
)

// ErrConflict means a backend's output cannot be reconciled into the
// canonical shape: duplicate page numbers, or boxes reported without page
// dimensions.
var ErrConflict = errors.New("normalization conflict")

// Normalize converts one backend's raw output into the canonical result.
// cls, when non-nil, attaches verbatim as the PDF analysis.
func Normalize(raw *backend.RawResult, id backend.ID, cls *model.PDFClassification) (*model.DocumentResult, error) {
	byNum, err := indexByNumber(raw.Pages)
	if err != nil {
		return nil, err
	}

	res := model.NewDocumentResult(id.String())
	for i, num := range slices.Sorted(maps.Keys(byNum)) {
		page, err := canonicalPage(byNum[num], i+1)
		if err != nil {
			return nil, err
		}
		res.Pages = append(res.Pages, page)
	}
	res.Content = assembleContent(res.Pages)
	res.Images = convertImages(raw.Images)
	maps.Copy(res.Metadata, raw.Metadata)
	res.Metadata["pageCount"] = strconv.Itoa(len(res.Pages))
	res.Warnings = append(res.Warnings, raw.Warnings...)
	res.PDFAnalysis = cls
	return res, nil
}

// Merge reconciles the two parts of a hybrid dispatch: the digital text part
// covering the whole document and the OCR part covering ocrPages (0-based
// indices). Pages present in both keep the text part unless its page is
// textless, in which case the OCR page wins; the winning part alone
// contributes that page's boxes. A requested OCR page the OCR part did not
// produce becomes a warning, not an error.
func Merge(primary, ocr *backend.RawResult, primaryID, ocrID backend.ID, ocrPages []int, cls *model.PDFClassification) (*model.DocumentResult, error) {
	primByNum, err := indexByNumber(primary.Pages)
	if err != nil {
		return nil, err
	}
	ocrByNum, err := indexByNumber(ocr.Pages)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, idx := range ocrPages {
		if _, ok := ocrByNum[idx+1]; !ok {
			missing = append(missing, fmt.Sprintf("page %d: ocr produced no output", idx+1))
		}
	}

	numbers := make(map[int]struct{}, len(primByNum)+len(ocrByNum))
	for num := range primByNum {
		numbers[num] = struct{}{}
	}
	for num := range ocrByNum {
		numbers[num] = struct{}{}
	}

	res := model.NewDocumentResult(primaryID.String())
	for i, num := range slices.Sorted(maps.Keys(numbers)) {
		pp, inPrimary := primByNum[num]
		op, inOCR := ocrByNum[num]

		rp := pp
		fromOCR := false
		switch {
		case inPrimary && inOCR:
			if textless(pp) {
				rp, fromOCR = op, true
			}
		case inOCR:
			rp, fromOCR = op, true
		}

		page, err := canonicalPage(rp, i+1)
		if err != nil {
			return nil, err
		}
		if fromOCR {
			if page.PageMetadata == nil {
				page.PageMetadata = make(map[string]string)
			}
			page.PageMetadata["ocr"] = "true"
		}
		res.Pages = append(res.Pages, page)
	}

	res.Content = assembleContent(res.Pages)
	res.Images = append(convertImages(primary.Images), convertImages(ocr.Images)...)
	maps.Copy(res.Metadata, ocr.Metadata)
	maps.Copy(res.Metadata, primary.Metadata)
	res.Metadata["pageCount"] = strconv.Itoa(len(res.Pages))
	res.Metadata["ocrTool"] = ocrID.String()
	res.Warnings = append(res.Warnings, primary.Warnings...)
	res.Warnings = append(res.Warnings, ocr.Warnings...)
	res.Warnings = append(res.Warnings, missing...)
	res.PDFAnalysis = cls
	return res, nil
}

// textless reports whether the digital extraction found no content on the
// page.
func textless(p backend.RawPage) bool {
	return strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.Markdown) == ""
}

func indexByNumber(pages []backend.RawPage) (map[int]backend.RawPage, error) {
	byNum := make(map[int]backend.RawPage, len(pages))
	for _, p := range pages {
		if _, dup := byNum[p.Number]; dup {
			return nil, fmt.Errorf("%w: backend reported page %d twice", ErrConflict, p.Number)
		}
		byNum[p.Number] = p
	}
	return byNum, nil
}

// canonicalPage converts one raw page, assigning the canonical number. The
// backend's own number is kept as page metadata when it differs.
func canonicalPage(rp backend.RawPage, number int) (model.PageResult, error) {
	boxes, err := normalizeBoxes(rp)
	if err != nil {
		return model.PageResult{}, err
	}

	content := rp.Markdown
	if content == "" {
		content = rp.Text
	}

	page := model.PageResult{
		PageNumber:    number,
		Content:       content,
		BoundingBoxes: boxes,
	}
	if rp.Number > 0 && rp.Number != number {
		page.PageMetadata = map[string]string{"sourcePage": strconv.Itoa(rp.Number)}
	}
	return page, nil
}

// normalizeBoxes converts native boxes to the unit square. This is the only
// place coordinates are normalized; everything downstream is a multiply.
func normalizeBoxes(rp backend.RawPage) ([]model.BBox, error) {
	if len(rp.Boxes) == 0 {
		return nil, nil
	}
	if rp.Width <= 0 || rp.Height <= 0 {
		return nil, fmt.Errorf("%w: page %d reports %d boxes without page dimensions",
			ErrConflict, rp.Number, len(rp.Boxes))
	}

	boxes := make([]model.BBox, 0, len(rp.Boxes))
	for _, rb := range rp.Boxes {
		b := model.NewBBox(kindOf(rb.Kind),
			rb.X0/rp.Width, rb.Y0/rp.Height,
			rb.X1/rp.Width, rb.Y1/rp.Height)
		boxes = append(boxes, b.Clamped())
	}
	return boxes, nil
}

func kindOf(k backend.BoxKind) model.BoxKind {
	switch k {
	case backend.BoxImage:
		return model.BoxImage
	case backend.BoxTable:
		return model.BoxTable
	default:
		return model.BoxText
	}
}

// assembleContent builds the document markdown. A single page passes through
// unchanged; multiple pages are separated with "## Page N" headings.
func assembleContent(pages []model.PageResult) string {
	if len(pages) == 1 {
		return pages[0].Content
	}
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		part := fmt.Sprintf("## Page %d", p.PageNumber)
		if c := strings.TrimSpace(p.Content); c != "" {
			part += "\n\n" + c
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "\n\n")
}

func convertImages(raw []backend.RawImage) []model.ExtractedImage {
	if len(raw) == 0 {
		return nil
	}
	imgs := make([]model.ExtractedImage, 0, len(raw))
	for _, ri := range raw {
		imgs = append(imgs, model.ExtractedImage{
			PageNumber: ri.PageNumber,
			Data:       ri.Data,
			Extension:  ri.Extension,
		})
	}
	return imgs
}
