package policy

import (
	"errors"
	"reflect"
	"testing"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/config"
	"github.com/parsemux/parsemux/format"
	"github.com/parsemux/parsemux/model"
)

func TestSelectOverride(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities

	dec, err := Select(format.Word, nil, backend.Docx, reg, prio, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.Primary != backend.Docx {
		t.Errorf("Primary = %v, want %v", dec.Primary, backend.Docx)
	}

	// Overriding the normal choice within the category is allowed.
	dec, err = Select(format.PDF, nil, backend.PDFTable, reg, prio, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.Primary != backend.PDFTable {
		t.Errorf("Primary = %v, want %v", dec.Primary, backend.PDFTable)
	}
}

func TestSelectOverrideIncompatible(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities

	_, err := Select(format.Excel, nil, backend.PDFMarkdown, reg, prio, nil)
	if !errors.Is(err, ErrIncompatible) {
		t.Fatalf("err = %v, want ErrIncompatible", err)
	}
}

func TestSelectDigitalPDF(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities

	tests := []struct {
		name string
		cls  *model.PDFClassification
	}{
		{"classified digital", &model.PDFClassification{DocumentType: model.DocTypeDigital}},
		{"classification skipped", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := Select(format.PDF, tt.cls, backend.None, reg, prio, nil)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if dec.Primary != backend.PDFMarkdown {
				t.Errorf("Primary = %v, want %v", dec.Primary, backend.PDFMarkdown)
			}
			if dec.OCRBackend != backend.None || dec.OCRPages != nil {
				t.Errorf("unexpected composite directive %+v for a digital document", dec)
			}
		})
	}
}

func TestSelectScannedPDF(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities
	cls := &model.PDFClassification{DocumentType: model.DocTypeScanned}

	tests := []struct {
		name  string
		avail Availability
		want  backend.ID
	}{
		{"first choice available", nil, backend.OCR},
		{"first choice down", Availability{backend.OCR: false}, backend.OCRCli},
		// Nothing probed available: the first configured backend is still
		// named and the dispatch surfaces the unavailability.
		{"all down", Availability{backend.OCR: false, backend.OCRCli: false}, backend.OCR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := Select(format.PDF, cls, backend.None, reg, prio, tt.avail)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if dec.Primary != tt.want {
				t.Errorf("Primary = %v, want %v", dec.Primary, tt.want)
			}
		})
	}
}

func TestSelectScannedPDFCustomOrder(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities
	prio.ScannedPDF = []string{"ocr-cli", "ocr"}
	cls := &model.PDFClassification{DocumentType: model.DocTypeScanned}

	dec, err := Select(format.PDF, cls, backend.None, reg, prio, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.Primary != backend.OCRCli {
		t.Errorf("Primary = %v, want the configured order honored", dec.Primary)
	}
}

func TestSelectHybridPDF(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities
	cls := &model.PDFClassification{
		DocumentType:       model.DocTypeHybrid,
		TotalPages:         8,
		SampledPages:       8,
		ScannedPageIndices: []int{5, 6},
		HybridPageIndices:  []int{2, 5},
	}

	dec, err := Select(format.PDF, cls, backend.None, reg, prio, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := Decision{
		Primary:    backend.PDFText,
		OCRPages:   []int{2, 5, 6},
		OCRBackend: backend.OCR,
	}
	if !reflect.DeepEqual(dec, want) {
		t.Errorf("Decision = %+v, want %+v", dec, want)
	}
}

func TestSelectNonPDF(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities

	tests := []struct {
		category format.Category
		want     backend.ID
	}{
		{format.Word, backend.Docx},
		{format.PowerPoint, backend.Pptx},
		{format.Excel, backend.Xlsx},
		{format.PlainText, backend.Text},
		{format.HTML, backend.HTML},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			dec, err := Select(tt.category, nil, backend.None, reg, prio, nil)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if dec.Primary != tt.want {
				t.Errorf("Primary = %v, want %v", dec.Primary, tt.want)
			}
		})
	}
}

func TestSelectUnknownCategory(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities

	_, err := Select(format.Unknown, nil, backend.None, reg, prio, nil)
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("err = %v, want ErrNoBackend", err)
	}
}

func TestSelectSkipsUnknownPriorityNames(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities
	prio.PDF = []string{"bogus", "pdf-text"}

	dec, err := Select(format.PDF, nil, backend.None, reg, prio, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if dec.Primary != backend.PDFText {
		t.Errorf("Primary = %v, want the unknown name skipped", dec.Primary)
	}
}

func TestSelectEmptyPriorityList(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities
	prio.Word = nil

	_, err := Select(format.Word, nil, backend.None, reg, prio, nil)
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("err = %v, want ErrNoBackend", err)
	}
}

func TestFallback(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities

	tests := []struct {
		name     string
		category format.Category
		failed   backend.ID
		want     backend.ID
		ok       bool
	}{
		{"pdf markdown falls to text", format.PDF, backend.PDFMarkdown, backend.PDFText, true},
		{"pdf text falls to table", format.PDF, backend.PDFText, backend.PDFTable, true},
		{"last pdf entry has no fallback", format.PDF, backend.PDFTable, backend.None, false},
		{"ocr falls to ocr-cli", format.PDF, backend.OCR, backend.OCRCli, true},
		{"ocr-cli has no fallback", format.PDF, backend.OCRCli, backend.None, false},
		{"single-entry category has no fallback", format.Word, backend.Docx, backend.None, false},
		{"failed backend not in list", format.Excel, backend.Docx, backend.None, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := Fallback(tt.category, tt.failed, reg, prio)
			if next != tt.want || ok != tt.ok {
				t.Errorf("Fallback = (%v, %v), want (%v, %v)", next, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSelectDeterministic(t *testing.T) {
	reg := backend.NewRegistry()
	prio := config.Default().Priorities
	cls := &model.PDFClassification{
		DocumentType:       model.DocTypeHybrid,
		ScannedPageIndices: []int{3},
		HybridPageIndices:  []int{1},
	}
	avail := Availability{backend.OCR: false}

	first, err := Select(format.PDF, cls, backend.None, reg, prio, avail)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	second, err := Select(format.PDF, cls, backend.None, reg, prio, avail)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("decisions differ across identical calls: %+v vs %+v", first, second)
	}
}
