package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/parsemux/parsemux/model"
)

// fakeReader serves pre-built signals. A negative errAt disables error
// injection.
type fakeReader struct {
	signals []model.PageSignal
	errAt   int
}

func newFakeReader(signals []model.PageSignal) *fakeReader {
	return &fakeReader{signals: signals, errAt: -1}
}

func (f *fakeReader) PageCount() int { return len(f.signals) }

func (f *fakeReader) Signal(_ context.Context, i int) (model.PageSignal, error) {
	if i == f.errAt {
		return model.PageSignal{}, errors.New("broken page object")
	}
	return f.signals[i], nil
}

// pageSignals builds one signal per entry: chars of extractable text, plus
// whether the page embeds an image. Pages with fewer than 50 characters
// count as textless.
func pageSignals(chars []int, images []bool) []model.PageSignal {
	signals := make([]model.PageSignal, len(chars))
	for i, c := range chars {
		hasImage := false
		if images != nil {
			hasImage = images[i]
		}
		signals[i] = model.PageSignal{
			Index:              i,
			HasExtractableText: c >= 50,
			HasImage:           hasImage,
			TextCharCount:      c,
		}
	}
	return signals
}

func repeatInts(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAnalyzeAllTextIsDigital(t *testing.T) {
	// Every sampled page has extractable text, so the classification is
	// digital no matter how many pages are sampled.
	for _, sampleSize := range []int{1, 3, 5, 100} {
		t.Run(fmt.Sprintf("sample_%d", sampleSize), func(t *testing.T) {
			r := newFakeReader(pageSignals(repeatInts(500, 10), nil))
			a := NewAnalyzer(sampleSize, 1, nil)

			cls, err := a.Analyze(context.Background(), r, 0.7)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if cls.DocumentType != model.DocTypeDigital {
				t.Errorf("DocumentType = %v, want digital", cls.DocumentType)
			}
			if len(cls.ScannedPageIndices) != 0 || len(cls.HybridPageIndices) != 0 {
				t.Errorf("buckets = %v / %v, want empty", cls.ScannedPageIndices, cls.HybridPageIndices)
			}
		})
	}
}

func TestAnalyzeThresholdBoundaryInclusive(t *testing.T) {
	// Exactly 7 of 10 sampled pages textless at threshold 0.7: the boundary
	// is inclusive, so the document is scanned.
	chars := append(repeatInts(0, 7), repeatInts(500, 3)...)
	r := newFakeReader(pageSignals(chars, nil))
	a := NewAnalyzer(10, 1, nil)

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeScanned {
		t.Errorf("DocumentType = %v, want scanned", cls.DocumentType)
	}
}

func TestAnalyzeMostlyTextlessIsScanned(t *testing.T) {
	// Pages 0-8 have no text, page 9 does: fraction 0.9 >= 0.7.
	chars := append(repeatInts(0, 9), 500)
	r := newFakeReader(pageSignals(chars, nil))
	a := NewAnalyzer(10, 1, nil)

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeScanned {
		t.Errorf("DocumentType = %v, want scanned", cls.DocumentType)
	}
	if want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}; !equalInts(cls.ScannedPageIndices, want) {
		t.Errorf("ScannedPageIndices = %v, want %v", cls.ScannedPageIndices, want)
	}
}

func TestAnalyzeMixedPagesIsHybrid(t *testing.T) {
	// Pages 0-4 text-bearing, 5-9 textless: fraction 0.5 < 0.7, both kinds
	// present.
	chars := append(repeatInts(500, 5), repeatInts(0, 5)...)
	r := newFakeReader(pageSignals(chars, nil))
	a := NewAnalyzer(10, 1, nil)

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeHybrid {
		t.Errorf("DocumentType = %v, want hybrid", cls.DocumentType)
	}
	if want := []int{5, 6, 7, 8, 9}; !equalInts(cls.ScannedPageIndices, want) {
		t.Errorf("ScannedPageIndices = %v, want %v", cls.ScannedPageIndices, want)
	}
	if len(cls.HybridPageIndices) != 0 {
		t.Errorf("HybridPageIndices = %v, want empty", cls.HybridPageIndices)
	}
}

func TestAnalyzeTextWithImageIsHybrid(t *testing.T) {
	// All pages text-bearing, one combines text with an embedded image.
	images := []bool{false, true, false}
	r := newFakeReader(pageSignals(repeatInts(500, 3), images))
	a := NewAnalyzer(3, 1, nil)

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeHybrid {
		t.Errorf("DocumentType = %v, want hybrid", cls.DocumentType)
	}
	if want := []int{1}; !equalInts(cls.HybridPageIndices, want) {
		t.Errorf("HybridPageIndices = %v, want %v", cls.HybridPageIndices, want)
	}
	if len(cls.ScannedPageIndices) != 0 {
		t.Errorf("ScannedPageIndices = %v, want empty", cls.ScannedPageIndices)
	}
}

func TestAnalyzeOverlappingBuckets(t *testing.T) {
	// A page with a short caption (under the 50-char bar) plus an image is
	// textless AND image-with-text: it lands in both buckets.
	signals := []model.PageSignal{
		{Index: 0, HasExtractableText: true, TextCharCount: 400},
		{Index: 1, HasExtractableText: false, HasImage: true, TextCharCount: 30},
	}
	r := newFakeReader(signals)
	a := NewAnalyzer(2, 1, nil)

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeHybrid {
		t.Errorf("DocumentType = %v, want hybrid", cls.DocumentType)
	}
	if want := []int{1}; !equalInts(cls.ScannedPageIndices, want) {
		t.Errorf("ScannedPageIndices = %v, want %v", cls.ScannedPageIndices, want)
	}
	if want := []int{1}; !equalInts(cls.HybridPageIndices, want) {
		t.Errorf("HybridPageIndices = %v, want %v", cls.HybridPageIndices, want)
	}
	if want := []int{1}; !equalInts(cls.OCRPages(), want) {
		t.Errorf("OCRPages() = %v, want %v", cls.OCRPages(), want)
	}
}

func TestAnalyzeSamplesPrefixOnly(t *testing.T) {
	// First five pages carry text, the rest do not. With the default sample
	// size the tail is never read and the document classifies digital; that
	// is the stated accuracy/latency trade.
	chars := append(repeatInts(500, 5), repeatInts(0, 5)...)
	r := newFakeReader(pageSignals(chars, nil))
	a := NewAnalyzer(0, 1, nil) // falls back to DefaultSampleSize

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.SampledPages != DefaultSampleSize {
		t.Errorf("SampledPages = %d, want %d", cls.SampledPages, DefaultSampleSize)
	}
	if cls.DocumentType != model.DocTypeDigital {
		t.Errorf("DocumentType = %v, want digital", cls.DocumentType)
	}
	if cls.TotalPages != 10 {
		t.Errorf("TotalPages = %d, want 10", cls.TotalPages)
	}
}

func TestAnalyzeParallelKeepsPageOrder(t *testing.T) {
	// Concurrent sampling must not disturb the ascending bucket order.
	chars := make([]int, 20)
	for i := range chars {
		if i%2 == 1 {
			chars[i] = 500
		}
	}
	r := newFakeReader(pageSignals(chars, nil))
	a := NewAnalyzer(20, 4, nil)

	cls, err := a.Analyze(context.Background(), r, 0.9)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	want := []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}
	if !equalInts(cls.ScannedPageIndices, want) {
		t.Errorf("ScannedPageIndices = %v, want %v", cls.ScannedPageIndices, want)
	}
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	r := newFakeReader(nil)
	a := NewAnalyzer(5, 1, nil)

	cls, err := a.Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeDigital {
		t.Errorf("DocumentType = %v, want digital", cls.DocumentType)
	}
	if cls.TotalPages != 0 || cls.SampledPages != 0 {
		t.Errorf("TotalPages/SampledPages = %d/%d, want 0/0", cls.TotalPages, cls.SampledPages)
	}
}

func TestAnalyzeThresholdValidation(t *testing.T) {
	r := newFakeReader(pageSignals(repeatInts(500, 3), nil))
	a := NewAnalyzer(5, 1, nil)

	for _, threshold := range []float64{0, -0.5, 1.01} {
		if _, err := a.Analyze(context.Background(), r, threshold); err == nil {
			t.Errorf("Analyze(threshold=%v) error = nil, want error", threshold)
		}
	}
}

func TestAnalyzeReaderErrorPropagates(t *testing.T) {
	r := newFakeReader(pageSignals(repeatInts(500, 5), nil))
	r.errAt = 2
	a := NewAnalyzer(5, 1, nil)

	_, err := a.Analyze(context.Background(), r, 0.7)
	if err == nil {
		t.Fatal("Analyze() error = nil, want page error")
	}
}
