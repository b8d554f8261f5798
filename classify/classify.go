// Package classify implements the PDF structural analyzer: it samples page
// signals from a reader collaborator and derives the digital/scanned/hybrid
// classification the selection policy routes on.
package classify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/parsemux/parsemux/model"
)

// DefaultSampleSize caps how many leading pages are sampled when the caller
// does not say otherwise.
const DefaultSampleSize = 5

// PageReader is the capability-providing PDF reader the analyzer consumes.
// Implementations report per-page evidence; they never classify.
type PageReader interface {
	// PageCount returns the total number of pages.
	PageCount() int
	// Signal derives the evidence for one 0-based page index.
	Signal(ctx context.Context, pageIndex int) (model.PageSignal, error)
}

// Analyzer samples pages and classifies a PDF. Safe for concurrent use.
type Analyzer struct {
	sampleSize  int
	maxParallel int
	logger      *slog.Logger
}

// NewAnalyzer creates an analyzer. Non-positive sampleSize falls back to
// DefaultSampleSize, non-positive maxParallel to serial sampling, nil logger
// to slog.Default().
func NewAnalyzer(sampleSize, maxParallel int, logger *slog.Logger) *Analyzer {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{sampleSize: sampleSize, maxParallel: maxParallel, logger: logger}
}

// Analyze samples up to the analyzer's sample size of leading pages and
// classifies the document. Sampling a prefix trades accuracy on documents
// whose character changes late in the file for bounded latency on very large
// PDFs.
//
// The classification rule, evaluated once over the sampled signals:
//
//   - textless fraction >= threshold: scanned (the boundary is inclusive)
//   - else, a mix of textless and text-bearing pages, or any page combining
//     nonzero text with an embedded image: hybrid
//   - else: digital
//
// Bucketing over the sampled range: every textless page lands in
// ScannedPageIndices; every page with nonzero text and an embedded image
// lands in HybridPageIndices. A short-text page with an image appears in
// both buckets; the overlap is intentional and callers merge the sets with
// [model.PDFClassification.OCRPages].
func (a *Analyzer) Analyze(ctx context.Context, r PageReader, threshold float64) (*model.PDFClassification, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("scanned threshold must be in (0,1], got %v", threshold)
	}

	total := r.PageCount()
	cls := &model.PDFClassification{
		DocumentType:       model.DocTypeDigital,
		TotalPages:         total,
		ScannedPageIndices: []int{},
		HybridPageIndices:  []int{},
	}
	if total == 0 {
		return cls, nil
	}

	sampled := min(a.sampleSize, total)
	cls.SampledPages = sampled

	signals := make([]model.PageSignal, sampled)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxParallel)
	for i := 0; i < sampled; i++ {
		g.Go(func() error {
			sig, err := r.Signal(gctx, i)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			signals[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	textless, textful := 0, 0
	imageWithText := false
	for _, sig := range signals {
		if sig.HasExtractableText {
			textful++
		} else {
			textless++
			cls.ScannedPageIndices = append(cls.ScannedPageIndices, sig.Index)
		}
		if sig.TextCharCount > 0 && sig.HasImage {
			imageWithText = true
			cls.HybridPageIndices = append(cls.HybridPageIndices, sig.Index)
		}
	}

	fraction := float64(textless) / float64(sampled)
	switch {
	case fraction >= threshold:
		cls.DocumentType = model.DocTypeScanned
	case (textless >= 1 && textful >= 1) || imageWithText:
		cls.DocumentType = model.DocTypeHybrid
	default:
		cls.DocumentType = model.DocTypeDigital
	}

	a.logger.Debug("pdf classified",
		"type", cls.DocumentType.String(),
		"pages", total,
		"sampled", sampled,
		"textless_fraction", fraction,
		"scanned_pages", len(cls.ScannedPageIndices),
		"hybrid_pages", len(cls.HybridPageIndices))

	return cls, nil
}
