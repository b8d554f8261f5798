package pptx

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
)

// Adapter is the pptx backend. Every slide becomes one page; slide geometry
// comes from the declared slide size, but no element boxes are produced.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter returns the pptx backend.
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// ID implements backend.Adapter.
func (a *Adapter) ID() backend.ID { return backend.Pptx }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.Lookup(backend.Pptx) }

// Probe implements backend.Adapter; the reader is self-contained.
func (a *Adapter) Probe(ctx context.Context) error { return nil }

// Parse implements backend.Adapter.
func (a *Adapter) Parse(ctx context.Context, doc *input.Handle, opts backend.Options) (*backend.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := Open(doc.Data)
	if err != nil {
		return nil, err
	}
	indices, err := slideSet(opts.Pages, r.SlideCount())
	if err != nil {
		return nil, err
	}

	width, height := r.SlideSize()
	res := &backend.RawResult{Metadata: r.Metadata()}
	slides := r.Slides()
	for _, i := range indices {
		s := slides[i]
		res.Pages = append(res.Pages, backend.RawPage{
			Number:   s.Number,
			Text:     s.Text(),
			Markdown: s.Markdown(),
			Width:    width,
			Height:   height,
		})
	}

	if opts.ExtractImages {
		media, err := r.Media()
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("media extraction: %v", err))
		}
		for _, m := range media {
			if len(opts.Pages) > 0 && !slices.Contains(indices, m.SlideNumber-1) {
				continue
			}
			res.Images = append(res.Images, backend.RawImage{
				PageNumber: m.SlideNumber,
				Data:       m.Data,
				Extension:  m.Extension,
			})
		}
	}
	return res, nil
}

// slideSet validates and normalizes the requested 0-based slide indices; nil
// selects every slide.
func slideSet(pages []int, count int) ([]int, error) {
	if len(pages) == 0 {
		all := make([]int, count)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	out := slices.Clone(pages)
	slices.Sort(out)
	out = slices.Compact(out)
	for _, p := range out {
		if p < 0 || p >= count {
			return nil, fmt.Errorf("slide index %d out of range [0,%d)", p, count)
		}
	}
	return out, nil
}
