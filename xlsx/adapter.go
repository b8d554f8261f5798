package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
)

// Adapter is the xlsx backend. Every sheet becomes one page without
// geometry; CSV files arrive as a single sheet.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter returns the xlsx backend.
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// ID implements backend.Adapter.
func (a *Adapter) ID() backend.ID { return backend.Xlsx }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.Lookup(backend.Xlsx) }

// Probe implements backend.Adapter; the reader is self-contained.
func (a *Adapter) Probe(ctx context.Context) error { return nil }

// Parse implements backend.Adapter.
func (a *Adapter) Parse(ctx context.Context, doc *input.Handle, opts backend.Options) (*backend.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		r   *Reader
		err error
	)
	if IsDelimited(doc.Name) {
		r, err = OpenCSV(doc.Data, doc.Name)
	} else {
		r, err = Open(doc.Data)
	}
	if err != nil {
		return nil, err
	}

	indices, err := sheetSet(opts.Pages, r.SheetCount())
	if err != nil {
		return nil, err
	}

	res := &backend.RawResult{Metadata: r.Metadata()}
	sheets := r.Sheets()
	for _, i := range indices {
		s := sheets[i]
		res.Pages = append(res.Pages, backend.RawPage{
			Number:   i + 1,
			Text:     s.Text(),
			Markdown: s.Markdown(),
		})
	}

	if opts.ExtractImages {
		for _, m := range r.Media() {
			if len(opts.Pages) > 0 && !slices.Contains(indices, m.SheetNumber-1) {
				continue
			}
			res.Images = append(res.Images, backend.RawImage{
				PageNumber: m.SheetNumber,
				Data:       m.Data,
				Extension:  m.Extension,
			})
		}
	}
	return res, nil
}

// sheetSet validates and normalizes the requested 0-based sheet indices; nil
// selects every sheet.
func sheetSet(pages []int, count int) ([]int, error) {
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
			return nil, fmt.Errorf("sheet index %d out of range [0,%d)", p, count)
		}
	}
	return out, nil
}
