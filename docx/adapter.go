package docx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
)

// Adapter is the docx backend. Word documents have no fixed pagination, so
// the whole document maps to a single page without geometry.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter returns the docx backend.
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// ID implements backend.Adapter.
func (a *Adapter) ID() backend.ID { return backend.Docx }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.Lookup(backend.Docx) }

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

	res := &backend.RawResult{
		Pages: []backend.RawPage{{
			Number:   1,
			Text:     r.Text(),
			Markdown: r.Markdown(),
		}},
		Metadata: r.Metadata(),
	}

	if opts.ExtractImages {
		media, err := r.Media()
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("media extraction: %v", err))
		}
		for _, m := range media {
			res.Images = append(res.Images, backend.RawImage{
				PageNumber: 1,
				Data:       m.Data,
				Extension:  m.Extension,
			})
		}
	}
	return res, nil
}
