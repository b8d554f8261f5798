package htmldoc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
)

// Adapter exposes the converter through the backend contract.
type Adapter struct {
	logger *slog.Logger
	mode   ExclusionMode
}

// NewAdapter returns an HTML adapter with the standard boilerplate
// exclusion. A nil logger falls back to slog.Default().
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger, mode: ExclusionStandard}
}

// WithMode returns a copy of the adapter using the given exclusion mode.
func (a *Adapter) WithMode(mode ExclusionMode) *Adapter {
	clone := *a
	clone.mode = mode
	return &clone
}

// ID implements backend.Adapter.
func (a *Adapter) ID() backend.ID { return backend.HTML }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.Lookup(backend.HTML) }

// Probe implements backend.Adapter. The converter is self-contained.
func (a *Adapter) Probe(ctx context.Context) error { return nil }

// Parse implements backend.Adapter. HTML documents are a single page, and
// images stay references rather than payloads, so opts is ignored.
func (a *Adapter) Parse(ctx context.Context, doc *input.Handle, opts backend.Options) (*backend.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := OpenMode(doc.Data, a.mode)
	if err != nil {
		return nil, fmt.Errorf("reading html: %w", err)
	}
	a.logger.Debug("html document converted",
		"name", doc.Name,
		"title", d.Title,
		"exclusion", int(a.mode))

	return &backend.RawResult{
		Pages: []backend.RawPage{{
			Number:   1,
			Text:     d.Text,
			Markdown: d.Markdown,
		}},
		Metadata: d.Meta,
	}, nil
}
