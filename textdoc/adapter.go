package textdoc

import (
	"context"
	"log/slog"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
)

// Adapter exposes the reader through the backend contract.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter returns a text adapter. A nil logger falls back to slog.Default().
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// ID implements backend.Adapter.
func (a *Adapter) ID() backend.ID { return backend.Text }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.Lookup(backend.Text) }

// Probe implements backend.Adapter. The reader is self-contained.
func (a *Adapter) Probe(ctx context.Context) error { return nil }

// Parse implements backend.Adapter. Text documents are always a single page
// and never carry images, so opts is ignored.
func (a *Adapter) Parse(ctx context.Context, doc *input.Handle, opts backend.Options) (*backend.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := Open(doc.Data, doc.Name)
	a.logger.Debug("text document decoded",
		"name", doc.Name,
		"encoding", d.Meta["encoding"],
		"markdown", IsMarkdown(doc.Name))

	return &backend.RawResult{
		Pages: []backend.RawPage{{
			Number:   1,
			Text:     d.Text,
			Markdown: d.Markdown,
		}},
		Metadata: d.Meta,
	}, nil
}
