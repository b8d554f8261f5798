// Package parsemux parses PDF, Office, plain text and HTML documents into
// one canonical result: markdown content, per-page bounding boxes in
// normalized coordinates, extracted images, and metadata. Scanned and
// mixed PDFs are detected by structural analysis and routed to OCR
// backends automatically.
//
// Basic usage:
//
//	res, err := parsemux.Open("report.pdf").Parse(ctx)
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(res.Content)
//
// With options:
//
//	res, err := parsemux.Open("scan.pdf").
//	    WithOCRLanguage("deu").
//	    WithScannedThreshold(0.8).
//	    Parse(ctx)
//
// Long-lived services construct one Engine with their own configuration
// and share it across calls:
//
//	eng := parsemux.NewEngine(cfg, logger)
//	defer eng.Close()
//	res, err := eng.Open("report.pdf").Parse(ctx)
package parsemux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
	"github.com/parsemux/parsemux/model"
)

// Result is the canonical document result a parse produces. It aliases
// model.DocumentResult so callers of the facade rarely need the model
// package directly.
type Result = model.DocumentResult

var defaultEngine = sync.OnceValue(func() *Engine {
	return NewEngine(nil, nil)
})

// Parser is the fluent handle for one document. Each With method returns a
// copy, so a configured Parser is safe to share and reuse; nothing touches
// the document until Parse.
type Parser struct {
	engine *Engine

	path   string
	rawURL string
	handle *input.Handle

	opts ParseOptions
	err  error
}

func (p *Parser) clone() *Parser {
	cp := *p
	return &cp
}

// Open prepares a parse of a local file using the default engine.
//
//	res, err := parsemux.Open("report.pdf").Parse(ctx)
func Open(path string) *Parser {
	return defaultEngine().Open(path)
}

// FromReader prepares a parse of an already-open stream. The name is used
// for category resolution and display only.
func FromReader(r io.Reader, name string) *Parser {
	return defaultEngine().FromReader(r, name)
}

// FromBytes prepares a parse of an in-memory document.
func FromBytes(data []byte, name string) *Parser {
	return defaultEngine().FromBytes(data, name)
}

// FromURL prepares a parse of a remote document. The download happens
// during Parse, under the engine's download timeout and size cap.
func FromURL(rawURL string) *Parser {
	return defaultEngine().FromURL(rawURL)
}

// Open prepares a parse of a local file on this engine.
func (e *Engine) Open(path string) *Parser {
	return &Parser{engine: e, path: path, opts: defaultParseOptions(e.cfg)}
}

// FromReader prepares a parse of an already-open stream on this engine.
// The stream is drained immediately.
func (e *Engine) FromReader(r io.Reader, name string) *Parser {
	p := &Parser{engine: e, opts: defaultParseOptions(e.cfg)}
	h, err := input.FromReader(r, name)
	if err != nil {
		p.err = stageErr(StageResolver, backend.None, err)
		return p
	}
	p.handle = h
	return p
}

// FromBytes prepares a parse of an in-memory document on this engine.
func (e *Engine) FromBytes(data []byte, name string) *Parser {
	return &Parser{engine: e, handle: input.FromBytes(data, name), opts: defaultParseOptions(e.cfg)}
}

// FromURL prepares a parse of a remote document on this engine.
func (e *Engine) FromURL(rawURL string) *Parser {
	return &Parser{engine: e, rawURL: rawURL, opts: defaultParseOptions(e.cfg)}
}

// WithToolOverride forces the named backend, bypassing selection. The parse
// fails before any adapter runs when the name is unknown or the backend
// does not support the document's category.
func (p *Parser) WithToolOverride(name string) *Parser {
	cp := p.clone()
	id, err := backend.ParseID(name)
	if err != nil {
		cp.err = stageErr(StageSelection, backend.None,
			fmt.Errorf("%w: unknown tool %q", ErrIncompatibleToolSelection, name))
		return cp
	}
	cp.opts.toolOverride = id
	return cp
}

// WithDetectScanned toggles PDF structural analysis. Off, every PDF takes
// the digital path regardless of its text layer.
func (p *Parser) WithDetectScanned(detect bool) *Parser {
	cp := p.clone()
	cp.opts.detectScanned = detect
	return cp
}

// WithExtractImages asks the backend for embedded raster images.
func (p *Parser) WithExtractImages(extract bool) *Parser {
	cp := p.clone()
	cp.opts.extractImages = extract
	return cp
}

// WithOCRLanguage sets the recognition language passed to OCR backends,
// a tesseract code such as "eng" or "eng+deu".
func (p *Parser) WithOCRLanguage(lang string) *Parser {
	cp := p.clone()
	cp.opts.ocrLanguage = lang
	return cp
}

// WithScannedThreshold sets the textless-page fraction at or above which a
// PDF classifies as scanned. Valid range (0,1].
func (p *Parser) WithScannedThreshold(threshold float64) *Parser {
	cp := p.clone()
	if threshold <= 0 || threshold > 1 {
		cp.err = stageErr(StageAnalyzer, backend.None,
			fmt.Errorf("scanned threshold %v outside (0,1]", threshold))
		return cp
	}
	cp.opts.scannedThreshold = threshold
	return cp
}

// Parse runs the pipeline and returns the canonical result. The error is
// always a *ParseError identifying the failed stage.
func (p *Parser) Parse(ctx context.Context) (*model.DocumentResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	h, err := p.resolveInput(ctx)
	if err != nil {
		return nil, stageErr(StageResolver, backend.None, err)
	}
	return p.engine.Parse(ctx, h, p.opts)
}

func (p *Parser) resolveInput(ctx context.Context) (*input.Handle, error) {
	switch {
	case p.handle != nil:
		return p.handle, nil
	case p.path != "":
		return input.FromPath(p.path)
	case p.rawURL != "":
		dl := input.NewDownloader(input.DownloadConfig{
			Timeout:  p.engine.cfg.DownloadTimeout,
			MaxBytes: p.engine.cfg.MaxFileBytes(),
		})
		return dl.Fetch(ctx, p.rawURL)
	default:
		return nil, errors.New("no input specified")
	}
}

// Must panics when err is non-nil, otherwise returns val. For scripts and
// examples where error handling would be noise.
//
//	cfg := parsemux.Must(config.Load("parsemux.yaml"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustParse panics when a parse fails.
//
//	res := parsemux.MustParse(parsemux.Open("report.pdf").Parse(ctx))
func MustParse(res *model.DocumentResult, err error) *model.DocumentResult {
	return Must(res, err)
}
