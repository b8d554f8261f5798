package parsemux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/classify"
	"github.com/parsemux/parsemux/config"
	"github.com/parsemux/parsemux/docx"
	"github.com/parsemux/parsemux/format"
	"github.com/parsemux/parsemux/htmldoc"
	"github.com/parsemux/parsemux/input"
	"github.com/parsemux/parsemux/model"
	"github.com/parsemux/parsemux/normalize"
	"github.com/parsemux/parsemux/ocr"
	"github.com/parsemux/parsemux/pdfdoc"
	"github.com/parsemux/parsemux/policy"
	"github.com/parsemux/parsemux/pptx"
	"github.com/parsemux/parsemux/render"
	"github.com/parsemux/parsemux/textdoc"
	"github.com/parsemux/parsemux/xlsx"
)

// adapterSet holds one adapter per backend ID.
type adapterSet struct {
	pdfMarkdown backend.Adapter
	pdfText     backend.Adapter
	pdfTable    backend.Adapter
	ocr         backend.Adapter
	ocrCli      backend.Adapter
	docx        backend.Adapter
	pptx        backend.Adapter
	xlsx        backend.Adapter
	text        backend.Adapter
	html        backend.Adapter
}

// Engine wires the resolver, analyzer, selection policy, backend adapters
// and normalizer together. One Engine serves any number of concurrent
// parses; configuration and the capability registry are read-only after
// construction.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	reg      *backend.Registry
	analyzer *classify.Analyzer
	adapters adapterSet
	engines  []ocr.Engine
}

// NewEngine builds an engine. A nil cfg uses config.Default; a nil logger
// uses slog.Default.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	raster := render.NewRasterizer(render.Config{
		Pdftoppm: cfg.OCR.PdftoppmPath,
		DPI:      cfg.OCR.DPI,
	}, nil, logger)

	limits := pdfdoc.ImageLimits{
		MinWidth:   cfg.Images.MinWidth,
		MinHeight:  cfg.Images.MinHeight,
		MaxPerPage: cfg.Images.MaxPerPage,
	}
	ocrCfg := pdfdoc.OCRConfig{
		Language:    cfg.OCR.Language,
		MaxParallel: cfg.MaxParallelPages,
		Images:      limits,
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		reg:      backend.NewRegistry(),
		analyzer: classify.NewAnalyzer(cfg.SampleSize, cfg.MaxParallelPages, logger),
	}

	// The linked gosseract engine is optional at build time; a nil engine
	// leaves the ocr backend probing unavailable instead of failing here.
	var linked ocr.Engine
	if client, err := ocr.New(); err == nil {
		linked = client
		e.engines = append(e.engines, client)
	} else {
		logger.Debug("ocr.engine.absent", "error", err)
	}

	cli := ocr.NewCLIEngine(ocr.CLIConfig{
		Tesseract: cfg.OCR.TesseractPath,
		ExtraArgs: strings.Fields(cfg.OCR.TesseractArgs),
	}, nil, logger)
	e.engines = append(e.engines, cli)

	markdown := pdfdoc.NewMarkdownAdapter(logger)
	text := pdfdoc.NewTextAdapter(logger)
	table := pdfdoc.NewTableAdapter(logger)
	markdown.Images, text.Images, table.Images = limits, limits, limits

	e.adapters = adapterSet{
		pdfMarkdown: markdown,
		pdfText:     text,
		pdfTable:    table,
		ocr:         pdfdoc.NewOCRAdapter(linked, raster, ocrCfg, logger),
		ocrCli:      pdfdoc.NewOCRCliAdapter(cli, raster, ocrCfg, logger),
		docx:        docx.NewAdapter(logger),
		pptx:        pptx.NewAdapter(logger),
		xlsx:        xlsx.NewAdapter(logger),
		text:        textdoc.NewAdapter(logger),
		html:        htmldoc.NewAdapter(logger),
	}
	return e
}

// Close releases the OCR engines. The Engine must not be used afterwards.
func (e *Engine) Close() error {
	var first error
	for _, eng := range e.engines {
		if err := eng.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// adapter maps a backend ID to its wired implementation. The switch is
// deliberately exhaustive over the registered IDs so a new backend cannot
// be registered without being wired here.
func (e *Engine) adapter(id backend.ID) (backend.Adapter, bool) {
	switch id {
	case backend.PDFMarkdown:
		return e.adapters.pdfMarkdown, true
	case backend.PDFText:
		return e.adapters.pdfText, true
	case backend.PDFTable:
		return e.adapters.pdfTable, true
	case backend.OCR:
		return e.adapters.ocr, true
	case backend.OCRCli:
		return e.adapters.ocrCli, true
	case backend.Docx:
		return e.adapters.docx, true
	case backend.Pptx:
		return e.adapters.pptx, true
	case backend.Xlsx:
		return e.adapters.xlsx, true
	case backend.Text:
		return e.adapters.text, true
	case backend.HTML:
		return e.adapters.html, true
	default:
		return nil, false
	}
}

// Parse runs the full pipeline on one document: resolve the category,
// classify PDFs, select a backend, dispatch, and normalize the output.
// Options are built by the Parser's With chain; the zero ParseOptions
// skips PDF classification entirely.
func (e *Engine) Parse(ctx context.Context, h *input.Handle, opts ParseOptions) (*model.DocumentResult, error) {
	if h == nil {
		return nil, stageErr(StageResolver, backend.None, errors.New("no input"))
	}

	traceID := uuid.NewString()
	logger := e.logger.With("trace_id", traceID, "source", h.Name)
	start := time.Now()

	res, err := e.parse(ctx, logger, h, opts)
	if err != nil {
		logger.Error("parse.failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	res.Metadata["traceId"] = traceID
	logger.Info("parse.done",
		"tool", res.ToolUsed,
		"category", res.Metadata["category"],
		"pages", len(res.Pages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Engine) parse(ctx context.Context, logger *slog.Logger, h *input.Handle, opts ParseOptions) (*model.DocumentResult, error) {
	if max := e.cfg.MaxFileBytes(); max > 0 && int64(len(h.Data)) > max {
		return nil, stageErr(StageResolver, backend.None,
			fmt.Errorf("input is %d bytes, over the %d MB limit", len(h.Data), e.cfg.MaxFileMB))
	}

	category, err := format.Resolve(h.Name, h.Data, false)
	if err != nil {
		return nil, stageErr(StageResolver, backend.None, err)
	}

	var cls *model.PDFClassification
	if category == format.PDF && opts.detectScanned {
		r, err := pdfdoc.Open(h.Data)
		if err != nil {
			return nil, stageErr(StageAnalyzer, backend.None, err)
		}
		r.MinTextChars = e.cfg.TextCharThreshold
		cls, err = e.analyzer.Analyze(ctx, r, opts.scannedThreshold)
		if err != nil {
			return nil, stageErr(StageAnalyzer, backend.None, err)
		}
		logger.Debug("pdf.classified",
			"type", cls.DocumentType.String(),
			"pages", cls.TotalPages,
			"sampled", cls.SampledPages,
		)
	}

	avail, probeWarnings := e.probeOCR(ctx, logger, cls)

	dec, err := policy.Select(category, cls, opts.toolOverride, e.reg, e.cfg.Priorities, avail)
	if err != nil {
		return nil, stageErr(StageSelection, opts.toolOverride, err)
	}

	bopts := backend.Options{
		ExtractImages: opts.extractImages,
		OCRLanguage:   opts.ocrLanguage,
	}

	raw, usedID, perr := e.dispatch(ctx, logger, h, category, dec.Primary, bopts)
	if perr != nil {
		return nil, perr
	}

	var res *model.DocumentResult
	if dec.OCRBackend != backend.None && len(dec.OCRPages) > 0 {
		ocrOpts := bopts
		ocrOpts.Pages = dec.OCRPages
		ocrRaw, ocrUsed, perr := e.dispatch(ctx, logger, h, category, dec.OCRBackend, ocrOpts)
		if perr != nil {
			return nil, perr
		}
		res, err = normalize.Merge(raw, ocrRaw, usedID, ocrUsed, dec.OCRPages, cls)
	} else {
		res, err = normalize.Normalize(raw, usedID, cls)
	}
	if err != nil {
		return nil, stageErr(StageNormalizer, usedID, err)
	}

	res.Metadata["category"] = category.String()
	res.Metadata["source"] = h.Name
	res.Warnings = append(res.Warnings, probeWarnings...)
	return res, nil
}

// probeOCR checks OCR backend availability ahead of selection. Only runs
// when the classification can route to OCR; the digital path has no
// runtime dependencies worth probing.
func (e *Engine) probeOCR(ctx context.Context, logger *slog.Logger, cls *model.PDFClassification) (policy.Availability, []string) {
	if cls == nil || cls.DocumentType == model.DocTypeDigital {
		return nil, nil
	}

	avail := policy.Availability{}
	var warnings []string
	for _, id := range e.reg.CapableOf(format.PDF) {
		c, _ := e.reg.Capability(id)
		if !c.RequiresOCREngine {
			continue
		}
		a, ok := e.adapter(id)
		if !ok {
			continue
		}
		if err := a.Probe(ctx); err != nil {
			avail[id] = false
			warnings = append(warnings, fmt.Sprintf("%s unavailable: %v", id, err))
			logger.Debug("backend.probe.failed", "tool", id.String(), "error", err)
		} else {
			avail[id] = true
		}
	}
	return avail, warnings
}

// dispatch invokes one backend and, when fallback is enabled and the
// failure is an availability or timeout one, retries exactly once against
// the next backend in the priority order. The returned ID names the
// backend that actually produced the result.
func (e *Engine) dispatch(ctx context.Context, logger *slog.Logger, h *input.Handle, category format.Category, id backend.ID, opts backend.Options) (*backend.RawResult, backend.ID, *ParseError) {
	raw, err := e.invoke(ctx, logger, h, id, opts)
	if err == nil {
		return raw, id, nil
	}

	recoverable := errors.Is(err, backend.ErrUnavailable) || errors.Is(err, backend.ErrTimeout)
	if !e.cfg.EnableFallback || !recoverable {
		return nil, id, stageErr(StageAdapter, id, err)
	}

	next, ok := policy.Fallback(category, id, e.reg, e.cfg.Priorities)
	if !ok {
		return nil, id, stageErr(StageAdapter, id, err)
	}

	logger.Warn("backend.fallback",
		"from", id.String(),
		"to", next.String(),
		"error", err,
	)
	raw, ferr := e.invoke(ctx, logger, h, next, opts)
	if ferr != nil {
		return nil, next, stageErr(StageAdapter, next, ferr)
	}
	return raw, next, nil
}

// invoke runs one adapter call under the configured per-backend deadline.
// A deadline that fires while the caller's context is still live maps to
// the timeout sentinel; caller cancellation passes through untouched.
func (e *Engine) invoke(ctx context.Context, logger *slog.Logger, h *input.Handle, id backend.ID, opts backend.Options) (*backend.RawResult, error) {
	a, ok := e.adapter(id)
	if !ok {
		return nil, fmt.Errorf("no adapter wired for %s", id)
	}

	cctx := ctx
	if e.cfg.BackendTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, e.cfg.BackendTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.Parse(cctx, h, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", backend.ErrTimeout, e.cfg.BackendTimeout)
		}
		return nil, err
	}
	logger.Debug("backend.done",
		"tool", id.String(),
		"pages", len(raw.Pages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return raw, nil
}
