package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
	"github.com/parsemux/parsemux/ocr"
	"github.com/parsemux/parsemux/render"
)

// DefaultOCRLanguage is the tesseract language used when the caller sets
// none.
const DefaultOCRLanguage = "eng"

const defaultOCRParallel = 4

// OCRConfig tunes an OCRAdapter.
type OCRConfig struct {
	// Language is the default recognition language, overridable per call.
	Language string
	// MaxParallel bounds concurrent page recognitions. Engines that
	// serialize internally simply queue behind their own lock.
	MaxParallel int
	// Images bounds embedded image extraction.
	Images ImageLimits
}

func (c *OCRConfig) defaults() {
	if c.Language == "" {
		c.Language = DefaultOCRLanguage
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = defaultOCRParallel
	}
	c.Images.defaults()
}

// OCRAdapter serves the scanned-PDF backends: pages are rasterized with
// pdftoppm and recognized by an ocr.Engine. The ocr backend runs the linked
// gosseract engine and reports word boxes in raster pixel space; ocr-cli
// shells out to tesseract and reports text only.
type OCRAdapter struct {
	id     backend.ID
	cap    backend.Capability
	engine ocr.Engine
	raster *render.Rasterizer
	cfg    OCRConfig
	logger *slog.Logger
}

func newOCR(id backend.ID, engine ocr.Engine, raster *render.Rasterizer, cfg OCRConfig, logger *slog.Logger) *OCRAdapter {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if raster == nil {
		raster = render.NewRasterizer(render.Config{}, nil, logger)
	}
	return &OCRAdapter{
		id:     id,
		cap:    backend.Lookup(id),
		engine: engine,
		raster: raster,
		cfg:    cfg,
		logger: logger,
	}
}

// NewOCRAdapter returns the ocr backend over the given engine, normally the
// linked gosseract client.
func NewOCRAdapter(engine ocr.Engine, raster *render.Rasterizer, cfg OCRConfig, logger *slog.Logger) *OCRAdapter {
	return newOCR(backend.OCR, engine, raster, cfg, logger)
}

// NewOCRCliAdapter returns the ocr-cli backend, recognizing through the
// external tesseract binary.
func NewOCRCliAdapter(engine ocr.Engine, raster *render.Rasterizer, cfg OCRConfig, logger *slog.Logger) *OCRAdapter {
	return newOCR(backend.OCRCli, engine, raster, cfg, logger)
}

// ID implements backend.Adapter.
func (a *OCRAdapter) ID() backend.ID { return a.id }

// Capability implements backend.Adapter.
func (a *OCRAdapter) Capability() backend.Capability { return a.cap }

// Probe implements backend.Adapter: both the rasterizer and the recognition
// engine must be callable.
func (a *OCRAdapter) Probe(ctx context.Context) error {
	if a.engine == nil {
		return fmt.Errorf("%w: no ocr engine configured", backend.ErrUnavailable)
	}
	if err := a.raster.Probe(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	if err := a.engine.Probe(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// Parse implements backend.Adapter. Pages are rasterized up front, then
// recognized concurrently; results keep ascending page order regardless of
// completion order.
func (a *OCRAdapter) Parse(ctx context.Context, doc *input.Handle, opts backend.Options) (*backend.RawResult, error) {
	if a.engine == nil {
		return nil, fmt.Errorf("%w: no ocr engine configured", backend.ErrUnavailable)
	}

	r, err := Open(doc.Data)
	if err != nil {
		return nil, err
	}
	pages, err := pageSet(opts.Pages, r.PageCount())
	if err != nil {
		return nil, err
	}

	lang := opts.OCRLanguage
	if lang == "" {
		lang = a.cfg.Language
	}

	renders, err := a.raster.RenderPages(ctx, doc.Data, pages)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("rasterizing: %w", err)
	}

	rawPages := make([]backend.RawPage, len(renders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxParallel)
	for i, img := range renders {
		g.Go(func() error {
			page, err := a.recognizePage(gctx, img, lang)
			if err != nil {
				return err
			}
			rawPages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, ocr.ErrOCRNotEnabled) || errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
		}
		return nil, err
	}

	res := &backend.RawResult{
		Pages:    rawPages,
		Metadata: map[string]string{"ocrLanguage": lang},
	}

	if opts.ExtractImages {
		for _, pageIndex := range pages {
			appendPageImages(r, pageIndex, a.cfg.Images, res)
		}
	}
	return res, nil
}

func (a *OCRAdapter) recognizePage(ctx context.Context, img render.PageImage, lang string) (backend.RawPage, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(img.PNG))
	if err != nil {
		return backend.RawPage{}, fmt.Errorf("page %d: decoding render: %w", img.Index+1, err)
	}

	res, err := a.engine.Recognize(ctx, img.PNG, lang)
	if err != nil {
		return backend.RawPage{}, fmt.Errorf("page %d: %w", img.Index+1, err)
	}

	page := backend.RawPage{
		Number: img.Index + 1,
		Text:   res.Text,
		Width:  float64(cfg.Width),
		Height: float64(cfg.Height),
	}
	if a.cap.ProducesBoundingBoxes {
		for _, w := range res.Words {
			page.Boxes = append(page.Boxes, backend.RawBox{
				Kind: backend.BoxText,
				X0:   float64(w.X0),
				Y0:   float64(w.Y0),
				X1:   float64(w.X1),
				Y1:   float64(w.Y1),
			})
		}
	}
	return page, nil
}
