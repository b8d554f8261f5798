package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/parsemux/parsemux"
	"github.com/parsemux/parsemux/config"
	"github.com/parsemux/parsemux/export"
	"github.com/parsemux/parsemux/render"
)

type options struct {
	source    string
	configAt  string
	outPath   string
	format    string
	indent    bool
	tool      string
	ocrLang   string
	imagesDir string
	overlay   int
	noDetect  bool
	threshold float64
	logLevel  string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsemux: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "parsemux: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: parsemux [flags] <file-or-url>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.configAt, "config", "", "Path to a YAML config file")
	flag.StringVar(&opts.outPath, "o", "", "Output path (default stdout)")
	flag.StringVar(&opts.format, "format", "json", "Output format: json or md")
	flag.BoolVar(&opts.indent, "indent", false, "Indent JSON output")
	flag.StringVar(&opts.tool, "tool", "", "Force a specific backend (e.g. pdf-table, ocr)")
	flag.StringVar(&opts.ocrLang, "ocr-lang", "", "OCR language code (default from config)")
	flag.StringVar(&opts.imagesDir, "images", "", "Extract embedded images into this directory")
	flag.IntVar(&opts.overlay, "overlay", 0, "Write a bounding-box overlay PNG for this page")
	flag.BoolVar(&opts.noDetect, "no-detect", false, "Skip scanned-PDF detection")
	flag.Float64Var(&opts.threshold, "threshold", 0, "Scanned-page ratio threshold in (0,1]")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing input file or url")
	}
	opts.source = flag.Arg(0)

	if opts.format != "json" && opts.format != "md" {
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func run(opts options) error {
	cfg := config.Default()
	if opts.configAt != "" {
		loaded, err := config.Load(opts.configAt)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := parsemux.NewEngine(cfg, logger)
	defer eng.Close()

	isURL := strings.HasPrefix(opts.source, "http://") || strings.HasPrefix(opts.source, "https://")
	var p *parsemux.Parser
	if isURL {
		p = eng.FromURL(opts.source)
	} else {
		p = eng.Open(opts.source)
	}

	if opts.tool != "" {
		p = p.WithToolOverride(opts.tool)
	}
	if opts.ocrLang != "" {
		p = p.WithOCRLanguage(opts.ocrLang)
	}
	if opts.imagesDir != "" {
		p = p.WithExtractImages(true)
	}
	if opts.noDetect {
		p = p.WithDetectScanned(false)
	}
	if opts.threshold > 0 {
		p = p.WithScannedThreshold(opts.threshold)
	}

	res, err := p.Parse(ctx)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		logger.Warn("parse.warning", "warning", w)
	}

	if err := emit(opts, res); err != nil {
		return err
	}
	if opts.imagesDir != "" {
		n, err := writeImages(opts.imagesDir, res)
		if err != nil {
			return err
		}
		logger.Info("images.written", "count", n, "dir", opts.imagesDir)
	}
	if opts.overlay > 0 {
		if isURL {
			return fmt.Errorf("overlay needs a local pdf file")
		}
		if err := writeOverlay(ctx, cfg, logger, opts, res); err != nil {
			return err
		}
	}
	return nil
}

func emit(opts options, res *parsemux.Result) error {
	out := io.Writer(os.Stdout)
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch opts.format {
	case "md":
		return export.WriteMarkdown(out, res)
	default:
		if opts.indent {
			data, err := export.JSONIndent(res)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s\n", data)
			return err
		}
		return export.WriteJSON(out, res)
	}
}

func writeImages(dir string, res *parsemux.Result) (int, error) {
	if len(res.Images) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create image dir: %w", err)
	}
	for i, img := range res.Images {
		name := fmt.Sprintf("page-%03d-%d.%s", img.PageNumber, i+1, img.Extension)
		if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0o644); err != nil {
			return 0, fmt.Errorf("write image %q: %w", name, err)
		}
	}
	return len(res.Images), nil
}

func writeOverlay(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts options, res *parsemux.Result) error {
	page := res.Page(opts.overlay)
	if page == nil {
		return fmt.Errorf("overlay page %d out of range (document has %d)", opts.overlay, res.PageCount())
	}

	pdf, err := os.ReadFile(opts.source)
	if err != nil {
		return fmt.Errorf("reread pdf: %w", err)
	}

	r := render.NewRasterizer(render.Config{
		Pdftoppm: cfg.OCR.PdftoppmPath,
		DPI:      cfg.OCR.DPI,
	}, nil, logger)

	png, err := export.Overlay(ctx, r, pdf, page, export.OverlayOptions{})
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(opts.source), filepath.Ext(opts.source))
	name := fmt.Sprintf("%s.page%d.png", stem, opts.overlay)
	if err := os.WriteFile(name, png, 0o644); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	logger.Info("overlay.written", "path", name)
	return nil
}
