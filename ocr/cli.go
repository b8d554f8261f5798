package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parsemux/parsemux/render"
)

// CLIConfig configures the external tesseract invocation.
type CLIConfig struct {
	// Tesseract is the binary path or name. Empty means "tesseract".
	Tesseract string
	// ExtraArgs are appended to every invocation, e.g. "--psm", "3".
	ExtraArgs []string
	// WordBoxes enables a second TSV invocation per page to collect
	// word-level geometry. Off by default: the box-less path costs one
	// tesseract run per page instead of two.
	WordBoxes bool
}

// CLIEngine runs OCR by shelling out to the tesseract binary. It is slower
// than the in-process client but needs no cgo and no build tag, so it serves
// as the fallback engine when gosseract is unavailable.
type CLIEngine struct {
	cfg    CLIConfig
	runner render.Runner
	logger *slog.Logger
}

// NewCLIEngine builds a CLIEngine. A nil runner execs for real, a nil logger
// uses slog.Default.
func NewCLIEngine(cfg CLIConfig, runner render.Runner, logger *slog.Logger) *CLIEngine {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if runner == nil {
		runner = render.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIEngine{cfg: cfg, runner: runner, logger: logger}
}

// Probe checks that the tesseract binary is callable.
func (e *CLIEngine) Probe(ctx context.Context) error {
	if _, _, err := e.runner.Run(ctx, e.cfg.Tesseract, "--version"); err != nil {
		return fmt.Errorf("tesseract not available: %w", err)
	}
	return nil
}

// Close is a no-op; the engine holds no resources between calls.
func (e *CLIEngine) Close() error { return nil }

// Recognize writes the image to a temp file and runs tesseract on it, plus a
// second TSV invocation when word boxes are configured.
func (e *CLIEngine) Recognize(ctx context.Context, image []byte, lang string) (*Result, error) {
	tmpDir, err := os.MkdirTemp("", "parsemux-ocr-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("temp dir cleanup failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	src := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(src, image, 0o600); err != nil {
		return nil, err
	}

	args := []string{src, "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	args = append(args, e.cfg.ExtraArgs...)

	// tesseract <page.png> stdout -l <lang> [extra args]
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(string(errb)))
	}
	res := &Result{Text: strings.TrimSpace(string(out))}
	if !e.cfg.WordBoxes {
		return res, nil
	}

	// Same invocation with "tsv" appended yields word-level geometry.
	tsvOut, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, append(args, "tsv")...)
	if err != nil {
		return nil, fmt.Errorf("tesseract tsv: %w (%s)", err, strings.TrimSpace(string(errb)))
	}
	res.Words = parseTSV(tsvOut)
	return res, nil
}

// parseTSV extracts word rows (level 5) from tesseract TSV output. Columns:
// level page block par line word left top width height conf text.
func parseTSV(out []byte) []Word {
	var words []Word
	for i, line := range strings.Split(string(out), "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		left, err1 := strconv.Atoi(cols[6])
		top, err2 := strconv.Atoi(cols[7])
		width, err3 := strconv.Atoi(cols[8])
		height, err4 := strconv.Atoi(cols[9])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		conf, _ := strconv.ParseFloat(cols[10], 64)
		words = append(words, Word{
			Text:       text,
			X0:         left,
			Y0:         top,
			X1:         left + width,
			Y1:         top + height,
			Confidence: conf,
		})
	}
	return words
}
