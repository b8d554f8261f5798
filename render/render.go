// Package render rasterizes PDF pages to PNG images for OCR.
//
// Rasterization shells out to pdftoppm from poppler-utils. The external
// command sits behind the Runner interface so tests can stub it without a
// poppler install.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultDPI matches the resolution used for scanned-page OCR.
const DefaultDPI = 300

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec. The zero value is ready to use.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// PageImage is one rasterized page. Index is zero-based.
type PageImage struct {
	Index int
	PNG   []byte
}

// Config controls the rasterizer. Zero values fall back to defaults.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI, default 300
}

// Rasterizer renders PDF pages to PNG via pdftoppm.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewRasterizer builds a Rasterizer. A nil runner uses ExecRunner, a nil
// logger uses slog.Default.
func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// Probe checks that pdftoppm is callable.
func (r *Rasterizer) Probe(ctx context.Context) error {
	if _, _, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-v"); err != nil {
		return fmt.Errorf("pdftoppm not available: %w", err)
	}
	return nil
}

// RenderAll rasterizes every page of the document.
func (r *Rasterizer) RenderAll(ctx context.Context, pdf []byte) ([]PageImage, error) {
	return r.render(ctx, pdf, nil)
}

// RenderPages rasterizes the given zero-based pages. A nil or empty list
// renders everything.
func (r *Rasterizer) RenderPages(ctx context.Context, pdf []byte, pages []int) ([]PageImage, error) {
	return r.render(ctx, pdf, pages)
}

func (r *Rasterizer) render(ctx context.Context, pdf []byte, pages []int) ([]PageImage, error) {
	tmpDir, err := os.MkdirTemp("", "parsemux-render-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			r.logger.Warn("temp dir cleanup failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	src := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(src, pdf, 0o600); err != nil {
		return nil, err
	}

	if len(pages) == 0 {
		return r.renderRange(ctx, src, tmpDir, "all", 0, 0)
	}

	var out []PageImage
	for _, p := range pages {
		if p < 0 {
			return nil, fmt.Errorf("page index %d out of range", p)
		}
		imgs, err := r.renderRange(ctx, src, tmpDir, fmt.Sprintf("p%d", p), p+1, p+1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p+1, err)
		}
		out = append(out, imgs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// renderRange runs one pdftoppm invocation. first and last are 1-based;
// zero means whole document.
func (r *Rasterizer) renderRange(ctx context.Context, src, tmpDir, tag string, first, last int) ([]PageImage, error) {
	prefix := filepath.Join(tmpDir, tag)
	args := []string{"-r", strconv.Itoa(r.cfg.DPI), "-png"}
	if first > 0 {
		args = append(args, "-f", strconv.Itoa(first), "-l", strconv.Itoa(last))
	}
	args = append(args, src, prefix)

	// pdftoppm -r 300 -png [-f n -l n] <doc.pdf> <tmp/prefix>
	if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	// pdftoppm names outputs prefix-1.png, prefix-2.png, ... zero-padded
	// when the document needs it.
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	imgs := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		idx, err := pageIndexFromName(m)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, PageImage{Index: idx, PNG: data})
	}
	sort.Slice(imgs, func(i, j int) bool { return imgs[i].Index < imgs[j].Index })
	return imgs, nil
}

// pageIndexFromName recovers the zero-based page index from a pdftoppm
// output name like /tmp/x/all-07.png.
func pageIndexFromName(path string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	dash := strings.LastIndexByte(base, '-')
	if dash < 0 {
		return 0, fmt.Errorf("unexpected pdftoppm output name %q", path)
	}
	n, err := strconv.Atoi(base[dash+1:])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("unexpected pdftoppm output name %q", path)
	}
	return n - 1, nil
}
