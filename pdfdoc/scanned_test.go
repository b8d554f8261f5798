package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/input"
	"github.com/parsemux/parsemux/ocr"
	"github.com/parsemux/parsemux/render"
)

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ocrFakeRunner emulates pdftoppm: probes answer -v, render calls write one
// PNG per requested page next to the output prefix.
type ocrFakeRunner struct {
	w, h      int
	probeErr  error
	renderErr error

	mu    sync.Mutex
	calls int
}

func (r *ocrFakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	if len(args) > 0 && args[0] == "-v" {
		return nil, []byte("pdftoppm version 23.04.0"), r.probeErr
	}
	if r.renderErr != nil {
		return nil, nil, r.renderErr
	}

	first, last := 1, 1
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-f":
			first, _ = strconv.Atoi(args[i+1])
		case "-l":
			last, _ = strconv.Atoi(args[i+1])
		}
	}
	prefix := args[len(args)-1]
	for p := first; p <= last; p++ {
		if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, p), testPNG(r.w, r.h), 0o600); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

type fakeOCREngine struct {
	probeErr     error
	recognizeErr error
	text         string
	words        []ocr.Word

	mu    sync.Mutex
	langs []string
}

func (e *fakeOCREngine) Probe(ctx context.Context) error { return e.probeErr }

func (e *fakeOCREngine) Recognize(ctx context.Context, img []byte, lang string) (*ocr.Result, error) {
	e.mu.Lock()
	e.langs = append(e.langs, lang)
	e.mu.Unlock()
	if e.recognizeErr != nil {
		return nil, e.recognizeErr
	}
	return &ocr.Result{Text: e.text, Words: e.words}, nil
}

func (e *fakeOCREngine) Close() error { return nil }

func (e *fakeOCREngine) seenLangs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.langs...)
}

func ocrTestAdapter(engine ocr.Engine, runner render.Runner) *OCRAdapter {
	return NewOCRAdapter(engine, render.NewRasterizer(render.Config{}, runner, nil), OCRConfig{}, nil)
}

var scannedDoc = []testPage{
	{content: imageDraw, image: true},
	{content: imageDraw, image: true},
}

func TestOCRAdapterParse(t *testing.T) {
	engine := &fakeOCREngine{
		text:  "Scanned page text",
		words: []ocr.Word{{Text: "Scanned", X0: 10, Y0: 20, X1: 60, Y1: 40, Confidence: 96}},
	}
	a := ocrTestAdapter(engine, &ocrFakeRunner{w: 100, h: 140})
	if a.ID() != backend.OCR {
		t.Errorf("ID() = %v, want ocr", a.ID())
	}

	res := parseOne(t, a, buildPDF(scannedDoc), backend.Options{})

	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(res.Pages))
	}
	for i, page := range res.Pages {
		if page.Number != i+1 {
			t.Errorf("Pages[%d].Number = %d, want %d", i, page.Number, i+1)
		}
		if page.Width != 100 || page.Height != 140 {
			t.Errorf("Pages[%d] dims = %vx%v, want 100x140 from the render", i, page.Width, page.Height)
		}
		if page.Text != "Scanned page text" {
			t.Errorf("Pages[%d].Text = %q", i, page.Text)
		}
		if len(page.Boxes) != 1 {
			t.Fatalf("Pages[%d] boxes = %d, want 1", i, len(page.Boxes))
		}
		box := page.Boxes[0]
		if box.Kind != backend.BoxText || box.X0 != 10 || box.Y0 != 20 || box.X1 != 60 || box.Y1 != 40 {
			t.Errorf("Pages[%d] box = %+v, want text (10,20)-(60,40)", i, box)
		}
	}

	if got := res.Metadata["ocrLanguage"]; got != DefaultOCRLanguage {
		t.Errorf("Metadata[ocrLanguage] = %q, want %q", got, DefaultOCRLanguage)
	}
	for _, lang := range engine.seenLangs() {
		if lang != DefaultOCRLanguage {
			t.Errorf("engine saw lang %q, want %q", lang, DefaultOCRLanguage)
		}
	}
}

func TestOCRCliAdapterNoBoxes(t *testing.T) {
	engine := &fakeOCREngine{
		text:  "Cli text",
		words: []ocr.Word{{Text: "Cli", X0: 1, Y0: 2, X1: 3, Y1: 4}},
	}
	a := NewOCRCliAdapter(engine, render.NewRasterizer(render.Config{}, &ocrFakeRunner{w: 80, h: 80}, nil), OCRConfig{}, nil)
	if a.Capability().ProducesBoundingBoxes {
		t.Error("ocr-cli reports bounding boxes, want text only")
	}

	res := parseOne(t, a, buildPDF(scannedDoc[:1]), backend.Options{})
	if res.Pages[0].Text != "Cli text" {
		t.Errorf("Text = %q", res.Pages[0].Text)
	}
	if len(res.Pages[0].Boxes) != 0 {
		t.Errorf("boxes = %v, want none even when the engine reports words", res.Pages[0].Boxes)
	}
}

func TestOCRAdapterLanguageOverride(t *testing.T) {
	engine := &fakeOCREngine{text: "Deutscher Text"}
	a := ocrTestAdapter(engine, &ocrFakeRunner{w: 50, h: 50})

	res := parseOne(t, a, buildPDF(scannedDoc[:1]), backend.Options{OCRLanguage: "deu"})
	if got := res.Metadata["ocrLanguage"]; got != "deu" {
		t.Errorf("Metadata[ocrLanguage] = %q, want deu", got)
	}
	if langs := engine.seenLangs(); len(langs) != 1 || langs[0] != "deu" {
		t.Errorf("engine saw %v, want [deu]", langs)
	}
}

func TestOCRAdapterPagesSubset(t *testing.T) {
	a := ocrTestAdapter(&fakeOCREngine{text: "Second"}, &ocrFakeRunner{w: 50, h: 50})

	res := parseOne(t, a, buildPDF(scannedDoc), backend.Options{Pages: []int{1}})
	if len(res.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(res.Pages))
	}
	if res.Pages[0].Number != 2 {
		t.Errorf("Number = %d, want 2", res.Pages[0].Number)
	}
}

func TestOCRAdapterExtractImages(t *testing.T) {
	a := ocrTestAdapter(&fakeOCREngine{text: "Scan"}, &ocrFakeRunner{w: 50, h: 50})

	res := parseOne(t, a, buildPDF(scannedDoc[:1]), backend.Options{ExtractImages: true})
	if len(res.Images) != 1 {
		t.Fatalf("images = %d, want the embedded page JPEG", len(res.Images))
	}
	if res.Images[0].PageNumber != 1 || res.Images[0].Extension != "jpg" {
		t.Errorf("image = page %d %q, want page 1 jpg", res.Images[0].PageNumber, res.Images[0].Extension)
	}
}

func TestOCRAdapterProbe(t *testing.T) {
	ctx := context.Background()

	if err := ocrTestAdapter(&fakeOCREngine{}, &ocrFakeRunner{}).Probe(ctx); err != nil {
		t.Errorf("Probe() = %v, want nil", err)
	}

	var nilEngine ocr.Engine
	if err := ocrTestAdapter(nilEngine, &ocrFakeRunner{}).Probe(ctx); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Probe() with no engine = %v, want ErrUnavailable", err)
	}

	broken := &fakeOCREngine{probeErr: errors.New("tesseract headers missing")}
	if err := ocrTestAdapter(broken, &ocrFakeRunner{}).Probe(ctx); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Probe() with broken engine = %v, want ErrUnavailable", err)
	}

	noPoppler := &ocrFakeRunner{probeErr: exec.ErrNotFound}
	if err := ocrTestAdapter(&fakeOCREngine{}, noPoppler).Probe(ctx); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Probe() without pdftoppm = %v, want ErrUnavailable", err)
	}
}

func TestOCRAdapterNilEngineParse(t *testing.T) {
	a := ocrTestAdapter(nil, &ocrFakeRunner{w: 50, h: 50})
	_, err := a.Parse(context.Background(), input.FromBytes(buildPDF(scannedDoc[:1]), "doc.pdf"), backend.Options{})
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Parse() = %v, want ErrUnavailable", err)
	}
}

func TestOCRAdapterNotEnabledEngine(t *testing.T) {
	a := ocrTestAdapter(&fakeOCREngine{recognizeErr: ocr.ErrOCRNotEnabled}, &ocrFakeRunner{w: 50, h: 50})
	_, err := a.Parse(context.Background(), input.FromBytes(buildPDF(scannedDoc[:1]), "doc.pdf"), backend.Options{})
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Parse() = %v, want ErrUnavailable", err)
	}
}

func TestOCRAdapterRecognizeError(t *testing.T) {
	a := ocrTestAdapter(&fakeOCREngine{recognizeErr: errors.New("bad scan")}, &ocrFakeRunner{w: 50, h: 50})
	_, err := a.Parse(context.Background(), input.FromBytes(buildPDF(scannedDoc[:1]), "doc.pdf"), backend.Options{})
	if err == nil || !strings.Contains(err.Error(), "page 1") {
		t.Errorf("Parse() = %v, want a page-attributed error", err)
	}
}

func TestOCRAdapterMissingRasterizer(t *testing.T) {
	a := ocrTestAdapter(&fakeOCREngine{text: "x"}, &ocrFakeRunner{renderErr: exec.ErrNotFound})
	_, err := a.Parse(context.Background(), input.FromBytes(buildPDF(scannedDoc[:1]), "doc.pdf"), backend.Options{})
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Parse() = %v, want ErrUnavailable when pdftoppm is missing", err)
	}
}
