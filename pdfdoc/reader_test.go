package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/parsemux/parsemux/classify"
	"github.com/parsemux/parsemux/model"
)

const longSentence = "This page carries more than enough extractable text to clear the digital threshold."

func textContent(s string) string {
	return fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", s)
}

const imageDraw = "q 200 0 0 150 72 560 cm /Im1 Do Q"

func TestOpenRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not a pdf at all"), []byte("%PDF-1.4 truncated")} {
		if _, err := Open(data); !errors.Is(err, ErrUnreadable) {
			t.Errorf("Open(%.20q) error = %v, want ErrUnreadable", data, err)
		}
	}
}

func TestReaderPageCountAndSize(t *testing.T) {
	r, err := Open(buildPDF([]testPage{
		{content: textContent("First")},
		{content: textContent("Second")},
	}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := r.PageCount(); got != 2 {
		t.Errorf("PageCount() = %d, want 2", got)
	}
	w, h := r.PageSize(0)
	if w != 612 || h != 792 {
		t.Errorf("PageSize(0) = (%v,%v), want (612,792)", w, h)
	}
}

func TestReaderPageText(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: textContent(longSentence)}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	text, err := r.PageText(0)
	if err != nil {
		t.Fatalf("PageText() error = %v", err)
	}
	if !strings.Contains(text, "extractable text") {
		t.Errorf("PageText() = %q, want the page sentence", text)
	}
}

func TestReaderSignalTextPage(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: textContent(longSentence)}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sig, err := r.Signal(context.Background(), 0)
	if err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if !sig.HasExtractableText {
		t.Error("HasExtractableText = false, want true")
	}
	if sig.TextCharCount < DefaultMinTextChars {
		t.Errorf("TextCharCount = %d, want >= %d", sig.TextCharCount, DefaultMinTextChars)
	}
	if sig.HasImage {
		t.Error("HasImage = true, want false")
	}
	if sig.Index != 0 {
		t.Errorf("Index = %d, want 0", sig.Index)
	}
}

func TestReaderSignalShortText(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: textContent("Stub")}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sig, err := r.Signal(context.Background(), 0)
	if err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if sig.HasExtractableText {
		t.Error("HasExtractableText = true for a 4-char page, want false")
	}
	if sig.TextCharCount != 4 {
		t.Errorf("TextCharCount = %d, want 4", sig.TextCharCount)
	}
}

func TestReaderSignalImageOnlyPage(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: imageDraw, image: true}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sig, err := r.Signal(context.Background(), 0)
	if err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if sig.HasExtractableText {
		t.Error("HasExtractableText = true, want false")
	}
	if sig.TextCharCount != 0 {
		t.Errorf("TextCharCount = %d, want 0", sig.TextCharCount)
	}
	if !sig.HasImage {
		t.Error("HasImage = false, want true")
	}
}

func TestReaderSignalOutOfRange(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: textContent("One")}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := r.Signal(context.Background(), 5); err == nil {
		t.Error("Signal(5) error = nil, want out of range error")
	}
}

func TestReaderSignalCanceledContext(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: textContent("One")}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Signal(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Signal() error = %v, want context.Canceled", err)
	}
}

func TestReaderPageImages(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: imageDraw, image: true}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	imgs, skipped, err := r.PageImages(0, 1, 1, 0)
	if err != nil {
		t.Fatalf("PageImages() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(imgs) != 1 {
		t.Fatalf("images = %d, want 1", len(imgs))
	}
	img := imgs[0]
	if img.Extension != "jpg" {
		t.Errorf("Extension = %q, want jpg", img.Extension)
	}
	if !bytes.HasPrefix(img.Data, []byte{0xFF, 0xD8}) {
		t.Errorf("Data prefix = %x, want JPEG magic", img.Data[:min(2, len(img.Data))])
	}
	if img.Width != 60 || img.Height != 60 {
		t.Errorf("dims = %dx%d, want 60x60", img.Width, img.Height)
	}
}

func TestReaderPageImageBoxes(t *testing.T) {
	r, err := Open(buildPDF([]testPage{{content: imageDraw, image: true}}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	boxes, err := r.PageImageBoxes(0)
	if err != nil {
		t.Fatalf("PageImageBoxes() error = %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(boxes))
	}
	b := boxes[0]
	if !near(b.X0, 72) || !near(b.Y0, 560) || !near(b.X1, 272) || !near(b.Y1, 710) {
		t.Errorf("box = %+v, want (72,560)-(272,710)", b)
	}
}

func TestAnalyzerOverReader(t *testing.T) {
	r, err := Open(buildPDF([]testPage{
		{content: textContent(longSentence)},
		{content: imageDraw, image: true},
	}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	cls, err := classify.NewAnalyzer(10, 2, nil).Analyze(context.Background(), r, 0.7)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if cls.DocumentType != model.DocTypeHybrid {
		t.Errorf("DocumentType = %v, want hybrid", cls.DocumentType)
	}
	if cls.TotalPages != 2 || cls.SampledPages != 2 {
		t.Errorf("pages = %d/%d, want 2/2", cls.SampledPages, cls.TotalPages)
	}
	if len(cls.ScannedPageIndices) != 1 || cls.ScannedPageIndices[0] != 1 {
		t.Errorf("ScannedPageIndices = %v, want [1]", cls.ScannedPageIndices)
	}
}

// --- synthetic PDF builder ---

// testPage describes one page of a synthetic PDF: a raw content stream and
// whether the page's resources reference the shared image XObject.
type testPage struct {
	content string
	image   bool
}

// buildPDF assembles a minimal but structurally valid PDF with exact xref
// offsets. Content streams are written uncompressed. The shared image
// XObject is a JPEG stub declared 60x60.
func buildPDF(pages []testPage) []byte {
	needImage := false
	for _, p := range pages {
		if p.image {
			needImage = true
		}
	}

	n := len(pages)
	fontObj := 3 + 2*n
	imgObj := fontObj + 1
	lastObj := fontObj
	if needImage {
		lastObj = imgObj
	}

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}

	var b bytes.Buffer
	offsets := make([]int, lastObj+1)
	writeObj := func(num int, body string) {
		offsets[num] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	b.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))

	for i, p := range pages {
		res := fmt.Sprintf("<< /Font << /F1 %d 0 R >>", fontObj)
		if p.image {
			res += fmt.Sprintf(" /XObject << /Im1 %d 0 R >>", imgObj)
		}
		res += " >>"
		writeObj(3+2*i, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources %s >>",
			4+2*i, res))
		writeObj(4+2*i, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.content), p.content))
	}

	writeObj(fontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	if needImage {
		jpeg := "\xff\xd8\xff\xe0"
		writeObj(imgObj, fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width 60 /Height 60 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream",
			len(jpeg), jpeg))
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", lastObj+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= lastObj; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", lastObj+1, xref)
	return b.Bytes()
}
