package parsemux_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/parsemux/parsemux"
	"github.com/parsemux/parsemux/config"
	"github.com/parsemux/parsemux/export"
)

// These examples verify the README code samples compile correctly.
// They are not meant to be run as actual tests since they require files.

func Example_parseDocument() {
	res, err := parsemux.Open("document.pdf").Parse(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.ToolUsed)
	fmt.Println(res.Content)

	for _, w := range res.Warnings {
		fmt.Println("Warning:", w)
	}
}

func Example_parseWithOptions() {
	res, err := parsemux.Open("scan.pdf").
		WithOCRLanguage("eng+deu").   // tesseract codes, "+" joins languages
		WithScannedThreshold(0.8).    // textless fraction that means scanned
		WithExtractImages(true).      // keep embedded raster images
		Parse(context.Background())
	_ = res
	_ = err
}

func Example_forceBackend() {
	// Skip selection and run a specific backend. Fails before any adapter
	// runs when the tool cannot handle the document's category.
	res, err := parsemux.Open("tables.pdf").
		WithToolOverride("pdf-table").
		Parse(context.Background())
	_ = res
	_ = err
}

func Example_inputSources() {
	ctx := context.Background()

	// From a file path (category resolved by extension, then content).
	res, err := parsemux.Open("document.docx").Parse(ctx)
	_ = res
	_ = err

	// From memory.
	data, _ := os.ReadFile("document.pdf")
	res, err = parsemux.FromBytes(data, "document.pdf").Parse(ctx)
	_ = res
	_ = err

	// From a stream.
	f, _ := os.Open("document.html")
	res, err = parsemux.FromReader(f, "document.html").Parse(ctx)
	_ = res
	_ = err

	// From a URL, downloaded during Parse.
	res, err = parsemux.FromURL("https://example.com/report.pdf").Parse(ctx)
	_ = res
	_ = err
}

func Example_sharedEngine() {
	// Long-lived services build one Engine and share it across calls
	// instead of going through the package-level default.
	cfg := config.Default()
	cfg.OCR.Language = "eng"

	eng := parsemux.NewEngine(cfg, nil)
	defer eng.Close()

	res, err := eng.Open("report.pdf").Parse(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	_ = res
}

func Example_inspectResult() {
	res, err := parsemux.Open("report.pdf").Parse(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Pages:", res.PageCount())
	fmt.Println("Boxes:", res.BoxCount())

	if page := res.Page(1); page != nil {
		fmt.Println(page.Content)
		for _, box := range page.BoundingBoxes {
			fmt.Println(box.Kind, box.X0, box.Y0, box.X1, box.Y1)
		}
	}

	// PDFAnalysis is present for PDFs when scanned detection ran.
	if res.PDFAnalysis != nil {
		fmt.Println("Type:", res.PDFAnalysis.DocumentType)
		fmt.Println("Pages needing OCR:", res.PDFAnalysis.OCRPages())
	}
}

func Example_exportResult() {
	res, err := parsemux.Open("report.pdf").Parse(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	// JSON for machines.
	buf, err := export.JSONIndent(res)
	if err != nil {
		log.Fatal(err)
	}
	_ = os.WriteFile("report.json", buf, 0o644)

	// Markdown for humans.
	f, _ := os.Create("report.md")
	defer f.Close()
	_ = export.WriteMarkdown(f, res)
}

func Example_errorHandling() {
	res, err := parsemux.Open("document.pdf").Parse(context.Background())
	if err != nil {
		var perr *parsemux.ParseError
		if errors.As(err, &perr) {
			fmt.Println("Stage:", perr.Stage, "Backend:", perr.Backend)
		}
		switch {
		case errors.Is(err, parsemux.ErrUnsupportedCategory):
			// Not a document family parsemux knows.
		case errors.Is(err, parsemux.ErrBackendUnavailable):
			// A runtime dependency (tesseract, pdftoppm) is missing.
		case errors.Is(err, parsemux.ErrBackendTimeout):
			// The backend exceeded the configured deadline.
		}
		return
	}
	_ = res

	// Panic on error (for scripts/tests).
	res = parsemux.MustParse(parsemux.Open("doc.pdf").Parse(context.Background()))
	_ = res
}
