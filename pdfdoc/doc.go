// Package pdfdoc parses digital PDF documents and backs the PDF parser
// family: pdf-markdown, pdf-text, pdf-table, and the OCR backends for
// scanned input.
//
// # Reading
//
// The [Reader] type opens a PDF from memory using pdfcpu and exposes
// page-level access:
//
//	r, err := pdfdoc.Open(data)
//	text, err := r.PageText(0)
//	frags, err := r.PageFragments(0)
//
// PageFragments returns positioned text fragments decoded from the page
// content stream; PageText assembles them into reading-order lines.
//
// # Classification signals
//
// Reader implements the page sampling interface used by the structural
// analyzer. Signal reports, per page, whether extractable text and image
// XObjects are present along with the extracted character count.
//
// # Parser backends
//
// The adapters in this package implement the backend.Adapter contract:
//
//   - pdf-markdown: markdown output with heading inference from font sizes
//   - pdf-text: plain text with line and image bounding boxes
//   - pdf-table: text plus geometric table detection rendered as markdown
//   - ocr / ocr-cli: rasterize pages with pdftoppm, then recognize them
//     with gosseract or the tesseract binary
//
// Coordinates in adapter output stay in the producer's native space (PDF
// points for digital backends, pixels for OCR); the normalize package maps
// them into the canonical unit square.
package pdfdoc
