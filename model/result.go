package model

// DocumentResult is the canonical, backend-agnostic output of one parse.
// Ownership transfers to the caller on return; the engine keeps no reference.
type DocumentResult struct {
	ToolUsed    string             `json:"toolUsed"`
	Content     string             `json:"content"`
	Pages       []PageResult       `json:"pages"`
	Images      []ExtractedImage   `json:"images,omitempty"`
	Metadata    map[string]string  `json:"metadata"`
	PDFAnalysis *PDFClassification `json:"pdfAnalysis,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// PageResult is one canonical page.
type PageResult struct {
	PageNumber    int               `json:"pageNumber"`
	Content       string            `json:"content"`
	BoundingBoxes []BBox            `json:"boundingBoxes,omitempty"`
	PageMetadata  map[string]string `json:"pageMetadata,omitempty"`
}

// ExtractedImage is a raster image lifted out of a document. Data is owned by
// the caller; the engine does not retain or cache it.
type ExtractedImage struct {
	PageNumber int    `json:"pageNumber"`
	Data       []byte `json:"data"`
	Extension  string `json:"extension"`
}

// NewDocumentResult creates an empty result attributed to the given tool.
func NewDocumentResult(tool string) *DocumentResult {
	return &DocumentResult{
		ToolUsed: tool,
		Pages:    make([]PageResult, 0),
		Metadata: make(map[string]string),
	}
}

// AddPage appends a page and assigns the next canonical page number.
func (d *DocumentResult) AddPage(page PageResult) {
	page.PageNumber = len(d.Pages) + 1
	d.Pages = append(d.Pages, page)
}

// Page returns a page by canonical number (1-indexed), or nil.
func (d *DocumentResult) Page(number int) *PageResult {
	if number < 1 || number > len(d.Pages) {
		return nil
	}
	return &d.Pages[number-1]
}

// PageCount returns the number of canonical pages.
func (d *DocumentResult) PageCount() int {
	return len(d.Pages)
}

// Warn records a non-fatal degradation on the result.
func (d *DocumentResult) Warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// BoxCount returns the total number of bounding boxes across all pages.
func (d *DocumentResult) BoxCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.BoundingBoxes)
	}
	return n
}
