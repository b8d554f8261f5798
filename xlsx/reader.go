// Package xlsx reads Excel workbooks and delimited text files as sheet
// tables. Workbooks go through excelize; CSV input becomes a single-sheet
// workbook so both shapes feed the same rendering.
package xlsx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet flattened to cell text. Rows are padded to a
// uniform width.
type Sheet struct {
	Name string
	Rows [][]string
}

// Reader holds a parsed workbook.
type Reader struct {
	sheets []*Sheet
	media  []Media
	meta   map[string]string
}

// Media is an embedded picture attributed to the sheet that anchors it.
type Media struct {
	SheetNumber int
	Name        string
	Data        []byte
	Extension   string
}

// Open parses a workbook from its archive bytes.
func Open(data []byte) (*Reader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	r := &Reader{meta: make(map[string]string)}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", name, err)
		}
		r.sheets = append(r.sheets, &Sheet{Name: name, Rows: squareRows(rows)})
	}
	if len(r.sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	r.collectMedia(f)
	r.readProperties(f)
	return r, nil
}

// SheetCount returns the number of sheets.
func (r *Reader) SheetCount() int { return len(r.sheets) }

// Sheets returns the sheets in workbook order.
func (r *Reader) Sheets() []*Sheet { return r.sheets }

// Metadata returns document properties plus the sheet count.
func (r *Reader) Metadata() map[string]string { return r.meta }

// Media returns pictures embedded in the workbook.
func (r *Reader) Media() []Media { return r.media }

func (r *Reader) collectMedia(f *excelize.File) {
	for i, s := range r.sheets {
		cells, err := f.GetPictureCells(s.Name)
		if err != nil {
			continue
		}
		for _, cell := range cells {
			pics, err := f.GetPictures(s.Name, cell)
			if err != nil {
				continue
			}
			for _, pic := range pics {
				ext := strings.TrimPrefix(strings.ToLower(pic.Extension), ".")
				r.media = append(r.media, Media{
					SheetNumber: i + 1,
					Name:        fmt.Sprintf("%s-%s.%s", s.Name, cell, ext),
					Data:        pic.File,
					Extension:   ext,
				})
			}
		}
	}
}

func (r *Reader) readProperties(f *excelize.File) {
	if props, err := f.GetDocProps(); err == nil && props != nil {
		setIf(r.meta, "title", props.Title)
		setIf(r.meta, "author", props.Creator)
		setIf(r.meta, "subject", props.Subject)
		setIf(r.meta, "keywords", props.Keywords)
	}
	if props, err := f.GetAppProps(); err == nil && props != nil {
		setIf(r.meta, "application", props.Application)
	}
	r.meta["sheetCount"] = strconv.Itoa(len(r.sheets))
}

func setIf(m map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		m[key] = v
	}
}

// squareRows pads ragged rows to the widest row so table rendering stays
// rectangular.
func squareRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// Markdown renders the sheet as a pipe table under its name; the first row
// serves as the header row.
func (s *Sheet) Markdown() string {
	if len(s.Rows) == 0 {
		return "## " + s.Name
	}
	var sb strings.Builder
	sb.WriteString("## " + s.Name + "\n\n")
	for i, row := range s.Rows {
		sb.WriteByte('|')
		for _, cell := range row {
			sb.WriteString(" " + escapeCell(cell) + " |")
		}
		sb.WriteByte('\n')
		if i == 0 {
			sb.WriteByte('|')
			for range row {
				sb.WriteString(" --- |")
			}
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Text renders the sheet as tab-separated rows.
func (s *Sheet) Text() string {
	rows := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		rows = append(rows, strings.Join(row, "\t"))
	}
	return strings.Join(rows, "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
