// Package docx reads Microsoft Word documents. The WordprocessingML parts
// are decoded with encoding/xml and rendered to plain text and markdown:
// heading styles become markdown headings, numbering becomes list markers,
// tables become pipe tables.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// Reader provides access to one in-memory DOCX document.
type Reader struct {
	zr     *zip.Reader
	blocks []block
	meta   map[string]string
}

type blockKind int

const (
	blockPara blockKind = iota
	blockTable
)

type block struct {
	kind    blockKind
	text    string
	inline  string
	heading int // 1-based heading level, 0 for body text
	listLvl int // 0-based list level, -1 for non-list paragraphs
	ordered bool
	table   [][]string
}

// Open parses a DOCX held in memory.
func Open(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening docx archive: %w", err)
	}

	r := &Reader{zr: zr, meta: make(map[string]string)}
	if _, err := r.part("word/document.xml"); err != nil {
		return nil, fmt.Errorf("not a docx archive: %w", err)
	}

	doc := &documentXML{}
	if err := r.decodePart("word/document.xml", doc); err != nil {
		return nil, fmt.Errorf("parsing document.xml: %w", err)
	}

	// Styles and numbering are optional; their absence just means no heading
	// or list structure is recoverable.
	styles := &stylesXML{}
	_ = r.decodePart("word/styles.xml", styles)
	numbering := &numberingXML{}
	_ = r.decodePart("word/numbering.xml", numbering)

	headings := headingLevels(styles)
	numbers := newNumberingResolver(numbering)

	for _, el := range doc.Body.Elements {
		switch {
		case el.Para != nil:
			r.blocks = append(r.blocks, parseParagraph(*el.Para, headings, numbers))
		case el.Table != nil:
			r.blocks = append(r.blocks, block{kind: blockTable, table: resolveTable(*el.Table)})
		}
	}

	r.readProperties()
	return r, nil
}

func (r *Reader) part(name string) ([]byte, error) {
	for _, f := range r.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("missing archive member %s", name)
}

func (r *Reader) decodePart(name string, v any) error {
	data, err := r.part(name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

func (r *Reader) readProperties() {
	core := &corePropsXML{}
	if err := r.decodePart("docProps/core.xml", core); err == nil {
		setIf(r.meta, "title", core.Title)
		setIf(r.meta, "author", core.Creator)
		setIf(r.meta, "subject", core.Subject)
		setIf(r.meta, "keywords", core.Keywords)
	}
	app := &appPropsXML{}
	if err := r.decodePart("docProps/app.xml", app); err == nil {
		setIf(r.meta, "application", app.Application)
	}
}

func setIf(m map[string]string, key, val string) {
	if val = strings.TrimSpace(val); val != "" {
		m[key] = val
	}
}

// Metadata returns the document properties found in the archive.
func (r *Reader) Metadata() map[string]string { return r.meta }

// Text returns the document as plain text: one line per paragraph, blank
// line before headings, tables as tab-separated rows.
func (r *Reader) Text() string {
	var sb strings.Builder
	for i, b := range r.blocks {
		if i > 0 {
			sb.WriteByte('\n')
			if b.kind == blockPara && b.heading > 0 {
				sb.WriteByte('\n')
			}
		}
		switch b.kind {
		case blockPara:
			sb.WriteString(b.text)
		case blockTable:
			sb.WriteString(tableText(b.table))
		}
	}
	return sb.String()
}

// Markdown renders the document as markdown. Empty paragraphs are dropped;
// block structure is carried by blank lines.
func (r *Reader) Markdown() string {
	var parts []string
	for _, b := range r.blocks {
		switch b.kind {
		case blockPara:
			if strings.TrimSpace(b.inline) == "" {
				continue
			}
			switch {
			case b.heading > 0:
				parts = append(parts, strings.Repeat("#", min(b.heading, 6))+" "+b.inline)
			case b.listLvl >= 0:
				marker := "- "
				if b.ordered {
					marker = "1. "
				}
				parts = append(parts, strings.Repeat("  ", b.listLvl)+marker+b.inline)
			default:
				parts = append(parts, b.inline)
			}
		case blockTable:
			if md := tableMarkdown(b.table); md != "" {
				parts = append(parts, md)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// Media is an embedded media file from the archive.
type Media struct {
	Name      string
	Data      []byte
	Extension string
}

// Media returns the files under word/media/, the document's embedded images.
func (r *Reader) Media() ([]Media, error) {
	var out []Media
	for _, f := range r.zr.File {
		if !strings.HasPrefix(f.Name, "word/media/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return out, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return out, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		out = append(out, Media{
			Name:      path.Base(f.Name),
			Data:      data,
			Extension: strings.TrimPrefix(strings.ToLower(path.Ext(f.Name)), "."),
		})
	}
	return out, nil
}

// parseParagraph resolves one paragraph into a render-ready block.
func parseParagraph(p paragraphXML, headings map[string]int, numbers *numberingResolver) block {
	b := block{kind: blockPara, listLvl: -1}

	var text, inline strings.Builder
	for _, run := range p.Runs {
		t := runText(run)
		text.WriteString(t)
		inline.WriteString(runMarkdown(run, t))
	}
	b.text = text.String()
	b.inline = inline.String()

	if style := strings.ToLower(p.Props.Style.Val); style != "" {
		b.heading = headings[style]
	}
	if b.heading == 0 && p.Props.OutlineLvl.Val != "" {
		if lvl, err := strconv.Atoi(p.Props.OutlineLvl.Val); err == nil && lvl >= 0 && lvl <= 8 {
			b.heading = lvl + 1
		}
	}

	if b.heading == 0 && p.Props.Numbering.NumID.Val != "" {
		b.listLvl = 0
		if lvl, err := strconv.Atoi(p.Props.Numbering.Level.Val); err == nil && lvl > 0 {
			b.listLvl = lvl
		}
		b.ordered = numbers.ordered(p.Props.Numbering.NumID.Val, b.listLvl)
	}

	return b
}

// runText joins the run's text nodes, tabs and breaks. A page break renders
// as a blank line.
func runText(r runXML) string {
	var parts []string
	for _, t := range r.Text {
		parts = append(parts, t.Value)
	}
	for range r.Tabs {
		parts = append(parts, "\t")
	}
	for _, br := range r.Breaks {
		if br.Type == "page" {
			parts = append(parts, "\n\n")
		} else {
			parts = append(parts, "\n")
		}
	}
	return strings.Join(parts, "")
}

func runMarkdown(r runXML, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	bold := flagSet(r.Props.Bold)
	italic := flagSet(r.Props.Italic)
	switch {
	case bold && italic:
		return "***" + text + "***"
	case bold:
		return "**" + text + "**"
	case italic:
		return "*" + text + "*"
	}
	return text
}

// flagSet interprets an OOXML toggle property: present means on unless the
// val attribute explicitly turns it off.
func flagSet(v *valXML) bool {
	return v != nil && v.Val != "false" && v.Val != "0"
}

// headingLevels maps lowercase style IDs to heading levels: the built-in
// Heading1..9 and Title styles, plus custom styles that carry an outline
// level or a "heading" name.
func headingLevels(styles *stylesXML) map[string]int {
	m := map[string]int{"title": 1}
	for i := 1; i <= 9; i++ {
		m["heading"+strconv.Itoa(i)] = i
	}

	for _, s := range styles.Styles {
		id := strings.ToLower(s.ID)
		if _, ok := m[id]; ok || id == "" {
			continue
		}
		if v := s.Props.OutlineLvl.Val; v != "" {
			if lvl, err := strconv.Atoi(v); err == nil && lvl >= 0 && lvl <= 8 {
				m[id] = lvl + 1
				continue
			}
		}
		if strings.Contains(strings.ToLower(s.Name.Val), "heading") {
			m[id] = 1
		}
	}
	return m
}

// numberingResolver answers whether a list reference is ordered, via the
// numId -> abstractNum -> level numFmt chain of word/numbering.xml.
type numberingResolver struct {
	formats map[string]map[int]string
}

func newNumberingResolver(n *numberingXML) *numberingResolver {
	abstract := make(map[string]map[int]string, len(n.AbstractNums))
	for _, an := range n.AbstractNums {
		levels := make(map[int]string, len(an.Levels))
		for _, lvl := range an.Levels {
			if i, err := strconv.Atoi(lvl.Level); err == nil {
				levels[i] = lvl.Format.Val
			}
		}
		abstract[an.ID] = levels
	}

	nr := &numberingResolver{formats: make(map[string]map[int]string, len(n.Nums))}
	for _, num := range n.Nums {
		if levels, ok := abstract[num.Abstract.Val]; ok {
			nr.formats[num.ID] = levels
		}
	}
	return nr
}

func (nr *numberingResolver) ordered(numID string, level int) bool {
	format := nr.formats[numID][level]
	return format != "" && format != "bullet" && format != "none"
}

// resolveTable flattens a table into a rectangular cell grid. Column spans
// pad with empty cells; vertically merged continuations render empty so
// rows keep their width.
func resolveTable(t tableXML) [][]string {
	cols := 0
	for _, tr := range t.Rows {
		n := 0
		for _, tc := range tr.Cells {
			n += cellSpan(tc)
		}
		if n > cols {
			cols = n
		}
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, tr := range t.Rows {
		row := make([]string, 0, cols)
		for _, tc := range tr.Cells {
			text := cellText(tc)
			if tc.Props.VMerge != nil && tc.Props.VMerge.Val != "restart" {
				text = ""
			}
			row = append(row, text)
			for k := 1; k < cellSpan(tc); k++ {
				row = append(row, "")
			}
		}
		for len(row) < cols {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return rows
}

func cellSpan(tc tableCellXML) int {
	if n, err := strconv.Atoi(tc.Props.GridSpan.Val); err == nil && n > 1 {
		return n
	}
	return 1
}

func cellText(tc tableCellXML) string {
	var parts []string
	for _, p := range tc.Paras {
		var sb strings.Builder
		for _, run := range p.Runs {
			sb.WriteString(runText(run))
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func tableMarkdown(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	for rowIdx, row := range rows {
		sb.WriteByte('|')
		for _, cell := range row {
			sb.WriteByte(' ')
			sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(cell, "\n", " "), "|", "\\|"))
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')

		if rowIdx == 0 {
			sb.WriteByte('|')
			for range row {
				sb.WriteString(" --- |")
			}
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func tableText(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "\t")
	}
	return strings.Join(lines, "\n")
}
