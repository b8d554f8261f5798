// Package pptx reads PowerPoint presentations (OOXML .pptx archives). Slides
// keep their deck order; each exposes plain text and markdown renderings plus
// speaker notes, so a presentation maps naturally onto a page-per-slide
// document.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

const emuPerPoint = 12700

// Reader holds a parsed presentation.
type Reader struct {
	zr     *zip.Reader
	slides []*Slide
	media  []mediaRef
	width  float64
	height float64
	meta   map[string]string
}

type mediaRef struct {
	slide int
	path  string
}

// Open parses a presentation from its archive bytes.
func Open(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	r := &Reader{zr: zr, meta: make(map[string]string)}

	raw, err := r.part("ppt/presentation.xml")
	if err != nil {
		return nil, fmt.Errorf("not a pptx archive: %w", err)
	}
	var pres presentationXML
	if err := xml.Unmarshal(raw, &pres); err != nil {
		return nil, fmt.Errorf("parsing presentation.xml: %w", err)
	}
	if pres.SlideSize != nil {
		r.width = float64(pres.SlideSize.Cx) / emuPerPoint
		r.height = float64(pres.SlideSize.Cy) / emuPerPoint
	}

	if err := r.parseSlides(); err != nil {
		return nil, err
	}
	r.readProperties()
	return r, nil
}

// SlideCount returns the number of slides in the deck.
func (r *Reader) SlideCount() int { return len(r.slides) }

// Slides returns the parsed slides in deck order.
func (r *Reader) Slides() []*Slide { return r.slides }

// SlideSize returns the slide dimensions in points, or zeros when the
// presentation does not declare them.
func (r *Reader) SlideSize() (w, h float64) { return r.width, r.height }

// Metadata returns document properties plus the slide count.
func (r *Reader) Metadata() map[string]string { return r.meta }

// Media is an embedded media file attributed to the slide that references it.
type Media struct {
	SlideNumber int
	Name        string
	Data        []byte
	Extension   string
}

// Media returns the media files referenced by slide pictures.
func (r *Reader) Media() ([]Media, error) {
	var out []Media
	for _, ref := range r.media {
		data, err := r.part(ref.path)
		if err != nil {
			return nil, err
		}
		name := path.Base(ref.path)
		out = append(out, Media{
			SlideNumber: ref.slide,
			Name:        name,
			Data:        data,
			Extension:   strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."),
		})
	}
	return out, nil
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

func (r *Reader) parseSlides() error {
	var names []string
	for _, f := range r.zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") &&
			!strings.Contains(f.Name, "_rels") {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("presentation has no slides")
	}
	sort.Slice(names, func(i, j int) bool {
		return slideNumber(names[i]) < slideNumber(names[j])
	})

	for i, name := range names {
		raw, err := r.part(name)
		if err != nil {
			return err
		}
		var sx slideXML
		if err := xml.Unmarshal(raw, &sx); err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}

		s := &Slide{Number: i + 1}
		collectShapes(sx.CSld.SpTree, s)

		rels := r.slideRels(name)
		s.Notes = r.slideNotes(name, rels)
		r.collectMedia(s.Number, name, collectEmbeds(sx.CSld.SpTree), rels)

		r.slides = append(r.slides, s)
	}
	return nil
}

// slideNumber extracts N from ppt/slides/slideN.xml so slide10 sorts after
// slide2.
func slideNumber(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n, _ := strconv.Atoi(base)
	return n
}

func collectShapes(tree spTreeXML, s *Slide) {
	for _, sp := range tree.Shapes {
		addShape(sp, s)
	}
	for _, frame := range tree.Frames {
		if frame.Graphic.Data.Tbl == nil {
			continue
		}
		if t := resolveTable(*frame.Graphic.Data.Tbl); len(t) > 0 {
			s.Tables = append(s.Tables, t)
		}
	}
	for _, g := range tree.Groups {
		collectGroup(g, s)
	}
}

func collectGroup(g groupXML, s *Slide) {
	for _, sp := range g.Shapes {
		addShape(sp, s)
	}
	for _, ng := range g.Groups {
		collectGroup(ng, s)
	}
}

func addShape(sp shapeXML, s *Slide) {
	block, ok := parseTextBlock(sp)
	if !ok || isFooterPlaceholder(block.Placeholder) {
		return
	}
	if isTitlePlaceholder(block.Placeholder) && s.Title == "" {
		texts := make([]string, 0, len(block.Paragraphs))
		for _, p := range block.Paragraphs {
			texts = append(texts, p.Text)
		}
		s.Title = strings.Join(texts, " ")
		return
	}
	s.Blocks = append(s.Blocks, block)
}

func isTitlePlaceholder(ph string) bool {
	return ph == "title" || ph == "ctrTitle"
}

// isFooterPlaceholder reports slide furniture: footers, date fields and the
// slide number.
func isFooterPlaceholder(ph string) bool {
	switch ph {
	case "ftr", "dt", "sldNum", "hdr":
		return true
	}
	return false
}

func parseTextBlock(sp shapeXML) (TextBlock, bool) {
	var b TextBlock
	if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
		b.Placeholder = ph.Type
	}
	if sp.TxBody == nil {
		return b, false
	}
	for _, p := range sp.TxBody.Paras {
		if para := parseParagraph(p); para.Text != "" {
			b.Paragraphs = append(b.Paragraphs, para)
		}
	}
	return b, len(b.Paragraphs) > 0
}

func parseParagraph(p paraXML) Paragraph {
	var para Paragraph
	if p.Props != nil {
		para.Level = p.Props.Level
		// A paragraph is a list item unless bullets are explicitly off.
		if p.Props.BuNone == nil {
			switch {
			case p.Props.BuAutoNum != nil:
				para.Numbered = true
			case p.Props.BuChar != nil || para.Level > 0:
				para.Bullet = true
			}
		}
	}
	var sb strings.Builder
	for _, run := range p.Runs {
		sb.WriteString(run.Text)
	}
	for _, f := range p.Fields {
		sb.WriteString(f.Text)
	}
	para.Text = strings.TrimSpace(sb.String())
	return para
}

func resolveTable(t tblXML) Table {
	rows := make(Table, 0, len(t.Rows))
	for _, tr := range t.Rows {
		row := make([]string, 0, len(tr.Cells))
		for _, tc := range tr.Cells {
			if mergedContinuation(tc.HMerge) || mergedContinuation(tc.VMerge) {
				row = append(row, "")
				continue
			}
			row = append(row, cellText(tc))
		}
		rows = append(rows, row)
	}
	return rows
}

func mergedContinuation(v string) bool {
	return v == "1" || v == "true"
}

func cellText(tc tblCellXML) string {
	if tc.TxBody == nil {
		return ""
	}
	var texts []string
	for _, p := range tc.TxBody.Paras {
		if para := parseParagraph(p); para.Text != "" {
			texts = append(texts, para.Text)
		}
	}
	return strings.Join(texts, " ")
}

func (r *Reader) slideRels(slidePath string) []relationshipXML {
	relsPath := path.Join(path.Dir(slidePath), "_rels", path.Base(slidePath)+".rels")
	raw, err := r.part(relsPath)
	if err != nil {
		return nil
	}
	var rels relationshipsXML
	if xml.Unmarshal(raw, &rels) != nil {
		return nil
	}
	return rels.Relationships
}

func (r *Reader) slideNotes(slidePath string, rels []relationshipXML) string {
	var target string
	for _, rel := range rels {
		if strings.Contains(rel.Type, "notesSlide") {
			target = rel.Target
			break
		}
	}
	if target == "" {
		return ""
	}
	raw, err := r.part(resolveTarget(path.Dir(slidePath), target))
	if err != nil {
		return ""
	}
	var notes notesXML
	if xml.Unmarshal(raw, &notes) != nil {
		return ""
	}

	var lines []string
	for _, sp := range notes.CSld.SpTree.Shapes {
		// The notes page repeats the slide thumbnail and number; only the
		// body carries the spoken notes.
		if ph := sp.NvSpPr.NvPr.Ph; ph != nil && (ph.Type == "sldImg" || ph.Type == "sldNum") {
			continue
		}
		if sp.TxBody == nil {
			continue
		}
		for _, p := range sp.TxBody.Paras {
			if para := parseParagraph(p); para.Text != "" {
				lines = append(lines, para.Text)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func collectEmbeds(tree spTreeXML) []string {
	var ids []string
	for _, pic := range tree.Pics {
		if pic.BlipFill.Blip.Embed != "" {
			ids = append(ids, pic.BlipFill.Blip.Embed)
		}
	}
	for _, g := range tree.Groups {
		ids = append(ids, groupEmbeds(g)...)
	}
	return ids
}

func groupEmbeds(g groupXML) []string {
	var ids []string
	for _, pic := range g.Pics {
		if pic.BlipFill.Blip.Embed != "" {
			ids = append(ids, pic.BlipFill.Blip.Embed)
		}
	}
	for _, ng := range g.Groups {
		ids = append(ids, groupEmbeds(ng)...)
	}
	return ids
}

func (r *Reader) collectMedia(slide int, slidePath string, embeds []string, rels []relationshipXML) {
	targets := make(map[string]string, len(rels))
	for _, rel := range rels {
		targets[rel.ID] = rel.Target
	}
	seen := make(map[string]bool)
	for _, id := range embeds {
		target, ok := targets[id]
		if !ok {
			continue
		}
		p := resolveTarget(path.Dir(slidePath), target)
		if seen[p] {
			continue
		}
		seen[p] = true
		r.media = append(r.media, mediaRef{slide: slide, path: p})
	}
}

// resolveTarget turns a relationship target like "../media/image1.png" into
// an archive path relative to the part that declared it.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}

func (r *Reader) readProperties() {
	if raw, err := r.part("docProps/core.xml"); err == nil {
		var core corePropsXML
		if xml.Unmarshal(raw, &core) == nil {
			setIf(r.meta, "title", core.Title)
			setIf(r.meta, "author", core.Creator)
			setIf(r.meta, "subject", core.Subject)
			setIf(r.meta, "keywords", core.Keywords)
		}
	}
	if raw, err := r.part("docProps/app.xml"); err == nil {
		var app appPropsXML
		if xml.Unmarshal(raw, &app) == nil {
			setIf(r.meta, "application", app.Application)
		}
	}
	r.meta["slideCount"] = strconv.Itoa(len(r.slides))
}

func setIf(m map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		m[key] = v
	}
}
