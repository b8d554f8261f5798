package pptx

import "strings"

// Slide is one parsed slide in deck order.
type Slide struct {
	Number int // 1-based position in the deck
	Title  string
	Blocks []TextBlock
	Tables []Table
	Notes  string
}

// TextBlock is the text content of one shape, in shape-tree order.
type TextBlock struct {
	Placeholder string // OOXML placeholder type, empty for plain shapes
	Paragraphs  []Paragraph
}

// Paragraph is a single paragraph within a shape.
type Paragraph struct {
	Text     string
	Level    int // indent level, 0 for top level
	Bullet   bool
	Numbered bool
}

// Table holds resolved cell text; merged continuation cells are empty.
type Table [][]string

// Text returns the slide content as plain text. Paragraphs within a shape
// stay on adjacent lines; shapes, tables and notes are separated by blank
// lines.
func (s *Slide) Text() string {
	var parts []string
	if s.Title != "" {
		parts = append(parts, s.Title)
	}
	for _, b := range s.Blocks {
		var lines []string
		for _, p := range b.Paragraphs {
			if p.Text != "" {
				lines = append(lines, p.Text)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}
	for _, t := range s.Tables {
		if txt := tableText(t); txt != "" {
			parts = append(parts, txt)
		}
	}
	if s.Notes != "" {
		parts = append(parts, "Notes: "+s.Notes)
	}
	return strings.Join(parts, "\n\n")
}

// Markdown renders the slide with the title as an H1, bullet and numbered
// paragraphs as list items, tables as pipe tables and speaker notes as a
// trailing blockquote.
func (s *Slide) Markdown() string {
	var parts []string
	if s.Title != "" {
		parts = append(parts, "# "+s.Title)
	}
	for _, b := range s.Blocks {
		var list []string
		flush := func() {
			if len(list) > 0 {
				parts = append(parts, strings.Join(list, "\n"))
				list = nil
			}
		}
		for _, p := range b.Paragraphs {
			if p.Text == "" {
				continue
			}
			switch {
			case p.Numbered:
				list = append(list, strings.Repeat("  ", p.Level)+"1. "+p.Text)
			case p.Bullet:
				list = append(list, strings.Repeat("  ", p.Level)+"- "+p.Text)
			default:
				flush()
				parts = append(parts, p.Text)
			}
		}
		flush()
	}
	for _, t := range s.Tables {
		if md := tableMarkdown(t); md != "" {
			parts = append(parts, md)
		}
	}
	if s.Notes != "" {
		parts = append(parts, "> Notes: "+strings.ReplaceAll(s.Notes, "\n", "\n> "))
	}
	return strings.Join(parts, "\n\n")
}

func tableMarkdown(t Table) string {
	if len(t) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, row := range t {
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

func tableText(t Table) string {
	rows := make([]string, 0, len(t))
	for _, row := range t {
		rows = append(rows, strings.Join(row, "\t"))
	}
	return strings.Join(rows, "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
