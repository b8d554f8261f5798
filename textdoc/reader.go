// Package textdoc reads plain text and markdown documents. Input bytes are
// decoded to UTF-8 first; markdown files additionally get a heading outline
// and a plain-text rendering via goldmark.
package textdoc

import (
	"bytes"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// Document is a decoded text file.
type Document struct {
	Title    string
	Text     string
	Markdown string
	Sections []Section
	Meta     map[string]string
}

// Section is one heading in a markdown outline.
type Section struct {
	Level int
	Title string
}

// Open decodes a text document. Markdown files (by extension) are parsed for
// frontmatter, title and sections; anything else passes through as plain
// text.
func Open(data []byte, name string) *Document {
	content, enc := decode(data)
	content = normalizeNewlines(content)

	doc := &Document{Meta: map[string]string{"encoding": enc}}
	if IsMarkdown(name) {
		parseMarkdown(doc, []byte(content))
	} else {
		doc.Text = content
		doc.Markdown = content
	}
	doc.Meta["lineCount"] = strconv.Itoa(lineCount(doc.Text))
	if doc.Title != "" {
		doc.Meta["title"] = doc.Title
	}
	return doc
}

// IsMarkdown reports whether the name carries a markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

// decode converts raw bytes to UTF-8. BOMs pick the encoding; BOM-less input
// that is not valid UTF-8 falls back to Windows-1252, which accepts any byte
// sequence.
func decode(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), "utf-8"
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeUTF16(data[2:], unicode.LittleEndian), "utf-16le"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeUTF16(data[2:], unicode.BigEndian), "utf-16be"
	}
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data), "utf-8"
	}
	return string(out), "windows-1252"
}

func decodeUTF16(data []byte, e unicode.Endianness) string {
	dec := unicode.UTF16(e, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func parseMarkdown(doc *Document, source []byte) {
	fm, body := splitFrontmatter(source)

	md := goldmark.New()
	root := md.Parser().Parse(gtext.NewReader(body))

	var plain bytes.Buffer
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := nodeText(node, body)
			doc.Sections = append(doc.Sections, Section{Level: node.Level, Title: title})
			if doc.Title == "" && node.Level == 1 {
				doc.Title = title
			}
			if plain.Len() > 0 {
				plain.WriteString("\n\n")
			}
			plain.WriteString(title)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if plain.Len() > 0 {
				plain.WriteString("\n\n")
			}
		case *ast.TextBlock:
			if plain.Len() > 0 {
				plain.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			appendRawLines(&plain, node.Lines(), body)
		case *ast.CodeBlock:
			appendRawLines(&plain, node.Lines(), body)
		case *ast.Text:
			plain.Write(node.Segment.Value(body))
			if node.SoftLineBreak() || node.HardLineBreak() {
				plain.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	doc.Markdown = strings.TrimSpace(string(body))
	doc.Text = strings.TrimSpace(plain.String())

	// Frontmatter wins over the first heading.
	if t, ok := fm["title"].(string); ok && t != "" {
		doc.Title = t
	}
	for _, key := range []string{"author", "description"} {
		if v, ok := fm[key].(string); ok && v != "" {
			doc.Meta[key] = v
		}
	}
}

func appendRawLines(buf *bytes.Buffer, lines *gtext.Segments, source []byte) {
	if buf.Len() > 0 {
		buf.WriteString("\n\n")
	}
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
}

// nodeText collects the literal text under a node.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// splitFrontmatter strips a leading YAML frontmatter block. Malformed blocks
// are left in place.
func splitFrontmatter(content []byte) (map[string]any, []byte) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content
	}
	rest := content[4:]

	end := bytes.Index(rest, []byte("\n---\n"))
	body := []byte(nil)
	if end == -1 {
		if !bytes.HasSuffix(rest, []byte("\n---")) {
			return nil, content
		}
		end = len(rest) - 4
	} else {
		body = rest[end+5:]
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return nil, content
	}
	return fm, body
}
