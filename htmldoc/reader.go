// Package htmldoc converts HTML documents to markdown and plain text. The
// DOM is pruned of navigation boilerplate, sanitized, and handed to the
// commonmark converter; the title and meta tags come from the head element.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Document is a converted HTML document.
type Document struct {
	Title    string
	Text     string
	Markdown string
	Meta     map[string]string
}

var sanitizer = bluemonday.UGCPolicy()

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Open converts an HTML document with the standard boilerplate exclusion.
func Open(data []byte) (*Document, error) {
	return OpenMode(data, ExclusionStandard)
}

// OpenMode converts an HTML document, pruning boilerplate per mode. Legacy
// charsets are decoded first; the charset is sniffed from the bytes and any
// meta declaration.
func OpenMode(data []byte, mode ExclusionMode) (*Document, error) {
	cr, err := charset.NewReader(bytes.NewReader(data), "")
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}
	decoded, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("decoding html: %w", err)
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	doc := &Document{Meta: make(map[string]string)}
	readHead(root, doc)

	pruneBoilerplate(root, mode)

	var pruned bytes.Buffer
	if err := html.Render(&pruned, root); err != nil {
		return nil, fmt.Errorf("rendering pruned dom: %w", err)
	}
	clean := sanitizer.SanitizeBytes(pruned.Bytes())

	md, err := mdConverter.ConvertString(string(clean))
	if err != nil {
		return nil, fmt.Errorf("converting to markdown: %w", err)
	}
	doc.Markdown = strings.TrimSpace(md)

	cleanRoot, err := html.Parse(bytes.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("parsing sanitized html: %w", err)
	}
	var b strings.Builder
	writeText(cleanRoot, &b)
	doc.Text = tidyText(b.String())

	if doc.Title != "" {
		doc.Meta["title"] = doc.Title
	}
	return doc, nil
}

// readHead pulls the title and meta tags out of the head element.
func readHead(n *html.Node, doc *Document) {
	if n.Type == html.ElementNode && n.Data == "head" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "title":
				doc.Title = strings.TrimSpace(textContent(c))
			case "meta":
				var name, content string
				for _, attr := range c.Attr {
					switch attr.Key {
					case "name", "property":
						name = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if name != "" && content != "" {
					doc.Meta[name] = content
				}
			}
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		readHead(c, doc)
	}
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textContent concatenates every text node under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// writeText renders the DOM as plain text. Inline whitespace collapses the
// way a browser lays it out; block elements break lines and table cells are
// tab separated.
func writeText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, b)
	}
	if n.Type != html.ElementNode {
		return
	}
	switch n.Data {
	case "td", "th":
		b.WriteByte('\t')
	case "li", "tr", "div":
		b.WriteByte('\n')
	case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "table", "ul", "ol":
		b.WriteString("\n\n")
	}
}

// collapseSpace folds whitespace runs into single spaces, keeping a single
// boundary space at either end.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

// tidyText trims line edges and folds blank-line runs.
func tidyText(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(line, " \t")
		if line == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
