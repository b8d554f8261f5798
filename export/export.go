// Package export serializes canonical parse results as JSON or markdown and
// renders bounding-box overlay images for visual inspection.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/parsemux/parsemux/model"
)

// JSON renders the result as compact JSON.
func JSON(res *model.DocumentResult) ([]byte, error) {
	return sonic.Marshal(res)
}

// JSONIndent renders the result as indented JSON for human inspection.
func JSONIndent(res *model.DocumentResult) ([]byte, error) {
	return sonic.MarshalIndent(res, "", "  ")
}

// WriteJSON streams the result to w as one JSON document followed by a
// newline.
func WriteJSON(w io.Writer, res *model.DocumentResult) error {
	return sonic.ConfigDefault.NewEncoder(w).Encode(res)
}

// Markdown renders the result as a markdown document. A title reported by
// the backend becomes a top-level heading unless the content already opens
// with one.
func Markdown(res *model.DocumentResult) string {
	var b strings.Builder
	if title := res.Metadata["title"]; title != "" && !strings.HasPrefix(res.Content, "#") {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	b.WriteString(res.Content)
	if res.Content != "" && !strings.HasSuffix(res.Content, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteMarkdown writes the markdown rendering of the result to w.
func WriteMarkdown(w io.Writer, res *model.DocumentResult) error {
	_, err := io.WriteString(w, Markdown(res))
	return err
}
