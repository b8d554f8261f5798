package pdfdoc

import (
	"math"
	"strings"
)

// linesToMarkdown renders lines as markdown. Heading levels are inferred
// from font size relative to the page's body size: titles and section
// headers in real documents are set noticeably larger than running text.
func linesToMarkdown(lines []Line) string {
	return markdownBody(lines, bodyFontSize(lines))
}

// composeMarkdown renders lines as markdown with detected table regions
// replaced by pipe tables at their reading position. Lines falling inside a
// table's extent are consumed by the table rendering; the body font size is
// computed over the whole page so heading inference is unaffected by the
// split.
func composeMarkdown(lines []Line, tables []Table) string {
	if len(tables) == 0 {
		return linesToMarkdown(lines)
	}

	body := bodyFontSize(lines)
	rendered := make([]bool, len(tables))

	var parts []string
	var run []Line
	flush := func() {
		if len(run) > 0 {
			parts = append(parts, markdownBody(run, body))
			run = nil
		}
	}

	for _, line := range lines {
		t := tableContaining(line, tables)
		if t < 0 {
			run = append(run, line)
			continue
		}
		flush()
		if !rendered[t] {
			rendered[t] = true
			parts = append(parts, renderTableMarkdown(tables[t]))
		}
	}
	flush()

	// Tables whose lines were all merged into wider page lines still render,
	// at the end, rather than vanish.
	for i, t := range tables {
		if !rendered[i] {
			parts = append(parts, renderTableMarkdown(t))
		}
	}
	return strings.Join(parts, "\n\n")
}

// tableContaining returns the index of the table the line falls in, or -1.
func tableContaining(line Line, tables []Table) int {
	centerY := (line.Y0 + line.Y1) / 2
	for i, t := range tables {
		if centerY >= t.Y0 && centerY <= t.Y1 && line.X0 < t.X1 && line.X1 > t.X0 {
			return i
		}
	}
	return -1
}

func markdownBody(lines []Line, body float64) string {
	if len(lines) == 0 {
		return ""
	}

	var sb strings.Builder
	for idx, line := range lines {
		prefix := headingPrefix(line.FontSize, body)

		if idx > 0 {
			prev := lines[idx-1]
			gap := prev.Y0 - line.Y1
			if prefix != "" || gap > line.FontSize*1.5 || headingPrefix(prev.FontSize, body) != "" {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte('\n')
			}
		}

		sb.WriteString(prefix)
		sb.WriteString(line.Text)
	}
	return sb.String()
}

// bodyFontSize returns the dominant font size across lines, weighting by
// text length so a single oversized title cannot masquerade as body text.
func bodyFontSize(lines []Line) float64 {
	counts := make(map[float64]int)
	for _, line := range lines {
		// Bucket to half points to absorb float jitter.
		size := math.Round(line.FontSize*2) / 2
		counts[size] += len(line.Text)
	}

	best, bestCount := 12.0, 0
	for size, count := range counts {
		if count > bestCount || (count == bestCount && size < best) {
			best, bestCount = size, count
		}
	}
	return best
}

func headingPrefix(size, body float64) string {
	if body <= 0 {
		return ""
	}
	switch ratio := size / body; {
	case ratio >= 1.7:
		return "# "
	case ratio >= 1.4:
		return "## "
	case ratio >= 1.15:
		return "### "
	}
	return ""
}
