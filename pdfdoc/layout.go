package pdfdoc

import (
	"math"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Fragment is one positioned run of text decoded from a content stream show
// operation. X and Y locate the baseline origin in PDF points with the
// origin at the bottom-left of the page. Width is estimated from the font
// size; without embedded font metrics it is an approximation.
type Fragment struct {
	Text     string
	X, Y     float64
	Width    float64
	Height   float64
	FontSize float64
}

// Line is a reading-order line assembled from fragments sharing a baseline.
type Line struct {
	Text           string
	X0, Y0, X1, Y1 float64
	FontSize       float64
}

// ImageBox is the placed rectangle of an XObject drawn by a Do operator,
// in PDF points.
type ImageBox struct {
	X0, Y0, X1, Y1 float64
}

// matrix is a PDF transformation matrix [a b c d e f] under the row-vector
// convention: x' = a*x + c*y + e, y' = b*x + d*y + f.
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

// mul returns m x n: applying the result transforms by m first, then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translation(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// contentInterp walks parsed content stream operations and accumulates
// positioned text fragments and image placements. Only the state that
// affects positioning is tracked.
type contentInterp struct {
	ctm      matrix
	ctmStack []matrix
	tm       matrix
	tlm      matrix
	fontSize float64
	leading  float64
	charSp   float64

	frags  []Fragment
	images []ImageBox
}

// interpretContent extracts fragments and image boxes from a decoded
// content stream.
func interpretContent(data []byte) ([]Fragment, []ImageBox, error) {
	ops, err := parseContent(data)
	if err != nil {
		return nil, nil, err
	}

	interp := &contentInterp{ctm: identityMatrix, tm: identityMatrix, tlm: identityMatrix, fontSize: 12}
	for _, o := range ops {
		interp.process(o)
	}
	return interp.frags, interp.images, nil
}

func (i *contentInterp) process(o op) {
	switch o.name {
	case "q":
		i.ctmStack = append(i.ctmStack, i.ctm)
	case "Q":
		if n := len(i.ctmStack); n > 0 {
			i.ctm = i.ctmStack[n-1]
			i.ctmStack = i.ctmStack[:n-1]
		}
	case "cm":
		if m, ok := toMatrix(o.operands); ok {
			i.ctm = m.mul(i.ctm)
		}

	case "BT":
		i.tm = identityMatrix
		i.tlm = identityMatrix
	case "ET":
		// Nothing to reset; positions only matter between BT and show ops.
	case "Tf":
		if len(o.operands) == 2 {
			if size, ok := toFloat(o.operands[1]); ok && size > 0 {
				i.fontSize = size
			}
		}
	case "TL":
		if len(o.operands) == 1 {
			if l, ok := toFloat(o.operands[0]); ok {
				i.leading = l
			}
		}
	case "Tc":
		if len(o.operands) == 1 {
			if sp, ok := toFloat(o.operands[0]); ok {
				i.charSp = sp
			}
		}

	case "Tm":
		if m, ok := toMatrix(o.operands); ok {
			i.tm = m
			i.tlm = m
		}
	case "Td":
		if len(o.operands) == 2 {
			tx, ok1 := toFloat(o.operands[0])
			ty, ok2 := toFloat(o.operands[1])
			if ok1 && ok2 {
				i.nextLine(tx, ty)
			}
		}
	case "TD":
		if len(o.operands) == 2 {
			tx, ok1 := toFloat(o.operands[0])
			ty, ok2 := toFloat(o.operands[1])
			if ok1 && ok2 {
				i.leading = -ty
				i.nextLine(tx, ty)
			}
		}
	case "T*":
		i.nextLine(0, -i.leading)

	case "Tj":
		if len(o.operands) == 1 {
			if s, ok := o.operands[0].(str); ok {
				i.show(s)
			}
		}
	case "TJ":
		if len(o.operands) == 1 {
			if a, ok := o.operands[0].(arr); ok {
				for _, item := range a {
					switch v := item.(type) {
					case str:
						i.show(v)
					case float64:
						// Thousandths of text space, subtracted from the
						// advance: negative values widen gaps.
						i.tm = translation(-v/1000*i.fontSize, 0).mul(i.tm)
					}
				}
			}
		}
	case "'":
		i.nextLine(0, -i.leading)
		if len(o.operands) == 1 {
			if s, ok := o.operands[0].(str); ok {
				i.show(s)
			}
		}
	case "\"":
		if len(o.operands) == 3 {
			i.nextLine(0, -i.leading)
			if s, ok := o.operands[2].(str); ok {
				i.show(s)
			}
		}

	case "Do":
		i.placeImage()
	}
}

func (i *contentInterp) nextLine(tx, ty float64) {
	i.tlm = translation(tx, ty).mul(i.tlm)
	i.tm = i.tlm
}

// show records a fragment at the current text position and advances the
// text matrix by the estimated string width.
func (i *contentInterp) show(s str) {
	text := decodeTextBytes(s)
	if text == "" {
		return
	}

	runes := float64(utf8.RuneCountInString(text))
	width := runes*i.fontSize*0.5 + math.Max(0, runes-1)*i.charSp

	toDevice := i.tm.mul(i.ctm)
	x0, y0 := toDevice.apply(0, 0)
	x1, _ := toDevice.apply(width, 0)

	size := i.fontSize * math.Abs(i.tm[3]*i.ctm[3])
	if size == 0 {
		size = i.fontSize
	}

	if strings.TrimSpace(text) != "" {
		i.frags = append(i.frags, Fragment{
			Text:     text,
			X:        math.Min(x0, x1),
			Y:        y0,
			Width:    math.Abs(x1 - x0),
			Height:   size,
			FontSize: size,
		})
	}

	i.tm = translation(width, 0).mul(i.tm)
}

// placeImage records the device-space rectangle of the XObject unit square
// under the current transform. Form XObjects are indistinguishable here;
// the reader cross-checks against the page's image object numbers.
func (i *contentInterp) placeImage() {
	corners := [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := i.ctm.apply(c[0], c[1])
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	if maxX-minX <= 0 || maxY-minY <= 0 {
		return
	}
	i.images = append(i.images, ImageBox{X0: minX, Y0: minY, X1: maxX, Y1: maxY})
}

// decodeTextBytes converts raw string bytes to UTF-8. Strings with a
// UTF-16BE byte order mark are decoded as UTF-16; everything else is
// treated as Latin-1, which covers PDFDocEncoding's printable range.
// Without font CMaps, custom encodings cannot be resolved.
func decodeTextBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		u := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}

	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// assembleLines groups fragments into baseline-aligned lines in reading
// order: top to bottom, left to right.
func assembleLines(frags []Fragment) []Line {
	if len(frags) == 0 {
		return nil
	}

	sorted := make([]Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Y != sorted[b].Y {
			return sorted[a].Y > sorted[b].Y
		}
		return sorted[a].X < sorted[b].X
	})

	var groups [][]Fragment
	current := []Fragment{sorted[0]}
	for _, frag := range sorted[1:] {
		ref := current[0]
		tolerance := math.Max(ref.Height, frag.Height) * 0.5
		if math.Abs(frag.Y-ref.Y) <= tolerance {
			current = append(current, frag)
		} else {
			groups = append(groups, current)
			current = []Fragment{frag}
		}
	}
	groups = append(groups, current)

	lines := make([]Line, 0, len(groups))
	for _, group := range groups {
		sort.SliceStable(group, func(a, b int) bool { return group[a].X < group[b].X })

		var sb strings.Builder
		line := Line{X0: math.Inf(1), X1: math.Inf(-1)}
		baseline := group[0].Y
		for idx, frag := range group {
			if idx > 0 {
				prev := group[idx-1]
				gap := frag.X - (prev.X + prev.Width)
				if gap >= prev.FontSize*0.2 && !strings.HasSuffix(sb.String(), " ") {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(frag.Text)
			line.X0 = math.Min(line.X0, frag.X)
			line.X1 = math.Max(line.X1, frag.X+frag.Width)
			line.FontSize = math.Max(line.FontSize, frag.FontSize)
		}

		line.Text = strings.TrimSpace(sb.String())
		if line.Text == "" {
			continue
		}
		line.Y0 = baseline - line.FontSize*0.25
		line.Y1 = baseline + line.FontSize*0.75
		lines = append(lines, line)
	}
	return lines
}

// linesToText joins lines top to bottom, inserting blank lines at paragraph
// breaks (vertical gaps larger than 1.5x the line height).
func linesToText(lines []Line) string {
	var sb strings.Builder
	for idx, line := range lines {
		if idx > 0 {
			prev := lines[idx-1]
			if prev.Y0-line.Y1 > line.FontSize*1.5 {
				sb.WriteString("\n\n")
			} else {
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(line.Text)
	}
	return sb.String()
}

func toFloat(o obj) (float64, bool) {
	v, ok := o.(float64)
	return v, ok
}

func toMatrix(operands []obj) (matrix, bool) {
	if len(operands) != 6 {
		return identityMatrix, false
	}
	var m matrix
	for idx, o := range operands {
		v, ok := toFloat(o)
		if !ok {
			return identityMatrix, false
		}
		m[idx] = v
	}
	return m, true
}
