package pdfdoc

import (
	"bytes"
	"fmt"
	"strconv"
)

// Content stream operands are modeled with a small set of Go types: float64
// for numbers, str for strings, name for /Names, arr for arrays, bool and
// nil for the keywords, and map[string]obj for inline dictionaries.
type (
	obj  any
	str  []byte
	name string
	arr  []obj
)

// op is one content stream operation: an operator plus the operands that
// preceded it.
type op struct {
	name     string
	operands []obj
}

// streamParser tokenizes a PDF content stream into operations. Operands
// accumulate on a stack until an operator consumes them.
type streamParser struct {
	data  []byte
	pos   int
	stack []obj
	ops   []op
}

// parseContent parses a decoded content stream. Unknown constructs fail with
// a positioned error so a malformed page is reported, not misread.
func parseContent(data []byte) ([]op, error) {
	p := &streamParser{data: data}
	for p.pos < len(p.data) {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if err := p.parseNext(); err != nil {
			return nil, err
		}
	}
	return p.ops, nil
}

func (p *streamParser) parseNext() error {
	c := p.data[p.pos]

	// Comments run to end of line.
	if c == '%' {
		for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
			p.pos++
		}
		return nil
	}

	// Operators start with a letter or one of the quote forms.
	if isLetter(c) || c == '\'' || c == '"' {
		return p.parseOperator()
	}

	operand, err := p.parseOperand()
	if err != nil {
		return err
	}
	p.stack = append(p.stack, operand)
	return nil
}

func (p *streamParser) parseOperator() error {
	start := p.pos
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isLetter(c) || c == '\'' || c == '"' || c == '*' {
			p.pos++
		} else {
			break
		}
	}

	operator := string(p.data[start:p.pos])

	// true/false/null are operands that happen to start with letters.
	switch operator {
	case "true":
		p.stack = append(p.stack, true)
		return nil
	case "false":
		p.stack = append(p.stack, false)
		return nil
	case "null":
		p.stack = append(p.stack, nil)
		return nil
	}

	// Inline images carry unstructured binary data between ID and EI; skip
	// to the end marker.
	if operator == "BI" {
		return p.skipInlineImage()
	}

	operands := make([]obj, len(p.stack))
	copy(operands, p.stack)
	p.ops = append(p.ops, op{name: operator, operands: operands})
	p.stack = p.stack[:0]
	return nil
}

// skipInlineImage consumes everything from BI to the closing EI.
func (p *streamParser) skipInlineImage() error {
	for p.pos+1 < len(p.data) {
		if p.data[p.pos] == 'E' && p.data[p.pos+1] == 'I' &&
			(p.pos+2 >= len(p.data) || isWhitespace(p.data[p.pos+2])) {
			p.pos += 2
			p.stack = p.stack[:0]
			return nil
		}
		p.pos++
	}
	return fmt.Errorf("unterminated inline image at position %d", p.pos)
}

func (p *streamParser) parseOperand() (obj, error) {
	p.skipWhitespace()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of stream")
	}

	c := p.data[p.pos]
	switch {
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == '(':
		return p.parseString()
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray()
	}

	// true/false/null can appear as dictionary values and array elements.
	if c == 't' || c == 'f' || c == 'n' {
		end := p.pos
		for end < len(p.data) && !isWhitespace(p.data[end]) && !isDelimiter(p.data[end]) {
			end++
		}
		switch string(p.data[p.pos:end]) {
		case "true":
			p.pos = end
			return true, nil
		case "false":
			p.pos = end
			return false, nil
		case "null":
			p.pos = end
			return nil, nil
		}
	}

	return nil, fmt.Errorf("unexpected character at position %d: %c", p.pos, c)
}

func (p *streamParser) parseNumber() (obj, error) {
	start := p.pos
	if p.data[p.pos] == '+' || p.data[p.pos] == '-' {
		p.pos++
	}
	seenDot := false
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
		} else if c == '.' && !seenDot {
			seenDot = true
			p.pos++
		} else {
			break
		}
	}
	val, err := strconv.ParseFloat(string(p.data[start:p.pos]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number at position %d: %w", start, err)
	}
	return val, nil
}

// parseString parses a literal string (...) with escape sequence handling.
func (p *streamParser) parseString() (obj, error) {
	p.pos++ // skip '('

	var result bytes.Buffer
	depth := 1

	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]

		switch {
		case c == '\\' && p.pos+1 < len(p.data):
			p.pos++
			next := p.data[p.pos]
			switch next {
			case 'n':
				result.WriteByte('\n')
				p.pos++
			case 'r':
				result.WriteByte('\r')
				p.pos++
			case 't':
				result.WriteByte('\t')
				p.pos++
			case 'b':
				result.WriteByte('\b')
				p.pos++
			case 'f':
				result.WriteByte('\f')
				p.pos++
			case '(', ')', '\\':
				result.WriteByte(next)
				p.pos++
			case '\r':
				// Line continuation.
				p.pos++
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				p.pos++
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Octal escape \ddd, 1-3 digits.
				val := int(next - '0')
				p.pos++
				for i := 0; i < 2 && p.pos < len(p.data); i++ {
					d := p.data[p.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + int(d-'0')
					p.pos++
				}
				result.WriteByte(byte(val & 0xFF))
			default:
				// Unknown escapes keep the character, dropping the backslash.
				result.WriteByte(next)
				p.pos++
			}
		case c == '(':
			depth++
			result.WriteByte(c)
			p.pos++
		case c == ')':
			depth--
			if depth > 0 {
				result.WriteByte(c)
			}
			p.pos++
		default:
			result.WriteByte(c)
			p.pos++
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unclosed string")
	}
	return str(result.Bytes()), nil
}

func (p *streamParser) parseHexString() (obj, error) {
	p.pos++ // skip '<'

	var result bytes.Buffer
	var hi byte
	haveHi := false

	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == '>' {
			p.pos++
			if haveHi {
				// Odd digit count: trailing digit pairs with 0.
				result.WriteByte(hexValue(hi) << 4)
			}
			return str(result.Bytes()), nil
		}
		if isWhitespace(c) {
			p.pos++
			continue
		}
		if !isHexDigit(c) {
			return nil, fmt.Errorf("invalid hex digit at position %d: %c", p.pos, c)
		}
		if haveHi {
			result.WriteByte((hexValue(hi) << 4) | hexValue(c))
			haveHi = false
		} else {
			hi = c
			haveHi = true
		}
		p.pos++
	}
	return nil, fmt.Errorf("unclosed hex string")
}

func (p *streamParser) parseName() (obj, error) {
	p.pos++ // skip '/'

	var result bytes.Buffer
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && p.pos+2 < len(p.data) && isHexDigit(p.data[p.pos+1]) && isHexDigit(p.data[p.pos+2]) {
			result.WriteByte((hexValue(p.data[p.pos+1]) << 4) | hexValue(p.data[p.pos+2]))
			p.pos += 3
			continue
		}
		result.WriteByte(c)
		p.pos++
	}
	return name(result.String()), nil
}

func (p *streamParser) parseArray() (obj, error) {
	p.pos++ // skip '['

	var a arr
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return a, nil
		}
		elem, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		a = append(a, elem)
	}
}

func (p *streamParser) parseDict() (obj, error) {
	p.pos += 2 // skip '<<'

	dict := make(map[string]obj)
	for {
		p.skipWhitespace()
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed dictionary")
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at position %d", p.pos)
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		value, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		dict[string(key.(name))] = value
	}
}

func (p *streamParser) skipWhitespace() {
	for p.pos < len(p.data) && isWhitespace(p.data[p.pos]) {
		p.pos++
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

// isLetter reports whether c is an ASCII letter.
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isDelimiter reports whether c is a PDF delimiter character.
func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' ||
		c == '[' || c == ']' || c == '{' || c == '}' ||
		c == '/' || c == '%'
}

// isHexDigit reports whether c is a hexadecimal digit.
func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// hexValue returns the numeric value of a hexadecimal digit.
func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
