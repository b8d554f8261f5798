package htmldoc

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ExclusionMode controls how much navigation boilerplate is pruned from the
// DOM before conversion.
type ExclusionMode int

const (
	// ExclusionNone keeps every element.
	ExclusionNone ExclusionMode = iota

	// ExclusionSemantic prunes semantic HTML5 navigation: <nav>, <aside>,
	// ARIA navigation roles, and top-level <header>/<footer>.
	ExclusionSemantic

	// ExclusionStandard additionally matches common class and id patterns
	// (navbar, menu, breadcrumb, sidebar, footer). This is the default.
	ExclusionStandard

	// ExclusionAggressive additionally prunes link-dense containers. This
	// can drop legitimate link-heavy content such as index pages.
	ExclusionAggressive
)

// boilerplatePattern matches class and id tokens that mark navigation
// chrome. Word boundaries keep names like "navigator" from matching.
var boilerplatePattern = regexp.MustCompile(
	`(?i)(^|[^a-z])(nav|navbar|navigation|menu|topnav|sidenav|breadcrumb|breadcrumbs|` +
		`site-header|page-header|masthead|banner|` +
		`footer|site-footer|page-footer|colophon|` +
		`sidebar|widget-area|widget|aside)([^a-z]|$)`)

// pruneBoilerplate removes excluded subtrees from the DOM in place.
func pruneBoilerplate(root *html.Node, mode ExclusionMode) {
	if mode == ExclusionNone {
		return
	}
	ec := newExclusionChecker(mode, root)
	prune(root, ec)
}

func prune(n *html.Node, ec *exclusionChecker) {
	var drop []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if ec.exclude(c) {
			drop = append(drop, c)
			continue
		}
		prune(c, ec)
	}
	for _, c := range drop {
		n.RemoveChild(c)
	}
}

// exclusionChecker decides which elements count as boilerplate for a given
// document and mode.
type exclusionChecker struct {
	mode        ExclusionMode
	body        *html.Node
	wrapper     *html.Node
	densityMemo map[*html.Node]float64
}

func newExclusionChecker(mode ExclusionMode, root *html.Node) *exclusionChecker {
	ec := &exclusionChecker{mode: mode, densityMemo: make(map[*html.Node]float64)}
	ec.body = findElement(root, "body")
	if ec.body == nil {
		ec.body = root
	}
	ec.wrapper = detectWrapper(ec.body)
	return ec
}

// detectWrapper finds a single structural wrapper element, the common
// <body><div id="page">...</div></body> pattern.
func detectWrapper(body *html.Node) *html.Node {
	var structural []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "div", "main":
			structural = append(structural, c)
		case "script", "style", "noscript", "template":
		default:
			return nil
		}
	}
	if len(structural) == 1 {
		return structural[0]
	}
	return nil
}

func (ec *exclusionChecker) exclude(n *html.Node) bool {
	if n.Type != html.ElementNode || ec.mode == ExclusionNone {
		return false
	}
	if ec.excludeSemantic(n) {
		return true
	}
	if ec.mode >= ExclusionStandard && ec.excludeByPattern(n) {
		return true
	}
	if ec.mode >= ExclusionAggressive && ec.excludeByDensity(n) {
		return true
	}
	return false
}

func (ec *exclusionChecker) excludeSemantic(n *html.Node) bool {
	switch n.Data {
	case "nav", "aside":
		return true
	}
	switch getAttr(n, "role") {
	case "navigation", "complementary":
		return true
	case "banner", "contentinfo":
		return ec.topLevel(n)
	}
	// header and footer are boilerplate only at page level; an article
	// keeps its own.
	switch n.Data {
	case "header", "footer":
		return ec.topLevel(n)
	}
	return false
}

// topLevel reports whether n sits directly under body or the page wrapper.
func (ec *exclusionChecker) topLevel(n *html.Node) bool {
	p := n.Parent
	if p == nil {
		return false
	}
	return p == ec.body || (ec.wrapper != nil && p == ec.wrapper)
}

func (ec *exclusionChecker) excludeByPattern(n *html.Node) bool {
	if c := getAttr(n, "class"); c != "" && boilerplatePattern.MatchString(c) {
		return true
	}
	if id := getAttr(n, "id"); id != "" && boilerplatePattern.MatchString(id) {
		return true
	}
	return false
}

// excludeByDensity prunes block containers whose text is mostly link text.
// The link count floor keeps small elements from being swallowed.
func (ec *exclusionChecker) excludeByDensity(n *html.Node) bool {
	switch n.Data {
	case "div", "section", "ul", "ol":
	default:
		return false
	}
	return ec.linkDensity(n) > 0.6 && countLinks(n) >= 4
}

func (ec *exclusionChecker) linkDensity(n *html.Node) float64 {
	if d, ok := ec.densityMemo[n]; ok {
		return d
	}
	total := textLength(n)
	if total == 0 {
		ec.densityMemo[n] = 0
		return 0
	}
	d := float64(linkTextLength(n)) / float64(total)
	ec.densityMemo[n] = d
	return d
}

func textLength(n *html.Node) int {
	if n.Type == html.TextNode {
		return len(strings.TrimSpace(n.Data))
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += textLength(c)
	}
	return total
}

func linkTextLength(n *html.Node) int {
	if n.Type == html.ElementNode && n.Data == "a" {
		return textLength(n)
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += linkTextLength(c)
	}
	return total
}

func countLinks(n *html.Node) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == "a" {
		count = 1
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countLinks(c)
	}
	return count
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
