package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tags that break lines the way a rendered page does. Everything else is
// treated as inline.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true,
	atom.Blockquote: true, atom.Div: true, atom.Dl: true, atom.Dd: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figure: true,
	atom.Figcaption: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true,
}

// Text approximates the rendered text of a subtree: invisible elements are
// skipped, block elements and <br> introduce line breaks, inline whitespace
// collapses, <pre> content is kept verbatim. This is the "rendered text"
// every extractor works from, the closest a static snapshot gets to what the
// page paints.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	writeText(&sb, n, false)
	return trimLines(sb.String())
}

func writeText(sb *strings.Builder, n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			sb.WriteString(n.Data)
			return
		}
		t := collapseSpace(n.Data)
		if t == "" {
			return
		}
		if needsSpace(sb, t) {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimLeft(t, " "))
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return
	case atom.Br:
		sb.WriteByte('\n')
		return
	}
	if !IsVisible(n) {
		return
	}

	block := blockAtoms[n.DataAtom]
	if block {
		breakLine(sb)
	}
	childPre := pre || n.DataAtom == atom.Pre
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c, childPre)
	}
	if block {
		breakLine(sb)
	}
}

func breakLine(sb *strings.Builder) {
	s := sb.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		sb.WriteByte('\n')
	}
}

func needsSpace(sb *strings.Builder, next string) bool {
	s := sb.String()
	if s == "" || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, " ") {
		return false
	}
	return !strings.HasPrefix(next, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// trimLines strips trailing spaces per line and outer blank lines.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// NormLabel collapses all whitespace to single spaces, trims and lower-cases.
// Used wherever UI labels are compared.
func NormLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
