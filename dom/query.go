package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// QueryAll returns all nodes under scope matching a CSS selector subset:
//
//   - tag: "button", "div"
//   - .class chains: ".markdown.prose", "div.flex.items-center"
//   - #id: "#main"
//   - [attr] / [attr=val]: "[role=tab]", "button[aria-haspopup=menu]"
//   - descendant combinator: "div.header button"
//   - selector lists: "button, [role=tab], a"
//
// Matches come back in document order. Nothing fancier is needed: the target
// page is located by heuristics, not by deep selector gymnastics.
func QueryAll(scope *html.Node, selector string) []*html.Node {
	if scope == nil {
		return nil
	}
	var out []*html.Node
	seen := map[*html.Node]bool{}
	for _, alt := range strings.Split(selector, ",") {
		for _, n := range queryOne(scope, strings.TrimSpace(alt)) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	if len(out) > 1 {
		out = documentOrder(scope, out)
	}
	return out
}

// Query returns the first match in document order, or nil.
func Query(scope *html.Node, selector string) *html.Node {
	all := QueryAll(scope, selector)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func queryOne(scope *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}
	matches := matchSimple(scope, parts[0])
	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchSimple(parent, parts[i])...)
		}
		matches = next
	}
	return matches
}

func matchSimple(scope *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	for n := range Walk(scope) {
		if n != scope && m.matches(n) {
			results = append(results, n)
		}
	}
	return results
}

type attrMatch struct {
	key string
	val string // empty = presence check
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

// parseSimpleSelector parses "tag.class1.class2", "#id",
// "tag[attr=val][attr2]".
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	for {
		idx := strings.IndexByte(sel, '[')
		if idx < 0 {
			break
		}
		end := strings.IndexByte(sel[idx:], ']')
		if end < 0 {
			sel = sel[:idx]
			break
		}
		attrPart := sel[idx+1 : idx+end]
		sel = sel[:idx] + sel[idx+end+1:]
		var m attrMatch
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			m.key = attrPart[:eqIdx]
			m.val = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			m.key = attrPart
		}
		s.attrs = append(s.attrs, m)
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		rest := sel[idx+1:]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			s.id = rest[:dot]
			sel = sel[:idx] + rest[dot:]
		} else {
			s.id = rest
			sel = sel[:idx]
		}
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		for _, c := range strings.Split(sel[idx+1:], ".") {
			if c != "" {
				s.classes = append(s.classes, c)
			}
		}
		sel = sel[:idx]
	}

	s.tag = strings.ToLower(sel)
	return s
}

func (s simpleSelector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && s.tag != "*" && Tag(n) != s.tag {
		return false
	}
	if s.id != "" && Attr(n, "id") != s.id {
		return false
	}
	for _, want := range s.classes {
		if !HasClass(n, want) {
			return false
		}
	}
	for _, m := range s.attrs {
		if m.val != "" {
			if Attr(n, m.key) != m.val {
				return false
			}
		} else if !HasAttr(n, m.key) {
			return false
		}
	}
	return true
}

// documentOrder sorts nodes by pre-order position under scope.
func documentOrder(scope *html.Node, nodes []*html.Node) []*html.Node {
	pos := make(map[*html.Node]int, len(nodes))
	want := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		want[n] = true
	}
	i := 0
	for n := range Walk(scope) {
		if want[n] {
			pos[n] = i
			i++
			if i == len(nodes) {
				break
			}
		}
	}
	ordered := make([]*html.Node, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(a, b int) bool { return pos[ordered[a]] < pos[ordered[b]] })
	return ordered
}
