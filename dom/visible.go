package dom

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Inline style values that hide an element without the annotation script
// having to say so. Mirrors what the browsers compute for the common cases;
// anything subtler is covered by the data-rec-hid verdict.
var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0(?:[^.0-9]|$)`),
}

var fixedStylePattern = regexp.MustCompile(`(?i)position\s*:\s*fixed`)

// IsVisible reports whether the node would be rendered. It fails closed:
// nil nodes, non-elements, hidden/aria-hidden markers, hiding inline styles
// and the annotation verdict all return false. When a bounding box is
// annotated, a zero-area box hides the element unless it is fixed-positioned.
// Never panics, for any input.
func IsVisible(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if HasAttr(n, "hidden") {
		return false
	}
	if strings.EqualFold(Attr(n, "aria-hidden"), "true") {
		return false
	}
	if Attr(n, AttrHidden) == "1" {
		return false
	}
	style := Attr(n, "style")
	if style != "" {
		for _, pat := range hiddenStylePatterns {
			if pat.MatchString(style) {
				return false
			}
		}
	}
	if box, ok := Box(n); ok {
		if box.Width() <= 0 && box.Height() <= 0 && !isFixed(n, style) {
			return false
		}
	}
	return true
}

func isFixed(n *html.Node, style string) bool {
	return style != "" && fixedStylePattern.MatchString(style)
}

// VisibleChildren returns the visible element children of n (shadow
// templates flattened, see Children).
func VisibleChildren(n *html.Node) []*html.Node {
	kids := Children(n)
	out := kids[:0:0]
	for _, k := range kids {
		if IsVisible(k) {
			out = append(out, k)
		}
	}
	return out
}
