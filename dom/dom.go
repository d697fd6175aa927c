// Package dom is the leaf utility layer for page heuristics. It operates on
// annotated HTML snapshots parsed with golang.org/x/net/html: the browser
// layer stamps every live element with a numeric node id, visibility verdict
// and bounding box before serialising, so all higher-level locators are pure
// functions of a parsed tree and run identically against synthetic trees in
// tests.
//
// Annotation attributes:
//
//	data-rec-n    unique numeric id, assigned once and kept for as long as
//	              the element stays in the live DOM
//	data-rec-hid  "1" when computed style or layout hides the element
//	data-rec-box  "top,left,bottom,right" viewport-relative, rounded
//	data-rec-vp   "width,height" on the root element only
package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Attribute names written by the snapshot annotation script.
const (
	AttrID       = "data-rec-n"
	AttrHidden   = "data-rec-hid"
	AttrBox      = "data-rec-box"
	AttrViewport = "data-rec-vp"
)

// Rect is a viewport-relative bounding box.
type Rect struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Width returns the horizontal extent of the rect.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of the rect.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// CenterY returns the vertical center of the rect.
func (r Rect) CenterY() float64 { return r.Top + r.Height()/2 }

// Center returns the center point of the rect.
func (r Rect) Center() (x, y float64) {
	return r.Left + r.Width()/2, r.Top + r.Height()/2
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present at all.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// NodeID returns the snapshot node id, or 0 when the node is unannotated.
// Ids start at 1, so 0 is a safe sentinel.
func NodeID(n *html.Node) int {
	v, err := strconv.Atoi(Attr(n, AttrID))
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// Box returns the annotated bounding box of the node.
func Box(n *html.Node) (Rect, bool) {
	return parseRect(Attr(n, AttrBox))
}

// Viewport returns the annotated viewport size found on the root element of
// the snapshot (searched downward from root, first hit wins).
func Viewport(root *html.Node) (Rect, bool) {
	for n := range Walk(root) {
		if v := Attr(n, AttrViewport); v != "" {
			parts := strings.Split(v, ",")
			if len(parts) != 2 {
				return Rect{}, false
			}
			w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errW != nil || errH != nil {
				return Rect{}, false
			}
			return Rect{Top: 0, Left: 0, Bottom: h, Right: w}, true
		}
	}
	return Rect{}, false
}

func parseRect(s string) (Rect, bool) {
	if s == "" {
		return Rect{}, false
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, false
		}
		vals[i] = v
	}
	return Rect{Top: vals[0], Left: vals[1], Bottom: vals[2], Right: vals[3]}, true
}

// ClassList returns the class attribute split on whitespace.
func ClassList(n *html.Node) []string {
	c := Attr(n, "class")
	if c == "" {
		return nil
	}
	return strings.Fields(c)
}

// HasClass reports whether the node carries the given class.
func HasClass(n *html.Node, class string) bool {
	for _, c := range ClassList(n) {
		if c == class {
			return true
		}
	}
	return false
}

// Role returns the ARIA role attribute.
func Role(n *html.Node) string { return Attr(n, "role") }

// Tag returns the lower-case tag name of an element node, or "".
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Parse parses an HTML snapshot into a document tree. Thin wrapper kept so
// callers do not import x/net/html just to parse.
func Parse(src string) (*html.Node, error) {
	return html.Parse(strings.NewReader(src))
}
