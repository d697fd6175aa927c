package dom

import (
	"iter"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Walk yields every element node under root in document (pre-order) order,
// root included when it is an element. Shadow-root contents serialised as
// declarative <template shadowrootmode> children are traversed in place, so
// locators see one flat document the way the rendered page composes it.
// The traversal is lazy: breaking out of the range stops descent.
func Walk(root *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if root == nil {
			return
		}
		walkNode(root, yield)
	}
}

func walkNode(n *html.Node, yield func(*html.Node) bool) bool {
	if n.Type == html.ElementNode {
		if !yield(n) {
			return false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkNode(c, yield) {
			return false
		}
	}
	return true
}

// Children returns the element children of n in order. Shadow-root template
// wrappers are transparent: a child <template shadowrootmode> contributes its
// own element children in its place, matching how the composed tree renders.
func Children(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if isShadowTemplate(c) {
			out = append(out, Children(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// NextElementSibling returns the next sibling element, skipping text nodes.
func NextElementSibling(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// FindByID locates the node carrying the given snapshot id.
func FindByID(root *html.Node, id int) *html.Node {
	if id <= 0 {
		return nil
	}
	for n := range Walk(root) {
		if NodeID(n) == id {
			return n
		}
	}
	return nil
}

// Closest walks ancestors from n (inclusive) until pred matches.
func Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && pred(cur) {
			return cur
		}
	}
	return nil
}

func isShadowTemplate(n *html.Node) bool {
	return n.DataAtom == atom.Template && HasAttr(n, "shadowrootmode")
}
