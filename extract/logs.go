package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
)

// tailThreshold is the minimum rendered length the transcript part of a logs
// container must have before the structural path trusts it. Below that, the
// untouched raw text of the root is safer.
const tailThreshold = 200

// LogsRaw extracts the log transcript from a located logs container.
//
// It prefers a structural read: a breadth-first search for an inner
// container whose first three visible children read like the task header
// (prompt echo, crumbs, environment setup); everything after those three
// children is the payload, provided it exceeds tailThreshold characters.
// Any stacked block with four or more visible children is the secondary
// anchor. When neither yields enough, the raw rendered text of the root
// comes back unchanged.
func LogsRaw(root *html.Node) string {
	if root == nil {
		return ""
	}
	raw := dom.Text(root)

	inner := pickHeaderContainer(root)
	if inner == nil {
		inner = pickStackedContainer(root, 4)
	}
	if inner != nil {
		kids := dom.VisibleChildren(inner)
		if len(kids) >= 3 {
			var parts []string
			for _, ch := range kids[3:] {
				parts = append(parts, dom.Text(ch))
			}
			kept := strings.Join(parts, "\n")
			if len(kept) > tailThreshold {
				return kept
			}
		}
	}
	return raw
}

// pickHeaderContainer finds, breadth-first, a visible container whose first
// three visible children concatenate into a header-block signature.
func pickHeaderContainer(root *html.Node) *html.Node {
	queue := []*html.Node{root}
	for len(queue) > 0 {
		el := queue[0]
		queue = queue[1:]
		if !dom.IsVisible(el) {
			continue
		}
		kids := dom.VisibleChildren(el)
		if len(kids) >= 3 {
			var first3 []string
			for _, k := range kids[:3] {
				first3 = append(first3, dom.Text(k))
			}
			if LooksLikeHeaderBlock(strings.Join(first3, "\n")) {
				return el
			}
		}
		queue = append(queue, kids...)
	}
	return nil
}

// pickStackedContainer finds, breadth-first, the first visible container
// with at least minKids visible children.
func pickStackedContainer(root *html.Node, minKids int) *html.Node {
	queue := []*html.Node{root}
	for len(queue) > 0 {
		el := queue[0]
		queue = queue[1:]
		if !dom.IsVisible(el) {
			continue
		}
		kids := dom.VisibleChildren(el)
		if len(kids) >= minKids {
			return el
		}
		queue = append(queue, kids...)
	}
	return nil
}
