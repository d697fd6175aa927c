package locate

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
)

// triggerLabel is the accessible name of the split-menu trigger.
const triggerLabel = "Open git action menu"

var createPRPattern = regexp.MustCompile(`(?i)\bcreate\s*pr\b`)

func triggerCandidates(scope *html.Node) []*html.Node {
	var out []*html.Node
	for _, btn := range dom.QueryAll(scope, "button") {
		if dom.Attr(btn, "aria-label") == triggerLabel {
			out = append(out, btn)
		}
	}
	return out
}

// TriggerButton finds the split-menu trigger next to "Create PR" in the top
// bar. Candidates are scored by ancestor context: inside a group whose text
// mentions Create PR beats inside a primary-button group beats anything
// else; document order breaks ties.
func TriggerButton(scope *html.Node) *html.Node {
	var best *html.Node
	bestScore := -1
	for _, btn := range triggerCandidates(scope) {
		if !dom.IsVisible(btn) {
			continue
		}
		if s := scoreTrigger(btn); s > bestScore {
			best, bestScore = btn, s
		}
	}
	return best
}

func scoreTrigger(btn *html.Node) int {
	n := btn
	for i := 0; i < 5 && n != nil; i++ {
		if createPRPattern.MatchString(dom.Text(n)) {
			return 2
		}
		if strings.Contains(dom.Attr(n, "class"), "btn-primary") {
			return 1
		}
		n = n.Parent
	}
	return 0
}

// MenuItem is a qualified "Copy patch" entry inside an open popup menu.
type MenuItem struct {
	Node *html.Node
	// X, Y is the click point (box center) when the snapshot carries boxes.
	X, Y     float64
	HasPoint bool
	// Dist is the Manhattan distance between the popup's top-left and the
	// trigger's bottom-left, used to pick among several open poppers.
	Dist float64
}

// PatchMenuItem finds the "Copy patch" item belonging to the git-action
// menu. A popup qualifies only when it also offers a create/view-PR action
// (positive signal) and does not offer split/unified diff switches; those
// mark the diff-view menu, which has a different, undesired "copy" entry.
// Among qualifying popups the one closest to the trigger wins.
func PatchMenuItem(root *html.Node) *MenuItem {
	trigger := TriggerButton(root)
	if trigger == nil {
		if cands := triggerCandidates(root); len(cands) > 0 {
			trigger = cands[0]
		}
	}
	if trigger == nil {
		return nil
	}
	trBox, trOK := dom.Box(trigger)

	var best *MenuItem
	for _, el := range dom.QueryAll(root, "[role=menuitem]") {
		if !dom.IsVisible(el) || !isCopyPatchLabel(el) {
			continue
		}
		wrap := dom.Closest(el, func(n *html.Node) bool {
			return dom.Tag(n) == "div" && dom.HasAttr(n, "data-radix-popper-content-wrapper")
		})
		if wrap == nil || !dom.IsVisible(wrap) {
			continue
		}
		if !qualifiesAsGitMenu(wrap) {
			continue
		}

		item := &MenuItem{Node: el, Dist: math.MaxFloat64}
		if box, ok := dom.Box(el); ok {
			item.X, item.Y = box.Center()
			item.HasPoint = true
		}
		if wrBox, ok := dom.Box(wrap); ok && trOK {
			item.Dist = math.Abs(wrBox.Top-trBox.Bottom) + math.Abs(wrBox.Left-trBox.Left)
		}
		if best == nil || item.Dist < best.Dist {
			best = item
		}
	}
	return best
}

func isCopyPatchLabel(el *html.Node) bool {
	if dom.Attr(el, "aria-label") == "Copy patch" {
		return true
	}
	return strings.Contains(dom.NormLabel(dom.Text(el)), "copy patch")
}

func qualifiesAsGitMenu(wrap *html.Node) bool {
	good, bad := false, false
	for _, item := range dom.QueryAll(wrap, "[role=menuitem], button, a, div") {
		if !dom.IsVisible(item) {
			continue
		}
		t := dom.NormLabel(dom.Text(item))
		switch {
		case t == "create draft pr" || t == "create pr" || t == "view pr":
			good = true
		case strings.Contains(t, "copy git apply"):
			good = true
		}
		if strings.Contains(t, "split diff") || strings.Contains(t, "unified diff") {
			bad = true
		}
	}
	return good && !bad
}
