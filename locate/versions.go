package locate

import (
	"regexp"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
)

// headerBarSelector is the page's current version-switcher container. Not a
// stable contract; the full-document walk below is the safety net.
const headerBarSelector = "div.border-token-border-default.flex.items-center.justify-between"

var versionLabelPattern = regexp.MustCompile(`(?i)^version\s*\d+$`)

// Tab is one clickable "Version N" element.
type Tab struct {
	Node  *html.Node
	Label string
}

// VersionTabs collects the clickable version tabs under scope, preferring
// buttons inside the known header bar and falling back to a full walk over
// button/tab/option roles. Order is DOM order, never a numeric sort of the
// labels; the page decides presentation order.
func VersionTabs(scope *html.Node) []Tab {
	if scope == nil {
		return nil
	}
	var tabs []Tab
	consider := func(n *html.Node) {
		if n == nil || !dom.IsVisible(n) {
			return
		}
		label := dom.Text(n)
		if !versionLabelPattern.MatchString(label) {
			return
		}
		tabs = append(tabs, Tab{Node: n, Label: label})
	}

	if header := dom.Query(scope, headerBarSelector); header != nil {
		for _, btn := range dom.QueryAll(header, "button") {
			consider(btn)
		}
		if len(tabs) > 0 {
			return tabs
		}
	}

	for n := range dom.Walk(scope) {
		role := dom.Role(n)
		if role != "tab" && role != "option" && dom.Tag(n) != "button" {
			continue
		}
		consider(n)
	}
	return tabs
}

// ActiveVersionLabel reports which version the page currently displays:
// the aria-selected tab or aria-current option wins, then a highlighted
// tab, then the first tab. Empty when the page shows no versions.
func ActiveVersionLabel(scope *html.Node) string {
	if active := dom.Query(scope, `[aria-selected=true][role=tab], [aria-current=true][role=option]`); active != nil {
		return dom.Text(active)
	}
	tabs := VersionTabs(scope)
	if len(tabs) == 0 {
		return ""
	}
	for _, t := range tabs {
		if dom.HasClass(t.Node, "text-token-text-primary") {
			return t.Label
		}
	}
	return tabs[0].Label
}
