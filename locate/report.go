package locate

import (
	"regexp"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
)

var summaryStartPattern = regexp.MustCompile(`(?i)^summary\b`)

// ReportBlock finds the generated report container. Three tiers, each a
// scored pick over explicit candidates:
//
//  1. the exact current styling (markdown + prose + markdown-new-styling)
//     starting with "Summary"
//  2. any markdown/prose block starting with "Summary"
//  3. the largest visible block of any kind
//
// Within a tier the longest rendered text wins. The exact classes are not a
// stable contract, so matching degrades rather than failing.
func ReportBlock(scope *html.Node) *html.Node {
	if scope == nil {
		return nil
	}

	if best := pickLongest(summaryBlocks(scope, "div.markdown.prose.markdown-new-styling")); best != nil {
		return best
	}
	if best := pickLongest(summaryBlocks(scope, ".markdown.prose, .prose.markdown")); best != nil {
		return best
	}
	return pickLongest(visibleOnly(dom.QueryAll(scope, ".markdown, .prose, div, section, article")))
}

func summaryBlocks(scope *html.Node, selector string) []*html.Node {
	var out []*html.Node
	for _, n := range dom.QueryAll(scope, selector) {
		if dom.IsVisible(n) && startsWithSummary(n) {
			out = append(out, n)
		}
	}
	return out
}

// startsWithSummary checks the first paragraph/heading child, falling back
// to the block's own rendered text.
func startsWithSummary(n *html.Node) bool {
	t := ""
	if first := dom.Query(n, "p, strong, h1, h2"); first != nil {
		t = dom.Text(first)
	}
	if t == "" {
		t = dom.Text(n)
	}
	return summaryStartPattern.MatchString(t)
}

// pickLongest scores candidates by rendered text length and picks the max.
func pickLongest(nodes []*html.Node) *html.Node {
	var best *html.Node
	bestLen := -1
	for _, n := range nodes {
		if l := len(dom.Text(n)); l > bestLen {
			best, bestLen = n, l
		}
	}
	return best
}

func visibleOnly(nodes []*html.Node) []*html.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if dom.IsVisible(n) {
			out = append(out, n)
		}
	}
	return out
}
