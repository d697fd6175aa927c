// Package locate finds semantically meaningful regions inside the task-review
// page: section headings, version tabs, the report block, the logs container
// and the copy-patch menu. Every locator is a pure, idempotent query over one
// snapshot: it returns the best candidate or nil, never errors, and caches
// nothing. Disambiguation is done by explicit scoring (candidate list,
// score, pick max) rather than nested conditionals, because the target DOM
// is a moving set of conventions, not a contract.
package locate

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
)

var headingTagPattern = regexp.MustCompile(`^h[1-5]$`)

// SectionByHeadings scans for the first visible heading-like element (h1-h5
// or role=heading) whose normalised text equals one of the labels
// (case-insensitive), and returns the content that follows it: the next
// visible sibling, or the heading's parent when no sibling exists. Sections
// on this page render as heading + content sibling, but the heading wording
// shifts across product iterations, hence the label list.
func SectionByHeadings(scope *html.Node, labels []string) *html.Node {
	if scope == nil || len(labels) == 0 {
		return nil
	}
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[dom.NormLabel(l)] = true
	}

	var heading *html.Node
	for n := range dom.Walk(scope) {
		if !dom.IsVisible(n) {
			continue
		}
		if !headingTagPattern.MatchString(dom.Tag(n)) && dom.Role(n) != "heading" {
			continue
		}
		if want[dom.NormLabel(dom.Text(n))] {
			heading = n
			break
		}
	}
	if heading == nil {
		return nil
	}

	for cur := dom.NextElementSibling(heading); cur != nil; cur = dom.NextElementSibling(cur) {
		if dom.IsVisible(cur) {
			return cur
		}
	}
	return heading.Parent
}

// TaskTitle returns the page's task title: the first visible level-1 (or
// any) heading, else the document <title> truncated before " - ", else
// "Task".
func TaskTitle(root *html.Node) string {
	for _, sel := range []string{"h1", `[role=heading][aria-level=1]`, "[role=heading]"} {
		for _, n := range dom.QueryAll(root, sel) {
			if !dom.IsVisible(n) {
				continue
			}
			if t := strings.TrimSpace(dom.Text(n)); t != "" {
				return t
			}
		}
	}
	if t := documentTitle(root); t != "" {
		if idx := strings.Index(t, " - "); idx > 0 {
			return t[:idx]
		}
		return t
	}
	return "Task"
}

func documentTitle(root *html.Node) string {
	n := dom.Query(root, "title")
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}
