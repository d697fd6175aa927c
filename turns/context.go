// Package turns maps visible page state to logical conversation turns and
// their versions. Discovery scans one snapshot for turn containers (prompt
// bubble and/or "Version N" buttons), selects the active one by viewport
// proximity, and reconciles each context against a fetched backend turn
// tree to assign stable identifiers. Contexts are created fresh on every
// scan and never outlive the snapshot they came from.
package turns

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
	"github.com/hazyhaar/recolte/locate"
)

// turnSignalPattern marks prompt bubbles: a NODE: prefix or the keywords a
// task prompt opens with.
var turnSignalPattern = regexp.MustCompile(`(?i)(^node:|\b(goal:|scope:|turn \d+|test run))`)

// fingerprintMax caps the normalized prompt fingerprint. Backend prompt
// text and DOM prompt text truncate each other at different points, so the
// match is prefix containment in either direction over this window.
const fingerprintMax = 200

// VersionButton is one clickable "Version N" element inside a turn.
type VersionButton struct {
	Node   *html.Node
	NodeID int
	Label  string
	Active bool
}

// Context is one logical turn as rendered in the page. Fields below Meta
// are filled by Resolver.Resolve when backend metadata is available;
// otherwise the DOM-derived Index is the only source of ordering truth.
type Context struct {
	// Nodes are the consecutive conversation-column children making up the
	// turn, in DOM order. Node is the primary extraction scope: the child
	// holding the version buttons when there is one, else the first.
	Node  *html.Node
	Nodes []*html.Node

	Index              int
	PromptText         string
	Instructions       string
	TurnKey            string
	VersionButtons     []VersionButton
	ActiveVersionLabel string
	WarningText        string

	// Metadata enrichment (MetaResolved reports whether it happened).
	TurnID            string
	TurnIndex         int
	TurnLabel         string
	VersionIDs        []string
	LatestAssistantID string
	IsLatestTurn      bool
	VersionIDByLabel  map[string]string
	MetaResolved      bool
}

// Fingerprint normalizes prompt text for backend matching: whitespace
// collapsed, lower-cased, truncated to fingerprintMax.
func Fingerprint(s string) string {
	n := dom.NormLabel(s)
	if len(n) > fingerprintMax {
		n = n[:fingerprintMax]
	}
	return n
}

// Discover scans a snapshot for turn contexts in DOM order. Anchors are
// version buttons and prompt bubbles; the conversation column is their
// deepest common ancestor, and its children are grouped into turns, a new
// group starting at every child that carries a prompt bubble.
func Discover(root *html.Node) []*Context {
	buttons := versionButtonsIn(root)
	prompts := collectPromptBubbles(root)

	var anchors []*html.Node
	for _, b := range buttons {
		anchors = append(anchors, b.Node)
	}
	anchors = append(anchors, prompts...)
	if len(anchors) == 0 {
		return nil
	}

	column := commonAncestor(anchors)
	if column == nil {
		return nil
	}

	groups := groupColumnChildren(column, anchors, prompts)
	if len(groups) == 0 {
		// Everything under one element with no divisible children: the
		// column itself is the single turn.
		groups = [][]*html.Node{{column}}
	}

	var out []*Context
	for i, group := range groups {
		out = append(out, buildContext(i, group))
	}
	return out
}

func isActiveButton(n *html.Node) bool {
	if dom.Attr(n, "aria-selected") == "true" || dom.Attr(n, "aria-current") == "true" {
		return true
	}
	return dom.HasClass(n, "text-token-text-primary")
}

// collectPromptBubbles finds minimal visible elements whose rendered text
// opens with a turn signal. Minimal: no child matches on its own, so the
// bubble is the innermost wrapper of the prompt, not the whole page.
func collectPromptBubbles(root *html.Node) []*html.Node {
	var out []*html.Node
	var visit func(n *html.Node) bool // returns true when subtree matched
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && !dom.IsVisible(n) {
			return false
		}
		childMatched := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				childMatched = true
			}
		}
		if childMatched {
			return true
		}
		if n.Type != html.ElementNode {
			return false
		}
		switch dom.Tag(n) {
		case "div", "p", "blockquote", "section", "article", "span":
		default:
			return false
		}
		t := dom.Text(n)
		if t == "" || !turnSignalPattern.MatchString(t) {
			return false
		}
		out = append(out, n)
		return true
	}
	visit(root)
	return out
}

func commonAncestor(nodes []*html.Node) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	path := ancestorPath(nodes[0])
	depth := len(path)
	for _, n := range nodes[1:] {
		p := ancestorPath(n)
		max := depth
		if len(p) < max {
			max = len(p)
		}
		i := 0
		for i < max && path[i] == p[i] {
			i++
		}
		depth = i
	}
	if depth == 0 {
		return nil
	}
	anc := path[depth-1]
	if anc.Type != html.ElementNode {
		return nil
	}
	// A single anchor is its own deepest common ancestor. The turn's
	// response lives in sibling subtrees, so climb until the ancestor
	// holds meaningfully more text than the anchor itself.
	if len(nodes) == 1 {
		base := len(dom.Text(anc))
		for cur := anc.Parent; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
			tag := dom.Tag(cur)
			if tag == "body" || tag == "html" {
				break
			}
			if len(dom.Text(cur)) > base+base/2 {
				return cur
			}
		}
		if anc.Parent != nil && anc.Parent.Type == html.ElementNode {
			return anc.Parent
		}
	}
	return anc
}

// ancestorPath returns root→…→n.
func ancestorPath(n *html.Node) []*html.Node {
	var rev []*html.Node
	for cur := n; cur != nil; cur = cur.Parent {
		rev = append(rev, cur)
	}
	out := make([]*html.Node, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// groupColumnChildren partitions the column's visible children into turn
// groups. Children without anchors attach to the current group; a child
// containing a prompt bubble starts a new one (except the very first).
func groupColumnChildren(column *html.Node, anchors, prompts []*html.Node) [][]*html.Node {
	inSet := func(set []*html.Node, n *html.Node) bool {
		for _, s := range set {
			if contains(n, s) {
				return true
			}
		}
		return false
	}

	var groups [][]*html.Node
	var cur []*html.Node
	for _, child := range dom.VisibleChildren(column) {
		if !inSet(anchors, child) {
			if len(cur) > 0 {
				cur = append(cur, child)
			}
			continue
		}
		if inSet(prompts, child) && len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, child)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// contains reports whether inner is root or a descendant of root.
func contains(root, inner *html.Node) bool {
	for cur := inner; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

func buildContext(index int, group []*html.Node) *Context {
	c := &Context{Index: index, Nodes: group}

	for _, n := range group {
		c.VersionButtons = append(c.VersionButtons, versionButtonsIn(n)...)
	}

	// Primary scope: the group child holding the version buttons.
	c.Node = group[0]
	if len(c.VersionButtons) > 0 {
		for _, n := range group {
			if contains(n, c.VersionButtons[0].Node) {
				c.Node = n
				break
			}
		}
	}

	for _, n := range group {
		if p := firstPromptIn(n); p != "" {
			c.PromptText = p
			break
		}
	}
	if c.PromptText != "" {
		if _, rest, found := strings.Cut(c.PromptText, "\n"); found {
			c.Instructions = strings.TrimSpace(rest)
		}
	}
	c.TurnKey = Fingerprint(c.PromptText)

	for _, b := range c.VersionButtons {
		if b.Active {
			c.ActiveVersionLabel = b.Label
			break
		}
	}
	if c.ActiveVersionLabel == "" && c.Node != nil {
		c.ActiveVersionLabel = locate.ActiveVersionLabel(c.Node)
	}
	if c.ActiveVersionLabel == "" && len(c.VersionButtons) > 0 {
		c.ActiveVersionLabel = c.VersionButtons[0].Label
	}

	for _, n := range group {
		if w := warningTextIn(n); w != "" {
			c.WarningText = w
			break
		}
	}
	return c
}

// versionButtonsIn wraps the tab locator: when the version switcher header
// is present only its buttons count, stray "Version N" text elsewhere in
// the turn does not.
func versionButtonsIn(scope *html.Node) []VersionButton {
	var out []VersionButton
	for _, t := range locate.VersionTabs(scope) {
		out = append(out, VersionButton{
			Node:   t.Node,
			NodeID: dom.NodeID(t.Node),
			Label:  t.Label,
			Active: isActiveButton(t.Node),
		})
	}
	return out
}

func firstPromptIn(scope *html.Node) string {
	for _, p := range collectPromptBubbles(scope) {
		if t := dom.Text(p); t != "" {
			return t
		}
	}
	return ""
}

func warningTextIn(scope *html.Node) string {
	for n := range dom.Walk(scope) {
		if !dom.IsVisible(n) {
			continue
		}
		if dom.Role(n) == "alert" || strings.Contains(dom.Attr(n, "class"), "warning") {
			return strings.TrimSpace(dom.Text(n))
		}
	}
	return ""
}
