package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
	"github.com/hazyhaar/recolte/extract"
	"github.com/hazyhaar/recolte/locate"
	"github.com/hazyhaar/recolte/turns"
)

const (
	settleAfterClick = 300 * time.Millisecond
	settleShort      = 150 * time.Millisecond

	logsPollAttempts = 10
	logsPollInterval = 200 * time.Millisecond

	// Report text at or under this length is page chrome (a prompt echo, a
	// status line), not a generated report.
	reportMinChars = 50
)

// Heading labels the page has used for the report and diff sections across
// product iterations.
var (
	reportHeadings = []string{"Report", "Summary", "Run Report", "Task Report"}
	diffHeadings   = []string{"Diffs", "Changes", "Diff Logs", "Patch"}
)

// Options selects what a sweep captures. An empty Sections list defaults
// to report and diffs; logs are opt-in because pulling them flips the
// page's tab state.
type Options struct {
	Sections    []string
	AllTurns    bool
	AllVersions bool
}

func (o *Options) normalize() {
	if len(o.Sections) == 0 {
		o.Sections = []string{SectionReport, SectionDiffs}
	}
}

// Session runs capture sweeps against one page. At most one sweep runs at
// a time; concurrent CaptureSections calls fail fast with
// ErrExportInFlight instead of interleaving clicks on the live page.
type Session struct {
	drv      Driver
	resolver *turns.Resolver
	log      *slog.Logger

	exporting atomic.Bool
}

func NewSession(drv Driver, resolver *turns.Resolver, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{drv: drv, resolver: resolver, log: log}
}

// CaptureSections sweeps the page and returns deduplicated sections plus
// page metadata. Per-section failures degrade to a warning; only snapshot
// and context failures abort the sweep.
func (s *Session) CaptureSections(ctx context.Context, opts Options) ([]Section, Meta, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, Meta{}, ErrExportInFlight
	}
	defer s.exporting.Store(false)
	opts.normalize()

	root, err := s.drv.Snapshot(ctx)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("capture: initial snapshot: %w", err)
	}
	pageURL, err := s.drv.PageURL(ctx)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("capture: page url: %w", err)
	}
	meta := Meta{
		TaskID:     TaskIDFromURL(pageURL),
		TaskTitle:  locate.TaskTitle(root),
		URL:        pageURL,
		CapturedAt: time.Now().UTC(),
	}

	ctxs := turns.Discover(root)
	if len(ctxs) == 0 {
		// No recognizable turns: treat the whole page as one.
		ctxs = []*turns.Context{{Node: root, Nodes: []*html.Node{root}}}
	}
	targets := ctxs
	if !opts.AllTurns {
		vpH := 900.0
		if vp, ok := dom.Viewport(root); ok && vp.Height() > 0 {
			vpH = vp.Height()
		}
		targets = []*turns.Context{turns.ActiveContext(ctxs, vpH)}
	}

	if s.resolver != nil && meta.TaskID != "" {
		for _, tc := range targets {
			s.resolver.Resolve(ctx, meta.TaskID, tc)
		}
	}

	seen := make(map[string]bool)
	var out []Section
	for _, tc := range targets {
		secs := s.sweepTurn(ctx, tc, opts)
		for _, sec := range secs {
			k := dedupeKey(sec)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, sec)
		}
	}
	return out, meta, nil
}

// sweepTurn visits each planned version of one turn, restoring the
// originally active version afterwards so the sweep leaves the page the
// way it found it.
func (s *Session) sweepTurn(ctx context.Context, tc *turns.Context, opts Options) []Section {
	plan := tc.VersionPlan()
	if !opts.AllVersions && len(plan) > 1 {
		plan = s.activeOnly(tc, plan)
	}

	restoreID := 0
	if len(plan) > 1 {
		for _, b := range tc.VersionButtons {
			if b.Active {
				restoreID = b.NodeID
			}
		}
	}

	var out []Section
	for vi, entry := range plan {
		scope := tc
		if !entry.Synthetic {
			if err := s.drv.Click(ctx, entry.NodeID); err != nil {
				s.log.Warn("version click failed", "label", entry.Label, "err", err)
				continue
			}
			s.drv.Settle(ctx, settleAfterClick)
			root, err := s.drv.Snapshot(ctx)
			if err != nil {
				s.log.Warn("snapshot after version click failed", "err", err)
				continue
			}
			scope = s.rescope(root, tc)
		}
		for _, key := range opts.Sections {
			text, err := s.captureSection(ctx, scope, key)
			if err != nil {
				s.log.Warn("section capture failed",
					"key", key, "version", entry.Label, "err", err)
				continue
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			out = append(out, s.buildSection(scope, entry, vi, len(plan), key, text))
		}
	}

	if restoreID != 0 {
		if err := s.drv.Click(ctx, restoreID); err != nil {
			s.log.Warn("restore original version failed", "err", err)
		} else {
			s.drv.Settle(ctx, settleAfterClick)
		}
	}
	return out
}

func (s *Session) activeOnly(tc *turns.Context, plan []turns.VersionEntry) []turns.VersionEntry {
	for _, e := range plan {
		if e.Label == tc.ActiveVersionLabel {
			return []turns.VersionEntry{{Label: e.Label, Synthetic: true}}
		}
	}
	return []turns.VersionEntry{{Label: plan[0].Label, Synthetic: true}}
}

func (s *Session) captureSection(ctx context.Context, scope *turns.Context, key string) (string, error) {
	switch key {
	case SectionReport:
		// A "Report"/"Summary" heading section narrows the block search to
		// the content under the heading when the page renders one.
		nodes := scopeNodes(scope)
		if sec := firstIn(nodes, func(n *html.Node) *html.Node {
			return locate.SectionByHeadings(n, reportHeadings)
		}); sec != nil {
			nodes = append([]*html.Node{sec}, nodes...)
		}
		if block := firstIn(nodes, locate.ReportBlock); block != nil {
			if len(strings.TrimSpace(dom.Text(block))) > reportMinChars {
				return renderReport(block)
			}
		}
		// No substantial report block: salvage the report half of the logs
		// text, under the same length bar.
		raw := rawLogsIn(scope)
		if report := extract.SplitReportFromLogs(raw).Report; len(report) > reportMinChars {
			return report, nil
		}
		return "", nil
	case SectionLogs:
		raw, err := s.captureLogs(ctx, scope)
		if err != nil {
			return "", err
		}
		return extract.SplitReportFromLogs(raw).Logs, nil
	case SectionDiffs:
		text, err := s.capturePatch(ctx, scope)
		if err != nil {
			// The menu path failed; a rendered diff section under a
			// "Diffs"/"Changes" heading is the last resort.
			if sec := firstIn(scopeNodes(scope), func(n *html.Node) *html.Node {
				return locate.SectionByHeadings(n, diffHeadings)
			}); sec != nil {
				if t := strings.TrimSpace(dom.Text(sec)); t != "" {
					return extract.NormalizeDiff(t), nil
				}
			}
			return "", err
		}
		return extract.NormalizeDiff(text), nil
	default:
		return "", fmt.Errorf("capture: unknown section key %q", key)
	}
}

func (s *Session) buildSection(scope *turns.Context, entry turns.VersionEntry, vi, planLen int, key, text string) Section {
	turnLabel := scope.TurnLabel
	if turnLabel == "" {
		turnLabel = fmt.Sprintf("Turn %d", scope.Index+1)
	}
	versionID := scope.VersionID(entry.Label)
	latestVersion := vi == planLen-1
	if versionID != "" && scope.LatestAssistantID != "" {
		latestVersion = versionID == scope.LatestAssistantID
	}
	return Section{
		Key:             key,
		Label:           turnLabel + " – " + entry.Label,
		Text:            text,
		Ver:             verToken(entry.Label),
		TurnID:          scope.TurnID,
		TurnIndex:       scope.Index,
		TurnLabel:       turnLabel,
		VersionID:       versionID,
		VersionLabel:    entry.Label,
		IsLatestTurn:    scope.IsLatestTurn,
		IsLatestVersion: latestVersion,
	}
}

// captureLogs selects the logs tab when one exists, then polls snapshots
// until the container text is non-empty and stable across two polls, at
// most logsPollAttempts times.
func (s *Session) captureLogs(ctx context.Context, tc *turns.Context) (string, error) {
	if tab := firstLogsTab(tc); tab != nil && !tab.Selected {
		if id := dom.NodeID(tab.Node); id != 0 {
			if err := s.drv.Click(ctx, id); err != nil {
				s.log.Warn("logs tab click failed", "err", err)
			} else {
				s.drv.Settle(ctx, settleAfterClick)
			}
		}
	}

	var last string
	for i := 0; i < logsPollAttempts; i++ {
		root, err := s.drv.Snapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("capture: logs snapshot: %w", err)
		}
		scope := s.rescope(root, tc)
		var raw string
		if c := firstIn(scopeNodes(scope), locate.LogsContainer); c != nil {
			raw = extract.LogsRaw(c)
		}
		if raw != "" && raw == last {
			return raw, nil
		}
		last = raw
		if err := s.drv.Settle(ctx, logsPollInterval); err != nil {
			return "", err
		}
	}
	return last, nil
}

func firstLogsTab(tc *turns.Context) *locate.LogsTab {
	for _, n := range scopeNodes(tc) {
		if tab := locate.FindLogsTab(n); tab != nil {
			return tab
		}
	}
	return nil
}

// rescope re-runs discovery on a fresh snapshot and returns the context at
// the same index, carrying the already-resolved metadata over. Falls back
// to a whole-page scope when the turn vanished from the new snapshot.
func (s *Session) rescope(root *html.Node, tc *turns.Context) *turns.Context {
	for _, c := range turns.Discover(root) {
		if c.Index == tc.Index {
			copyMeta(tc, c)
			return c
		}
	}
	fresh := &turns.Context{Node: root, Nodes: []*html.Node{root}, Index: tc.Index}
	copyMeta(tc, fresh)
	return fresh
}

func copyMeta(from, to *turns.Context) {
	to.TurnID = from.TurnID
	to.TurnIndex = from.TurnIndex
	to.TurnLabel = from.TurnLabel
	to.VersionIDs = from.VersionIDs
	to.LatestAssistantID = from.LatestAssistantID
	to.IsLatestTurn = from.IsLatestTurn
	to.VersionIDByLabel = from.VersionIDByLabel
	to.MetaResolved = from.MetaResolved
}

func firstIn(nodes []*html.Node, f func(*html.Node) *html.Node) *html.Node {
	for _, n := range nodes {
		if got := f(n); got != nil {
			return got
		}
	}
	return nil
}

// scopeNodes orders a context's nodes primary-first so fuzzy locator
// fallbacks try the response container before the prompt bubble.
func scopeNodes(tc *turns.Context) []*html.Node {
	if tc.Node == nil {
		return tc.Nodes
	}
	out := []*html.Node{tc.Node}
	for _, n := range tc.Nodes {
		if n != tc.Node {
			out = append(out, n)
		}
	}
	return out
}

func rawLogsIn(scope *turns.Context) string {
	if c := firstIn(scopeNodes(scope), locate.LogsContainer); c != nil {
		return extract.LogsRaw(c)
	}
	return ""
}

// renderReport serializes the report block with the snapshot annotations
// removed; the artifact carries page markup, not sweep markup. The strip
// works on a copy because later captures still address the live subtree by
// its annotated ids.
func renderReport(n *html.Node) (string, error) {
	clone := cloneTree(n)
	stripAnnotations(clone)
	var buf bytes.Buffer
	if err := html.Render(&buf, clone); err != nil {
		return "", fmt.Errorf("capture: render report html: %w", err)
	}
	return buf.String(), nil
}

func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data, Namespace: n.Namespace}
	c.Attr = append([]html.Attribute(nil), n.Attr...)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneTree(ch))
	}
	return c
}

func stripAnnotations(n *html.Node) {
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if !strings.HasPrefix(a.Key, "data-rec-") {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		stripAnnotations(ch)
	}
}

// TaskIDFromURL pulls the task id out of a task page URL: the path segment
// after "tasks", else the last path segment.
func TaskIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if seg == "tasks" && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1]
		}
	}
	if len(segs) > 0 && segs[len(segs)-1] != "" {
		return segs[len(segs)-1]
	}
	return ""
}
