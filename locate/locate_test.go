package locate

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/recolte/dom"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := dom.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return root
}

func TestVersionTabs_DOMOrderNotNumeric(t *testing.T) {
	// WHAT: tabs come back in DOM order even when labels are non-monotonic.
	// WHY: the page decides presentation order; parsing the numbers would
	// silently reorder captures.
	root := parse(t, `<div>
		<button>Version 2</button>
		<button>Version 1</button>
		<span role="tab">Version 10</span>
	</div>`)
	tabs := VersionTabs(root)
	var labels []string
	for _, tab := range tabs {
		labels = append(labels, tab.Label)
	}
	want := "Version 2|Version 1|Version 10"
	if got := strings.Join(labels, "|"); got != want {
		t.Errorf("tabs = %s, want %s", got, want)
	}
}

func TestVersionTabs_HeaderBarPreferred(t *testing.T) {
	root := parse(t, `<div>
		<div class="border-token-border-default flex items-center justify-between">
			<button>Version 1</button>
		</div>
		<button>Version 99</button>
	</div>`)
	tabs := VersionTabs(root)
	if len(tabs) != 1 || tabs[0].Label != "Version 1" {
		t.Errorf("tabs = %+v, want only the header-bar tab", tabs)
	}
}

func TestVersionTabs_SkipsNonMatching(t *testing.T) {
	root := parse(t, `<div>
		<button>Version one</button>
		<button hidden>Version 3</button>
		<p>Version 4</p>
	</div>`)
	if tabs := VersionTabs(root); len(tabs) != 0 {
		t.Errorf("tabs = %+v, want none", tabs)
	}
}

func TestActiveVersionLabel(t *testing.T) {
	root := parse(t, `<div>
		<button role="tab" aria-selected="true">Version 2</button>
		<button role="tab">Version 1</button>
	</div>`)
	if got := ActiveVersionLabel(root); got != "Version 2" {
		t.Errorf("active = %q, want Version 2", got)
	}
}

func TestSectionByHeadings_NextVisibleSibling(t *testing.T) {
	root := parse(t, `<section>
		<h3>Run Report</h3>
		<div hidden>stale</div>
		<div id="content">the report body</div>
	</section>`)
	n := SectionByHeadings(root, []string{"Report", "Run Report"})
	if n == nil || dom.Attr(n, "id") != "content" {
		t.Errorf("section = %v, want #content", n)
	}
}

func TestSectionByHeadings_ParentFallback(t *testing.T) {
	root := parse(t, `<div id="wrap"><h2>Diffs</h2></div>`)
	n := SectionByHeadings(root, []string{"Diffs"})
	if n == nil || dom.Attr(n, "id") != "wrap" {
		t.Errorf("section = %v, want parent #wrap", n)
	}
}

func TestSectionByHeadings_NotFound(t *testing.T) {
	root := parse(t, `<div><h2>Other</h2><p>x</p></div>`)
	if n := SectionByHeadings(root, []string{"Report"}); n != nil {
		t.Errorf("section = %v, want nil", n)
	}
}

func TestReportBlock_ExactStylingWins(t *testing.T) {
	root := parse(t, `<div>
		<div id="generic" class="markdown prose"><p>Summary</p><p>short</p></div>
		<div id="exact" class="markdown prose markdown-new-styling"><p>Summary</p><p>the full generated report text</p></div>
	</div>`)
	n := ReportBlock(root)
	if n == nil || dom.Attr(n, "id") != "exact" {
		t.Errorf("report = %v, want #exact", n)
	}
}

func TestReportBlock_TieBreakByLength(t *testing.T) {
	root := parse(t, `<div>
		<div id="short" class="markdown prose markdown-new-styling"><p>Summary</p></div>
		<div id="long" class="markdown prose markdown-new-styling"><p>Summary</p><p>much longer report body here</p></div>
	</div>`)
	n := ReportBlock(root)
	if n == nil || dom.Attr(n, "id") != "long" {
		t.Errorf("report = %v, want #long", n)
	}
}

func TestReportBlock_RequiresSummaryStart(t *testing.T) {
	// Only tier 3 (largest block of any kind) may return a non-Summary
	// block; markdown/prose candidates must start with Summary.
	root := parse(t, `<body>
		<div class="markdown prose"><p>Changelog</p></div>
		<article id="big">` + strings.Repeat("<p>filler text</p>", 20) + `</article>
	</body>`)
	n := ReportBlock(root)
	if n == nil {
		t.Fatal("no block at all")
	}
	if dom.HasClass(n, "markdown") {
		t.Error("non-Summary markdown block won over tier-3 fallback")
	}
}

func TestLogsContainer_Structural(t *testing.T) {
	tail := strings.Repeat("<div>log output line that is reasonably long</div>", 8)
	root := parse(t, `<main>
		<div id="logsbox">
			<div>Implement the feature</div>
			<div>Version 1</div>
			<div>Environment setup</div>
			`+tail+`
		</div>
	</main>`)
	n := LogsContainer(root)
	if n == nil || dom.Attr(n, "id") != "logsbox" {
		t.Errorf("logs container = %v, want #logsbox", n)
	}
}

func TestLogsContainer_TabPanelFallback(t *testing.T) {
	root := parse(t, `<main>
		<div role="tabpanel" id="p1"><pre>short</pre></div>
		<div role="tabpanel" id="p2"><pre>a much longer transcript body</pre></div>
	</main>`)
	n := LogsContainer(root)
	if n == nil || dom.Attr(n, "id") != "p2" {
		t.Errorf("logs container = %v, want longest tabpanel #p2", n)
	}
}

func TestFindLogsTab(t *testing.T) {
	root := parse(t, `<div>
		<button role="tab" aria-selected="false">Logs</button>
	</div>`)
	tab := FindLogsTab(root)
	if tab == nil {
		t.Fatal("logs tab not found")
	}
	if tab.Selected {
		t.Error("tab reported selected")
	}
	if noTab := FindLogsTab(parse(t, `<div><button>Diff</button></div>`)); noTab != nil {
		t.Errorf("phantom logs tab: %+v", noTab)
	}
}

func TestTaskTitle(t *testing.T) {
	root := parse(t, `<html><head><title>ignored - app</title></head><body><h1>Fix the parser</h1></body></html>`)
	if got := TaskTitle(root); got != "Fix the parser" {
		t.Errorf("title = %q", got)
	}
	root = parse(t, `<html><head><title>Fallback title - app</title></head><body></body></html>`)
	if got := TaskTitle(root); got != "Fallback title" {
		t.Errorf("title = %q", got)
	}
}

const patchMenuPage = `<body>
	<div class="btn-primary"><span>Create PR</span>
		<button aria-label="Open git action menu" data-rec-n="5" data-rec-box="10,600,40,630"></button>
	</div>
	<div data-radix-popper-content-wrapper="" data-rec-box="45,600,200,760">
		<div role="menuitem">Create draft PR</div>
		<div role="menuitem" aria-label="Copy patch" data-rec-n="9" data-rec-box="90,604,120,756">Copy patch</div>
	</div>
	<div data-radix-popper-content-wrapper="" data-rec-box="300,100,400,260">
		<div role="menuitem">Split diff</div>
		<div role="menuitem">Copy patch</div>
	</div>
</body>`

func TestPatchMenuItem_QualifiesCorrectPopper(t *testing.T) {
	// WHAT: the Copy patch item must come from the popper that also offers
	// Create PR, never from the split/unified diff menu.
	// WHY: both menus contain a "Copy patch"-ish entry; the diff-view one
	// copies the wrong thing.
	root := parse(t, patchMenuPage)
	item := PatchMenuItem(root)
	if item == nil {
		t.Fatal("no menu item found")
	}
	if dom.NodeID(item.Node) != 9 {
		t.Errorf("picked node %d, want 9", dom.NodeID(item.Node))
	}
	if !item.HasPoint {
		t.Error("click point missing despite annotated box")
	}
	if item.X != 680 || item.Y != 105 {
		t.Errorf("click point = (%v,%v), want (680,105)", item.X, item.Y)
	}
}

func TestPatchMenuItem_NoQualifyingPopper(t *testing.T) {
	root := parse(t, `<body>
		<button aria-label="Open git action menu"></button>
		<div data-radix-popper-content-wrapper="">
			<div role="menuitem">Unified diff</div>
			<div role="menuitem">Copy patch</div>
		</div>
	</body>`)
	if item := PatchMenuItem(root); item != nil {
		t.Errorf("diff-view menu qualified: %+v", item)
	}
}

func TestPatchMenuItem_ProximityTieBreak(t *testing.T) {
	root := parse(t, `<body>
		<button aria-label="Open git action menu" data-rec-box="10,600,40,630"></button>
		<div data-radix-popper-content-wrapper="" data-rec-box="500,0,600,200">
			<div role="menuitem">Create PR</div>
			<div role="menuitem" aria-label="Copy patch" data-rec-n="1"></div>
		</div>
		<div data-radix-popper-content-wrapper="" data-rec-box="45,600,200,760">
			<div role="menuitem">Create PR</div>
			<div role="menuitem" aria-label="Copy patch" data-rec-n="2"></div>
		</div>
	</body>`)
	item := PatchMenuItem(root)
	if item == nil || dom.NodeID(item.Node) != 2 {
		t.Fatalf("picked %+v, want the near popper (node 2)", item)
	}
}

func TestTriggerButton_AncestorScoring(t *testing.T) {
	root := parse(t, `<body>
		<div><button id="plain" aria-label="Open git action menu"></button></div>
		<div><span>Create PR</span><button id="split" aria-label="Open git action menu"></button></div>
	</body>`)
	n := TriggerButton(root)
	if n == nil || dom.Attr(n, "id") != "split" {
		t.Errorf("trigger = %v, want #split", n)
	}
}
