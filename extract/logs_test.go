package extract

import (
	"strings"
	"testing"

	"github.com/hazyhaar/recolte/dom"
)

func TestLogsRaw_StructuralDropsHeader(t *testing.T) {
	// WHAT: when a container's first three children read like the task
	// header, the payload is everything after them.
	// WHY: the header echoes the prompt and crumbs; keeping it duplicates
	// the report capture.
	long := strings.Repeat("transcript line with useful content\n", 12)
	src := `<div id="logs">
		<div>Implement the widget parser</div>
		<div>Version 2</div>
		<div>Environment setup</div>
		<pre>` + long + `</pre>
		<pre>tail block</pre>
	</div>`
	root, err := dom.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	got := LogsRaw(dom.Query(root, "#logs"))
	if strings.Contains(got, "Implement the widget parser") {
		t.Errorf("header survived structural extraction: %q", got[:80])
	}
	if !strings.Contains(got, "transcript line") || !strings.Contains(got, "tail block") {
		t.Errorf("payload lost: %q", got)
	}
}

func TestLogsRaw_ShortTailFallsBackToRaw(t *testing.T) {
	src := `<div id="logs">
		<div>Implement something</div>
		<div>Version 1</div>
		<div>Environment setup</div>
		<div>tiny</div>
	</div>`
	root, _ := dom.Parse(src)
	got := LogsRaw(dom.Query(root, "#logs"))
	// Tail under the threshold: the whole raw text comes back, header included.
	if !strings.Contains(got, "Implement something") {
		t.Errorf("expected raw fallback, got %q", got)
	}
}

func TestLogsRaw_Nil(t *testing.T) {
	if got := LogsRaw(nil); got != "" {
		t.Errorf("LogsRaw(nil) = %q", got)
	}
}

func TestNormalizeDiff_JoinsGutterNumbers(t *testing.T) {
	in := "12\n+added line\n13\n\n-removed line\ncontext stays"
	got := NormalizeDiff(in)
	want := "12   +added line\n13   -removed line\ncontext stays"
	if got != want {
		t.Errorf("NormalizeDiff = %q, want %q", got, want)
	}
}

func TestNormalizeDiff_LeavesPlainText(t *testing.T) {
	in := "diff --git a/x b/x\n+x"
	if got := NormalizeDiff(in); got != in {
		t.Errorf("NormalizeDiff changed plain diff: %q", got)
	}
}
