package extract

import (
	"strings"
	"testing"
)

func TestSplit_NoSummary(t *testing.T) {
	// WHAT: without a "Summary" line, the report is empty and the logs are
	// the fully cleaned input.
	// WHY: malformed pages must degrade to "everything is logs", not error.
	in := "Logs\nsome output line\n\n\n\nanother line\nDiff"
	got := SplitReportFromLogs(in)
	if got.Report != "" {
		t.Errorf("report = %q, want empty", got.Report)
	}
	want := "some output line\n\nanother line"
	if got.Logs != want {
		t.Errorf("logs = %q, want %q", got.Logs, want)
	}
}

func TestSplit_CleanIsIdempotent(t *testing.T) {
	in := "line one\nline two"
	first := SplitReportFromLogs(in)
	second := SplitReportFromLogs(first.Logs)
	if second.Logs != first.Logs {
		t.Errorf("cleaning clean input changed it: %q -> %q", first.Logs, second.Logs)
	}
}

func TestSplit_ShellBoundary(t *testing.T) {
	in := "Summary\nHello\nFiles (2)\n\nroot@host# ls\nmore text"
	got := SplitReportFromLogs(in)
	if got.Report != "Summary\nHello\nFiles (2)" {
		t.Errorf("report = %q", got.Report)
	}
	if strings.Contains(got.Logs, "root@host#") {
		t.Errorf("logs retained shell marker: %q", got.Logs)
	}
	if !strings.Contains(got.Logs, "more text") {
		t.Errorf("logs lost content: %q", got.Logs)
	}
}

func TestSplit_FilesListConsumed(t *testing.T) {
	// WHAT: file names after "Files (N)" belong to the report; the segment
	// ends at the first crumb/env/count/worked/implement line.
	in := strings.Join([]string{
		"Summary",
		"Fixed the parser.",
		"Files (2)",
		"pkg/parser.go",
		"pkg/parser_test.go",
		"3x",
		"Worked for 12m",
		"setting up",
		"$ pnpm install done",
	}, "\n")
	got := SplitReportFromLogs(in)
	if !strings.HasSuffix(got.Report, "pkg/parser_test.go") {
		t.Errorf("report should end with the files list, got %q", got.Report)
	}
	if strings.Contains(got.Report, "3x") || strings.Contains(got.Report, "Worked for") {
		t.Errorf("report swallowed post-segment lines: %q", got.Report)
	}
	if !strings.Contains(got.Logs, "pnpm install") {
		t.Errorf("logs = %q", got.Logs)
	}
}

func TestSplit_NoFilesFallback(t *testing.T) {
	in := "Summary\nThe change works.\nDetails follow.\nLogs\ntranscript line"
	got := SplitReportFromLogs(in)
	if got.Report != "Summary\nThe change works.\nDetails follow." {
		t.Errorf("report = %q", got.Report)
	}
	if got.Logs != "transcript line" {
		t.Errorf("logs = %q", got.Logs)
	}
}

func TestSplit_AgentStartAnchor(t *testing.T) {
	// WHAT: logs re-anchor at the agent's first reasoning step when one
	// appears early.
	in := strings.Join([]string{
		"Summary",
		"ok",
		"Files (1)",
		"a.go",
		"Environment setup",
		"[setup] Configuring language runtimes",
		"noise noise",
		"I need to check the AGENTS.md instructions first",
		"then the real work",
	}, "\n")
	got := SplitReportFromLogs(in)
	if !strings.HasPrefix(got.Logs, "I need to check") {
		t.Errorf("logs should start at the agent step, got %q", got.Logs)
	}
}

func TestSplit_UsefulCommandAnchor(t *testing.T) {
	in := strings.Join([]string{
		"Summary",
		"ok",
		"Files (1)",
		"a.go",
		"Environment setup",
		"installing things",
		"git clone https://example.com/repo",
		"output follows",
	}, "\n")
	got := SplitReportFromLogs(in)
	if !strings.HasPrefix(got.Logs, "git clone") {
		t.Errorf("logs should start at the first useful command, got %q", got.Logs)
	}
}

func TestSplit_ControlCharsStripped(t *testing.T) {
	in := "plain \x01\x02text\uFFFD here"
	got := SplitReportFromLogs(in)
	if got.Logs != "plain text here" {
		t.Errorf("logs = %q", got.Logs)
	}
}

func TestSplit_Empty(t *testing.T) {
	got := SplitReportFromLogs("")
	if got.Report != "" || got.Logs != "" {
		t.Errorf("empty input produced %+v", got)
	}
}

func TestCleanLogs_DropsCrumbLines(t *testing.T) {
	in := "Ask\nreal line\nVersion 3\nInternet on\nmore"
	if got := CleanLogs(in); got != "real line\nmore" {
		t.Errorf("CleanLogs = %q", got)
	}
}

func TestIsCrumb(t *testing.T) {
	for _, yes := range []string{"Ask", " code ", "Diff", "logs", "Internet on", "Version 12", "Create PR"} {
		if !IsCrumb(yes) {
			t.Errorf("IsCrumb(%q) = false, want true", yes)
		}
	}
	for _, no := range []string{"Ask me anything", "versioned", "log output", ""} {
		if IsCrumb(no) {
			t.Errorf("IsCrumb(%q) = true, want false", no)
		}
	}
}
