// Package extract turns located containers into clean text: raw rendered
// extraction, structural log extraction, and the report/logs splitter that
// separates the "Summary … Files" preface from the execution transcript.
//
// Everything here is best-effort text segmentation over scraped UI text, not
// a grammar. Ambiguous input degrades to "everything is logs, report empty"
// instead of erroring.
package extract

import (
	"regexp"
	"strings"
)

// UI breadcrumbs and structural markers that leak into scraped text.
var (
	crumbPattern     = regexp.MustCompile(`(?i)^(ask|code|diff|logs|internet on|copy|archive|share|create pr|view pr)$`)
	versionPattern   = regexp.MustCompile(`(?i)^version\s+\d+$`)
	shellPattern     = regexp.MustCompile(`^root@.+#\s`)
	bareShellPattern = regexp.MustCompile(`(?i)^shell\s*$`)
	countPattern     = regexp.MustCompile(`(?i)^\d+x$`)
	workedPattern    = regexp.MustCompile(`(?i)^worked\s+for\b`)
	implementPattern = regexp.MustCompile(`(?i)^implement\b`)
	envSetupPattern  = regexp.MustCompile(`(?i)^environment setup$`)
	setupTagPattern  = regexp.MustCompile(`(?i)\[setup\]`)
	runtimesPattern  = regexp.MustCompile(`Configuring language runtimes`)

	summaryPattern = regexp.MustCompile(`(?i)^\s*Summary\s*$`)
	filesPattern   = regexp.MustCompile(`(?i)^\s*Files\s*\(\d+\)\s*$`)

	headerLeadPattern = regexp.MustCompile(`(?i)^(implement|ask|code|diff|logs|internet on|copy|archive|share|create pr|view pr)\b`)

	usefulCmdPattern  = regexp.MustCompile(`\b(node|git|bash|pnpm|npm|yarn)\b`)
	crumbLeadPattern  = regexp.MustCompile(`^(Ask|Code|Diff|Logs)\b`)
	agentLeadPattern  = regexp.MustCompile(`(?i)^(i need to|i'll|i will|let me|we need to|i should|first,|first step|step 1)`)
	agentsFilePattern = regexp.MustCompile(`(?i)agents\.md|\bagents\b`)
	agentVerbPattern  = regexp.MustCompile(`instructions|guide|locate|search|check`)

	controlPattern = regexp.MustCompile(`[\x00-\x09\x0B-\x1F\x7F\x{FFFD}]`)
	blanksPattern  = regexp.MustCompile(`\n{3,}`)
)

// IsCrumb reports whether a line is pure UI chrome (tab labels, action
// buttons, "Version N") with no content value.
func IsCrumb(line string) bool {
	t := strings.TrimSpace(line)
	return crumbPattern.MatchString(t) || versionPattern.MatchString(t)
}

// IsShellMarker matches shell prompt echoes like "root@host# ls" and the
// bare "Shell" label.
func IsShellMarker(line string) bool {
	return shellPattern.MatchString(line) || bareShellPattern.MatchString(line)
}

// IsEnvMarker matches environment-setup transcript lead-ins.
func IsEnvMarker(line string) bool {
	t := strings.TrimSpace(line)
	return envSetupPattern.MatchString(t) || setupTagPattern.MatchString(t) || runtimesPattern.MatchString(line)
}

// LooksLikeHeaderBlock reports whether the concatenated text of a
// container's first children reads like the task header: the prompt echo,
// UI crumbs, a version label, or environment-setup markers.
func LooksLikeHeaderBlock(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	return headerLeadPattern.MatchString(t) ||
		versionPattern.MatchString(t) ||
		IsEnvMarker(t)
}

// isUsefulCommand matches lines mentioning common dev tools, used to find
// where setup noise ends and the real transcript begins.
func isUsefulCommand(line string) bool {
	return usefulCmdPattern.MatchString(line) && !crumbLeadPattern.MatchString(line)
}

// isAgentStart matches the agent's first reasoning step ("I need to …",
// "Let me …" with a nod to the instructions file or an initial action verb).
func isAgentStart(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if !agentLeadPattern.MatchString(t) {
		return false
	}
	return agentsFilePattern.MatchString(t) || agentVerbPattern.MatchString(strings.ToLower(t))
}

// StripControl removes control characters and replacement runes that survive
// DOM serialisation.
func StripControl(s string) string {
	return controlPattern.ReplaceAllString(s, "")
}

// CollapseBlank reduces runs of 3+ newlines to one blank line and trims.
func CollapseBlank(s string) string {
	return strings.TrimSpace(blanksPattern.ReplaceAllString(s, "\n\n"))
}

// CleanLogs drops breadcrumb-only lines and collapses blank runs. Cleaning
// an already-clean string is a no-op beyond trimming.
func CleanLogs(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if IsCrumb(l) {
			continue
		}
		kept = append(kept, l)
	}
	return CollapseBlank(strings.Join(kept, "\n"))
}
