package extract

import "strings"

// Split is the result of separating a report preface from execution logs.
type Split struct {
	Report string
	Logs   string
}

// SplitReportFromLogs separates the "Summary … Files (N)" report preface
// from the trailing execution transcript in raw scraped text.
//
// The report segment starts at a line that is exactly "Summary". When a
// later "Files (N)" line exists, the segment extends past it until the first
// breadcrumb, shell marker, environment-setup marker, bare repetition count
// ("3x"), "Worked for …" or "Implement …" line; blank lines extend the
// segment tentatively. Without "Files (N)" the segment ends at the first
// breadcrumb or shell marker. Without "Summary" at all, the report is empty
// and everything becomes cleaned logs.
//
// The remaining lines are trimmed of leading chrome, then preferentially
// re-anchored at the agent's first reasoning step (within the first 120
// lines) or at the first useful command line (within the first 50).
func SplitReportFromLogs(raw string) Split {
	if raw == "" {
		return Split{}
	}
	clean := StripControl(strings.ReplaceAll(raw, "\r", ""))
	lines := strings.Split(clean, "\n")

	iSummary := -1
	for i, l := range lines {
		if summaryPattern.MatchString(l) {
			iSummary = i
			break
		}
	}
	if iSummary == -1 {
		return Split{Logs: CleanLogs(strings.Join(lines, "\n"))}
	}

	iFiles := -1
	for i := iSummary + 1; i < len(lines); i++ {
		if filesPattern.MatchString(lines[i]) {
			iFiles = i
			break
		}
	}

	end := -1
	if iFiles != -1 {
		// Consume the files list after "Files (N)"; stop at the first line
		// that belongs to the next UI region.
		end = iFiles + 1
		for k := end; k < len(lines); k++ {
			ln := lines[k]
			t := strings.TrimSpace(ln)
			if t == "" {
				end = k
				continue
			}
			if IsCrumb(ln) || IsShellMarker(ln) || IsEnvMarker(ln) ||
				countPattern.MatchString(t) || workedPattern.MatchString(t) || implementPattern.MatchString(t) {
				end = k
				break
			}
			end = k + 1
		}
	} else {
		for k := iSummary + 1; k < len(lines); k++ {
			if IsCrumb(lines[k]) || IsShellMarker(lines[k]) {
				end = k
				break
			}
		}
		if end == -1 {
			end = len(lines)
		}
	}

	report := strings.TrimSpace(strings.Join(lines[iSummary:end], "\n"))

	rest := lines[end:]
	for len(rest) > 0 {
		l := rest[0]
		if strings.TrimSpace(l) == "" || IsCrumb(l) || IsShellMarker(l) ||
			implementPattern.MatchString(strings.TrimSpace(l)) {
			rest = rest[1:]
			continue
		}
		break
	}

	if idx := indexWithin(rest, 120, isAgentStart); idx > 0 {
		rest = rest[idx:]
	} else if idx := indexWithin(rest, 50, isUsefulCommand); idx > 0 {
		rest = rest[idx:]
	}

	return Split{
		Report: report,
		Logs:   CleanLogs(strings.Join(rest, "\n")),
	}
}

// indexWithin returns the index of the first line within the first limit
// lines for which pred holds, or -1.
func indexWithin(lines []string, limit int, pred func(string) bool) int {
	for i, l := range lines {
		if i >= limit {
			break
		}
		if pred(l) {
			return i
		}
	}
	return -1
}
