package extract

import (
	"regexp"
	"strings"
)

var bareNumberPattern = regexp.MustCompile(`^\s*\d+\s*$`)

// NormalizeDiff repairs patch text scraped alongside gutter line numbers:
// a line holding only a number followed (possibly after blanks) by a
// +/-/space diff line is re-joined onto one line. Runs of blank lines
// collapse afterwards.
func NormalizeDiff(raw string) string {
	if raw == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(raw, "\r", ""), "\n")
	var out []string
	for i := 0; i < len(lines); i++ {
		a := lines[i]
		if bareNumberPattern.MatchString(a) {
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j < len(lines) {
				t := lines[j]
				trimmed := strings.TrimSpace(t)
				if trimmed != "" {
					switch trimmed[0] {
					case '+', '-', ' ':
						out = append(out, strings.TrimSpace(a)+"   "+strings.TrimLeft(t, " \t"))
						i = j
						continue
					}
				}
			}
		}
		out = append(out, a)
	}
	return CollapseBlank(strings.Join(out, "\n"))
}
