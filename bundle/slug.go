// Package bundle shapes captured sections into export artifacts: the JSON
// payload, the Markdown document, and the file names they land under.
package bundle

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const slugMax = 120

// Slug turns a task title into a filesystem-safe name: diacritics folded
// away via NFKD, anything outside [a-z0-9._-] replaced with an
// underscore, runs collapsed, length capped.
func Slug(s string) string {
	s = norm.NFKD.String(strings.ToLower(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := collapseRuns(b.String(), '_')
	out = strings.Trim(out, "_.")
	if out == "" {
		out = "task"
	}
	if len(out) > slugMax {
		out = strings.Trim(out[:slugMax], "_.")
	}
	return out
}

func collapseRuns(s string, r byte) string {
	var b strings.Builder
	prev := false
	for i := 0; i < len(s); i++ {
		if s[i] == r {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Filename assembles the export file name from its identity segments:
// slug__turnN__vM__types.ext. Empty segments drop out.
func Filename(slug, turnSeg, verSeg string, types []string, ext string) string {
	parts := []string{slug}
	if turnSeg != "" {
		parts = append(parts, turnSeg)
	}
	if verSeg != "" {
		parts = append(parts, verSeg)
	}
	if len(types) > 0 {
		parts = append(parts, strings.Join(types, "+"))
	}
	return strings.Join(parts, "__") + "." + ext
}
