package bundle

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/recolte/capture"
)

// Builder renders the Markdown export document. Report sections arrive as
// scraped HTML and are sanitized before conversion; everything else is
// fenced verbatim.
type Builder struct {
	conv   *converter.Converter
	policy *bluemonday.Policy
}

func NewBuilder() *Builder {
	return &Builder{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// ReportMarkdown sanitizes report HTML and converts it to Markdown.
func (b *Builder) ReportMarkdown(rawHTML string) (string, error) {
	clean := b.policy.Sanitize(rawHTML)
	md, err := b.conv.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("bundle: convert report: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Markdown assembles the full export document: task title and metadata
// lines, one H2 per turn/version label in capture order, one H3 per section
// under it.
func (b *Builder) Markdown(meta capture.Meta, secs []capture.Section) (string, error) {
	var sb strings.Builder

	title := meta.TaskTitle
	if title == "" {
		title = "Task"
	}
	sb.WriteString("# " + title + "\n\n")
	if meta.TaskID != "" {
		sb.WriteString("Task: " + meta.TaskID + "\n")
	}
	if t := singleTurn(secs); t != nil && t.Label != "" {
		sb.WriteString("Turn: " + t.Label + "\n")
	}
	if meta.URL != "" {
		sb.WriteString("URL: " + meta.URL + "\n")
	}
	generated := meta.CapturedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	sb.WriteString("Generated: " + generated.UTC().Format(time.RFC3339) + "\n\n")

	var order []string
	byLabel := make(map[string][]capture.Section)
	for _, s := range secs {
		if _, ok := byLabel[s.Label]; !ok {
			order = append(order, s.Label)
		}
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}

	for _, label := range order {
		if label != "" {
			sb.WriteString("## " + label + "\n\n")
		}
		for _, s := range byLabel[label] {
			sb.WriteString("### " + sectionHeading(s.Key) + "\n\n")
			body, err := b.sectionBody(s)
			if err != nil {
				return "", err
			}
			sb.WriteString(body)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

func (b *Builder) sectionBody(s capture.Section) (string, error) {
	switch s.Key {
	case capture.SectionReport:
		// HTML reports become document Markdown; fallback-extracted plain
		// text is fenced like the other verbatim sections.
		if strings.HasPrefix(strings.TrimSpace(s.Text), "<") {
			return b.ReportMarkdown(s.Text)
		}
		return fence(strings.TrimSpace(s.Text), "text"), nil
	case capture.SectionDiffs:
		return fence(s.Text, "diff"), nil
	default:
		return fence(s.Text, "text"), nil
	}
}

func sectionHeading(key string) string {
	switch key {
	case capture.SectionReport:
		return "Report"
	case capture.SectionDiffs:
		return "Diff"
	case capture.SectionLogs:
		return "Logs"
	}
	return key
}

func fence(body, lang string) string {
	marker := "```"
	for strings.Contains(body, marker) {
		marker += "`"
	}
	return marker + lang + "\n" + strings.TrimRight(body, "\n") + "\n" + marker
}
