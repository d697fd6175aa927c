// Package export is the service layer: it runs a capture sweep, shapes the
// result into JSON or Markdown, writes files through the sink, and journals
// what happened. The CLI, HTTP and MCP surfaces all go through the same
// Exporter.
package export

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/hazyhaar/recolte/bundle"
	"github.com/hazyhaar/recolte/capture"
	"github.com/hazyhaar/recolte/journal"
	"github.com/hazyhaar/recolte/sink"
)

// Request selects what to capture and how to persist it. Zero values fall
// back to the loaded settings.
type Request struct {
	Sections    []string `json:"sections,omitempty"`
	Format      string   `json:"format,omitempty"` // "json" or "md"
	AllTurns    bool     `json:"allTurns,omitempty"`
	AllVersions bool     `json:"allVersions,omitempty"`
}

// ErrNothingToExport reports a sweep that found no capturable content.
// No artifact is written and nothing is journaled.
var ErrNothingToExport = errors.New("export: nothing to export")

// Result reports what a capture or export produced.
type Result struct {
	TaskID    string            `json:"taskId,omitempty"`
	TaskTitle string            `json:"taskTitle,omitempty"`
	URL       string            `json:"url,omitempty"`
	Sections  []capture.Section `json:"sections"`
	Files     []string          `json:"files,omitempty"`
	JournalID string            `json:"journalId,omitempty"`
}

type Exporter struct {
	session  *capture.Session
	builder  *bundle.Builder
	files    *sink.FileSink
	journal  *journal.Journal // nil disables journaling
	settings *sink.Settings
	log      *slog.Logger
}

func New(session *capture.Session, files *sink.FileSink, jr *journal.Journal, settings *sink.Settings, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	if settings == nil {
		settings = &sink.Settings{}
	}
	return &Exporter{
		session:  session,
		builder:  bundle.NewBuilder(),
		files:    files,
		journal:  jr,
		settings: settings,
		log:      log,
	}
}

// Capture runs a sweep and returns the sections without touching disk.
func (e *Exporter) Capture(ctx context.Context, req Request) (*Result, error) {
	secs, meta, err := e.session.CaptureSections(ctx, e.options(req))
	if err != nil {
		return nil, err
	}
	return &Result{
		TaskID:    meta.TaskID,
		TaskTitle: meta.TaskTitle,
		URL:       meta.URL,
		Sections:  secs,
	}, nil
}

// Export runs a sweep, writes the artifact, and journals the export.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	opts := e.options(req)
	secs, meta, err := e.session.CaptureSections(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(secs) == 0 {
		e.log.Warn("nothing captured, no file written", "url", meta.URL)
		return nil, ErrNothingToExport
	}
	res := &Result{
		TaskID:    meta.TaskID,
		TaskTitle: meta.TaskTitle,
		URL:       meta.URL,
		Sections:  secs,
	}

	format := req.Format
	if format != "json" && format != "md" {
		format = e.settings.DefaultFormat
		if format == "" {
			format = "json"
		}
	}

	var data []byte
	switch format {
	case "md":
		doc, err := e.builder.Markdown(meta, secs)
		if err != nil {
			return nil, err
		}
		data = []byte(doc)
	default:
		data, err = bundle.JSON(meta, secs)
		if err != nil {
			return nil, err
		}
	}

	name := exportName(meta, secs, format)
	path, err := e.files.Write(name, data)
	if err != nil {
		return nil, err
	}
	res.Files = []string{path}
	e.log.Info("export written", "file", path, "sections", len(secs))

	if e.journal != nil {
		id, err := e.journal.Record(ctx, journal.Entry{
			TaskID:    meta.TaskID,
			TaskTitle: meta.TaskTitle,
			URL:       meta.URL,
			Format:    format,
			Sections:  sectionKeys(secs),
			Files:     res.Files,
		})
		if err != nil {
			// Journal trouble never blocks an export that already landed.
			e.log.Warn("journal record failed", "err", err)
		} else {
			res.JournalID = id
		}
	}
	return res, nil
}

func (e *Exporter) options(req Request) capture.Options {
	sections := req.Sections
	if len(sections) == 0 {
		sections = []string{capture.SectionReport, capture.SectionDiffs}
		if e.settings.IncludeLogsByDefault {
			sections = append(sections, capture.SectionLogs)
		}
	}
	return capture.Options{
		Sections:    sections,
		AllTurns:    req.AllTurns || e.settings.AllTurnsByDefault,
		AllVersions: req.AllVersions,
	}
}

// exportName derives the artifact file name from what was captured:
// slug__turnN__vM__types.ext, with the turn and version segments dropped
// when the sections span several of them.
func exportName(meta capture.Meta, secs []capture.Section, format string) string {
	slug := bundle.Slug(meta.TaskTitle)

	turnSeg := "turn" + strconv.Itoa(secs[0].TurnIndex+1)
	verSeg := secs[0].Ver
	for _, s := range secs[1:] {
		if "turn"+strconv.Itoa(s.TurnIndex+1) != turnSeg {
			turnSeg = ""
		}
		if s.Ver != verSeg {
			verSeg = ""
		}
	}
	return bundle.Filename(slug, turnSeg, verSeg, sectionKeys(secs), format)
}

func sectionKeys(secs []capture.Section) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range secs {
		if seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		out = append(out, s.Key)
	}
	return out
}
