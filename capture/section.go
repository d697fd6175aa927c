// Package capture orchestrates a capture sweep over a task page: snapshot,
// turn discovery, per-version section extraction, and the patch-menu and
// logs-tab interaction loops. It only talks to the page through the Driver
// interface, so the whole orchestration is testable against scripted fakes.
package capture

import (
	"strconv"
	"strings"
	"time"
)

// Section keys.
const (
	SectionReport = "report"
	SectionDiffs  = "diffs"
	SectionLogs   = "logs"
)

// Section is one captured unit of content, tagged with enough turn and
// version identity to name its output file and to deduplicate repeats.
type Section struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Text  string `json:"text"`
	Ver   string `json:"ver,omitempty"`

	TurnID    string `json:"turnId,omitempty"`
	TurnIndex int    `json:"turnIndex"`
	TurnLabel string `json:"turnLabel,omitempty"`

	VersionID    string `json:"versionId,omitempty"`
	VersionLabel string `json:"versionLabel,omitempty"`

	IsLatestTurn    bool `json:"isLatestTurn"`
	IsLatestVersion bool `json:"isLatestVersion"`
}

// Meta describes the page a sweep ran against.
type Meta struct {
	TaskID     string    `json:"taskId"`
	TaskTitle  string    `json:"taskTitle"`
	URL        string    `json:"url"`
	CapturedAt time.Time `json:"capturedAt"`
}

// dedupePrefix bounds the text component of the dedupe key. Re-rendered
// sections differ in trailing noise long before the first 512 characters.
const dedupePrefix = 512

func dedupeKey(s Section) string {
	t := s.Text
	if len(t) > dedupePrefix {
		t = t[:dedupePrefix]
	}
	return s.Key + "\x00" + s.Ver + "\x00" + t
}

// verToken reduces a version label to a short slug for dedupe and
// filenames: "Version 2" becomes "v2".
func verToken(label string) string {
	for _, f := range strings.Fields(label) {
		if n, err := strconv.Atoi(f); err == nil {
			return "v" + strconv.Itoa(n)
		}
	}
	return "v1"
}
