package bundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/recolte/capture"
)

// Payload is the JSON export shape. Field names are part of the on-disk
// format; downstream tooling reads these files.
type Payload struct {
	ExportedAt string            `json:"exportedAt"`
	TaskID     string            `json:"taskId,omitempty"`
	TaskTitle  string            `json:"taskTitle,omitempty"`
	URL        string            `json:"url,omitempty"`
	Turn       *TurnInfo         `json:"turn,omitempty"`
	Sections   []capture.Section `json:"sections"`
}

// TurnInfo summarizes the turn an export came from; omitted when the
// sections span several turns.
type TurnInfo struct {
	Index    int    `json:"index"`
	Label    string `json:"label,omitempty"`
	ID       string `json:"id,omitempty"`
	IsLatest bool   `json:"isLatest"`
}

// JSON renders the export payload, indented for human diffing.
func JSON(meta capture.Meta, secs []capture.Section) ([]byte, error) {
	p := Payload{
		ExportedAt: meta.CapturedAt.UTC().Format(time.RFC3339),
		TaskID:     meta.TaskID,
		TaskTitle:  meta.TaskTitle,
		URL:        meta.URL,
		Turn:       singleTurn(secs),
		Sections:   secs,
	}
	if p.Sections == nil {
		p.Sections = []capture.Section{}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("bundle: marshal payload: %w", err)
	}
	return data, nil
}

func singleTurn(secs []capture.Section) *TurnInfo {
	if len(secs) == 0 {
		return nil
	}
	first := secs[0]
	for _, s := range secs[1:] {
		if s.TurnIndex != first.TurnIndex {
			return nil
		}
	}
	return &TurnInfo{
		Index:    first.TurnIndex,
		Label:    first.TurnLabel,
		ID:       first.TurnID,
		IsLatest: first.IsLatestTurn,
	}
}
