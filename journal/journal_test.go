package journal

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/recolte/dbopen"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return New(db)
}

func TestRecordAndRecent(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	id, err := j.Record(ctx, Entry{
		TaskID:    "task_a",
		TaskTitle: "Fix crash",
		URL:       "https://host/tasks/task_a",
		Format:    "json",
		Sections:  []string{"report", "diffs"},
		Files:     []string{"fix_crash__v1__report+diffs.json"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	entries, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != id || e.TaskID != "task_a" || e.Format != "json" {
		t.Fatalf("entry = %+v", e)
	}
	if len(e.Sections) != 2 || e.Sections[1] != "diffs" {
		t.Fatalf("sections = %v", e.Sections)
	}
	if len(e.Files) != 1 {
		t.Fatalf("files = %v", e.Files)
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestRecent_FilterAndOrder(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i, task := range []string{"task_a", "task_b", "task_a"} {
		_, err := j.Record(ctx, Entry{
			TaskID:    task,
			Format:    "md",
			Sections:  []string{"report"},
			Files:     []string{"f.md"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, err := j.Recent(ctx, "task_a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("filtered entries = %d, want 2", len(entries))
	}
	if !entries[0].CreatedAt.After(entries[1].CreatedAt) {
		t.Fatal("entries not newest-first")
	}

	entries, err = j.Recent(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("limited entries = %d, want 2", len(entries))
	}
}

func TestPrune(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	_, err := j.Record(ctx, Entry{
		TaskID:    "task_old",
		Format:    "json",
		Sections:  []string{"logs"},
		Files:     []string{"old.json"},
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = j.Record(ctx, Entry{
		TaskID:   "task_new",
		Format:   "md",
		Sections: []string{"report"},
		Files:    []string{"new.md"},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := j.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}
	entries, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TaskID != "task_new" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestRecent_Empty(t *testing.T) {
	j := testJournal(t)
	entries, err := j.Recent(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %v", entries)
	}
}
