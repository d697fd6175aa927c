// Package journal keeps a local SQLite record of every export: when it
// ran, what page it came from, which files it produced. The journal is an
// audit trail, never a gate; export proceeds even when journaling fails.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/recolte/dbopen"
	"github.com/hazyhaar/recolte/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS exports (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL DEFAULT '',
	task_title  TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	format      TEXT NOT NULL,
	sections    TEXT NOT NULL,
	files       TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exports_task ON exports(task_id, created_at);
`

// Entry is one journaled export.
type Entry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	TaskTitle string    `json:"taskTitle"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Sections  []string  `json:"sections"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"createdAt"`
}

// Journal records exports in SQLite.
type Journal struct {
	db    *sql.DB
	newID idgen.Generator
}

// Open opens (and migrates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return New(db), nil
}

// New wraps an already-opened database. The schema must be applied by the
// caller (dbopen.WithSchema(Schema) or Open).
func New(db *sql.DB) *Journal {
	return &Journal{db: db, newID: idgen.Prefixed("exp_", idgen.UUIDv7())}
}

// Schema exposes the journal DDL for callers managing their own database.
const Schema = schema

func (j *Journal) Close() error { return j.db.Close() }

// Record inserts one export entry and returns its assigned id.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	id := e.ID
	if id == "" {
		id = j.newID()
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	sections, err := json.Marshal(e.Sections)
	if err != nil {
		return "", fmt.Errorf("journal: marshal sections: %w", err)
	}
	files, err := json.Marshal(e.Files)
	if err != nil {
		return "", fmt.Errorf("journal: marshal files: %w", err)
	}

	err = dbopen.RunTx(ctx, j.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO exports (id, task_id, task_title, url, format, sections, files, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, e.TaskID, e.TaskTitle, e.URL, e.Format, string(sections), string(files),
			created.Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("journal: record export: %w", err)
	}
	return id, nil
}

// Prune deletes entries recorded longer than keep ago and reports how many
// were removed.
func (j *Journal) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-keep).Format(time.RFC3339Nano)
	res, err := dbopen.Exec(ctx, j.db, `DELETE FROM exports WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return res.RowsAffected()
}

// Recent returns the latest entries, newest first. taskID filters when
// non-empty.
func (j *Journal) Recent(ctx context.Context, taskID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, task_id, task_title, url, format, sections, files, created_at
	          FROM exports`
	args := []any{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sections, files, created string
		if err := rows.Scan(&e.ID, &e.TaskID, &e.TaskTitle, &e.URL, &e.Format,
			&sections, &files, &created); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(sections), &e.Sections); err != nil {
			return nil, fmt.Errorf("journal: decode sections: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &e.Files); err != nil {
			return nil, fmt.Errorf("journal: decode files: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("journal: parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
