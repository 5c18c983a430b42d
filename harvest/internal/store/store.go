// CLAUDE:SUMMARY SQLite run history: every finished run with its ordered links, plus downstream processing results per video.
// Package store persists finished runs and downstream processing results in
// SQLite. A Store is also a sink.Sink, so the orchestrator records runs the
// same way it writes result files.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/vidharvest/dbopen"
	"github.com/hazyhaar/vidharvest/harvest/outcome"
	"github.com/hazyhaar/vidharvest/harvest/videoref"
)

// ErrNotFound is returned when a run or processing result does not exist.
var ErrNotFound = errors.New("store: not found")

// Schema creates the store tables. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	detail      TEXT NOT NULL DEFAULT '',
	addresses   TEXT NOT NULL DEFAULT '[]',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS run_links (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	ref      TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS processed (
	ref          TEXT PRIMARY KEY,
	video_id     TEXT NOT NULL,
	transcript   TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	processed_at INTEGER NOT NULL
);
`

// Store wraps the run history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open database and applies the schema.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Send records run. It implements sink.Sink.
func (s *Store) Send(ctx context.Context, run outcome.RunOutcome) error {
	return s.SaveRun(ctx, run)
}

// SaveRun inserts or replaces a run and its links in one transaction.
func (s *Store) SaveRun(ctx context.Context, run outcome.RunOutcome) error {
	if run.ID == "" {
		return fmt.Errorf("store: save run: empty id")
	}
	addrs, err := json.Marshal(nonNil(run.Addresses))
	if err != nil {
		return fmt.Errorf("store: save run: %w", err)
	}
	err = dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM run_links WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO runs (id, strategy, status, reason, detail, addresses, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Strategy, string(run.Status), string(run.Reason), run.Detail, string(addrs),
			run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli()); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_links (run_id, position, ref) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, ref := range run.Links {
			if _, err := stmt.ExecContext(ctx, run.ID, i, string(ref)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	return nil
}

// RunSummary is a run without its links.
type RunSummary struct {
	ID         string         `json:"id"`
	Strategy   string         `json:"strategy"`
	Status     outcome.Status `json:"status"`
	Reason     outcome.Reason `json:"reason,omitempty"`
	LinkCount  int            `json:"link_count"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.strategy, r.status, r.reason, r.started_at, r.finished_at,
		       (SELECT COUNT(*) FROM run_links l WHERE l.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r              RunSummary
			status, reason string
			started, ended int64
		)
		if err := rows.Scan(&r.ID, &r.Strategy, &status, &reason, &started, &ended, &r.LinkCount); err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		r.Status = outcome.Status(status)
		r.Reason = outcome.Reason(reason)
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(ended).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads one run with its links in collection order.
func (s *Store) GetRun(ctx context.Context, id string) (*outcome.RunOutcome, error) {
	var (
		run            outcome.RunOutcome
		status, reason string
		addrs          string
		started, ended int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, status, reason, detail, addresses, started_at, finished_at
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Strategy, &status, &reason, &run.Detail, &addrs, &started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run %s: %w", id, err)
	}
	run.Status = outcome.Status(status)
	run.Reason = outcome.Reason(reason)
	run.StartedAt = time.UnixMilli(started).UTC()
	run.FinishedAt = time.UnixMilli(ended).UTC()
	if err := json.Unmarshal([]byte(addrs), &run.Addresses); err != nil {
		return nil, fmt.Errorf("store: get run %s: addresses: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ref FROM run_links WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get run %s: links: %w", id, err)
	}
	defer rows.Close()
	run.Links = []videoref.Ref{}
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("store: get run %s: links: %w", id, err)
		}
		run.Links = append(run.Links, videoref.Ref(ref))
	}
	return &run, rows.Err()
}

// Processed is the downstream transcription/summary of one video.
type Processed struct {
	Ref         videoref.Ref `json:"ref"`
	VideoID     string       `json:"videoId"`
	Transcript  string       `json:"transcript"`
	Summary     string       `json:"summary"`
	ProcessedAt time.Time    `json:"processedAt"`
}

// SaveProcessed inserts or replaces the processing result for p.Ref.
func (s *Store) SaveProcessed(ctx context.Context, p Processed) error {
	if p.ProcessedAt.IsZero() {
		p.ProcessedAt = time.Now()
	}
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT OR REPLACE INTO processed (ref, video_id, transcript, summary, processed_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(p.Ref), p.VideoID, p.Transcript, p.Summary, p.ProcessedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save processed %s: %w", p.Ref, err)
	}
	return nil
}

// GetProcessed returns the stored result for ref.
func (s *Store) GetProcessed(ctx context.Context, ref videoref.Ref) (*Processed, error) {
	var (
		p  Processed
		r  string
		at int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT ref, video_id, transcript, summary, processed_at FROM processed WHERE ref = ?`, string(ref)).
		Scan(&r, &p.VideoID, &p.Transcript, &p.Summary, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: processed %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get processed %s: %w", ref, err)
	}
	p.Ref = videoref.Ref(r)
	p.ProcessedAt = time.UnixMilli(at).UTC()
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
