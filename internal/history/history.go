// Package history keeps a sqlite ledger of compaction passes and the
// outcome of every job in them.
package history

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/raoulx24/shardpack/internal/worker"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME,
	finished_at DATETIME,
	candidates INTEGER,
	completed INTEGER,
	failed INTEGER,
	raw_bytes INTEGER,
	file_count INTEGER,
	archive_count INTEGER,
	packed_bytes INTEGER
);
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	bucket TEXT,
	state TEXT,
	built INTEGER,
	raw_bytes INTEGER,
	file_count INTEGER,
	packed_bytes INTEGER,
	error_message TEXT,
	started_at DATETIME,
	finished_at DATETIME
);
`

// Store implements worker.Recorder on a sqlite database.
type Store struct {
	db *sql.DB
}

var _ worker.Recorder = (*Store)(nil)

// Open creates the database file and tables if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	// Only the coordinator writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) BeginRun(runID string, started time.Time) error {
	_, err := s.db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, runID, started.UTC())
	return err
}

func (s *Store) RecordJob(runID string, res worker.Result) error {
	var msg sql.NullString
	if res.Err != nil {
		msg = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	b := res.Outcome.Stats
	_, err := s.db.Exec(`INSERT INTO jobs (run_id, bucket, state, built, raw_bytes, file_count, packed_bytes, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Job.Name, res.State.String(), res.Outcome.Built,
		int64(b.RawBytes), int64(b.FileCount), int64(b.PackedBytes),
		msg, res.Started.UTC(), res.Finished.UTC())
	return err
}

func (s *Store) FinishRun(rep worker.Report) error {
	t := rep.Totals
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ?, candidates = ?, completed = ?, failed = ?,
		raw_bytes = ?, file_count = ?, archive_count = ?, packed_bytes = ? WHERE id = ?`,
		rep.Finished.UTC(), rep.Candidates, rep.Completed, rep.Failed,
		int64(t.RawBytes), int64(t.FileCount), int64(t.ArchiveCount), int64(t.PackedBytes),
		rep.RunID)
	return err
}

// Run is one row of the runs table.
type Run struct {
	ID        string
	Started   time.Time
	Finished  sql.NullTime
	Completed int
	Failed    int
	FileCount int64
	RawBytes  int64
}

// Runs returns recorded passes, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, started_at, finished_at, COALESCE(completed, 0), COALESCE(failed, 0),
		COALESCE(file_count, 0), COALESCE(raw_bytes, 0) FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Started, &r.Finished, &r.Completed, &r.Failed, &r.FileCount, &r.RawBytes); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// JobStates returns bucket name → final state for one pass.
func (s *Store) JobStates(runID string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT bucket, state FROM jobs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := map[string]string{}
	for rows.Next() {
		var bucket, state string
		if err := rows.Scan(&bucket, &state); err != nil {
			return nil, err
		}
		states[bucket] = state
	}
	return states, rows.Err()
}

// LastRun returns the most recent pass and the buckets that failed in it.
// ok is false when nothing has been recorded yet.
func (s *Store) LastRun() (run Run, failed []string, ok bool, err error) {
	runs, err := s.Runs()
	if err != nil || len(runs) == 0 {
		return Run{}, nil, false, err
	}
	run = runs[0]

	states, err := s.JobStates(run.ID)
	if err != nil {
		return run, nil, true, err
	}
	for bucket, state := range states {
		if state == worker.StateFailed.String() {
			failed = append(failed, bucket)
		}
	}
	sort.Strings(failed)
	return run, failed, true, nil
}
