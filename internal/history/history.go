package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mls-go/internal/config"
	"mls-go/internal/history/migrations"
	"mls-go/internal/mls"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Run is one journal row: the recorded outcome of one sync pass. Fatal runs
// that never produced a summary are recorded too, with zero counts and the
// error text in Detail.
type Run struct {
	ID         string
	Root       string
	Remote     string
	State      string
	DryRun     bool
	Total      int
	Uploaded   int
	Failed     int
	Skipped    int
	Cancelled  int
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun builds a journal row from a finished run summary.
func NewRun(id, remote string, summary *mls.RunSummary) Run {
	return Run{
		ID:         id,
		Root:       summary.Root,
		Remote:     remote,
		State:      string(summary.State),
		DryRun:     summary.DryRun,
		Total:      summary.Total,
		Uploaded:   summary.Uploaded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Cancelled:  summary.Cancelled,
		StartedAt:  summary.Started.UTC(),
		FinishedAt: summary.Started.Add(summary.Elapsed).UTC(),
	}
}

// Store is the run-history journal: an append-only SQLite record of past
// runs. It is owned by the app layer; the sync engine never touches it.
type Store struct {
	db   *sql.DB
	path string
}

// NewStoreFromConfig opens the journal described by the history config.
func NewStoreFromConfig(cfg config.HistoryConfig) (*Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite history")
		}
		return Open(filepath.Join(cfg.DataDir, "history.db"))
	case "memory":
		return Open(":memory:")
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}

// Open opens the journal at path, creating and migrating it as needed.
// ":memory:" gives a throwaway in-memory journal.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun appends one row to the journal.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, root, remote, state, dry_run, total, uploaded, failed, skipped, cancelled, detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Remote, run.State, run.DryRun,
		run.Total, run.Uploaded, run.Failed, run.Skipped, run.Cancelled,
		run.Detail, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// defaults to 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, remote, state, dry_run, total, uploaded, failed, skipped, cancelled, detail, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.Root, &r.Remote, &r.State, &r.DryRun,
			&r.Total, &r.Uploaded, &r.Failed, &r.Skipped, &r.Cancelled,
			&r.Detail, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}
