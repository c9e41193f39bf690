package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mls-go/internal/config"
	"mls-go/internal/mls"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Root:       "/library",
		Remote:     "svc",
		State:      "completed",
		Total:      10,
		Uploaded:   7,
		Skipped:    2,
		Failed:     1,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
}

func TestStore_RecordRun(t *testing.T) {
	t.Run("round-trips a run", func(t *testing.T) {
		s := newTestStore(t)
		started := time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)

		if err := s.RecordRun(context.Background(), sampleRun("run-1", started)); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}

		runs, err := s.ListRuns(context.Background(), 10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("len(runs) = %d, want 1", len(runs))
		}

		got := runs[0]
		if got.ID != "run-1" {
			t.Errorf("ID = %q, want %q", got.ID, "run-1")
		}
		if got.Root != "/library" || got.Remote != "svc" || got.State != "completed" {
			t.Errorf("run = %+v, want the recorded values", got)
		}
		if got.Uploaded != 7 || got.Skipped != 2 || got.Failed != 1 {
			t.Errorf("counts = %d/%d/%d, want 7/2/1", got.Uploaded, got.Skipped, got.Failed)
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
		}
	})

	t.Run("records a fatal run with detail", func(t *testing.T) {
		s := newTestStore(t)
		now := time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)

		run := Run{
			ID:         "run-err",
			Root:       "/gone",
			State:      "failed",
			Detail:     "scanning /gone: no such file or directory",
			StartedAt:  now,
			FinishedAt: now,
		}
		if err := s.RecordRun(context.Background(), run); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}

		runs, err := s.ListRuns(context.Background(), 1)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if runs[0].Detail != run.Detail {
			t.Errorf("Detail = %q, want %q", runs[0].Detail, run.Detail)
		}
	})
}

func TestStore_ListRuns(t *testing.T) {
	t.Run("newest first with limit", func(t *testing.T) {
		s := newTestStore(t)
		base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

		for i, id := range []string{"run-1", "run-2", "run-3"} {
			if err := s.RecordRun(context.Background(), sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("RecordRun(%s) error = %v", id, err)
			}
		}

		runs, err := s.ListRuns(context.Background(), 2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(runs) = %d, want 2", len(runs))
		}
		if runs[0].ID != "run-3" || runs[1].ID != "run-2" {
			t.Errorf("order = [%s, %s], want [run-3, run-2]", runs[0].ID, runs[1].ID)
		}
	})

	t.Run("empty journal lists nothing", func(t *testing.T) {
		runs, err := newTestStore(t).ListRuns(context.Background(), 10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("len(runs) = %d, want 0", len(runs))
		}
	})
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("sqlite store creates the database file", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewStoreFromConfig(config.HistoryConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer s.Close()

		if s.path != filepath.Join(dir, "history.db") {
			t.Errorf("path = %q, want it under the data dir", s.path)
		}
	})

	t.Run("memory store", func(t *testing.T) {
		s, err := NewStoreFromConfig(config.HistoryConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		s.Close()
	})

	t.Run("sqlite without data dir fails", func(t *testing.T) {
		if _, err := NewStoreFromConfig(config.HistoryConfig{Type: "sqlite"}); err == nil {
			t.Error("NewStoreFromConfig() error = nil, want missing data_dir")
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		if _, err := NewStoreFromConfig(config.HistoryConfig{Type: "parchment"}); err == nil {
			t.Error("NewStoreFromConfig() error = nil, want unknown type")
		}
	})
}

func TestNewRun(t *testing.T) {
	started := time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)
	summary := &mls.RunSummary{
		State:    mls.StateCompleted,
		Root:     "/library",
		DryRun:   true,
		Total:    5,
		Uploaded: 3,
		Skipped:  1,
		Failed:   1,
		Started:  started,
		Elapsed:  90 * time.Second,
	}

	run := NewRun("run-9", "svc", summary)

	if run.ID != "run-9" || run.Remote != "svc" {
		t.Errorf("identity = %s/%s, want run-9/svc", run.ID, run.Remote)
	}
	if run.State != "completed" {
		t.Errorf("State = %q, want %q", run.State, "completed")
	}
	if !run.DryRun {
		t.Error("DryRun = false, want true")
	}
	if run.Total != 5 || run.Uploaded != 3 || run.Skipped != 1 || run.Failed != 1 {
		t.Errorf("counts = %+v, want the summary tallies", run)
	}
	if want := started.Add(90 * time.Second); !run.FinishedAt.Equal(want) {
		t.Errorf("FinishedAt = %v, want %v", run.FinishedAt, want)
	}
}
