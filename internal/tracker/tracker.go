package tracker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mls-go/internal/mls"
)

// Record is one tracker database entry: the latest recorded outcome for one
// file identity. At most one record exists per path; recording again
// overwrites (last write wins).
type Record struct {
	Path      string     `json:"path"`
	Status    mls.Status `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Detail    string     `json:"detail,omitempty"`
}

// CorruptError reports a tracker database file that exists but cannot be
// parsed. The caller decides whether to abort or start fresh via Reset.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt tracker database %s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Tracker is the durable record of prior upload outcomes, keyed by file
// identity. On disk it is a JSON Lines file, one record per line, sorted by
// path, replaced atomically on every save. One Tracker instance owns its
// file exclusively; concurrent processes sharing a database are undefined.
type Tracker struct {
	path    string
	clock   mls.Clock
	records map[string]Record
}

// Load reads the database at path. A missing file is not an error: this is
// the first run, and an empty Tracker is returned. A file that exists but
// does not parse fails with *CorruptError. Records carrying a status outside
// the known enumeration are loaded as failed, the original status preserved
// in the detail, so nothing is silently dropped and the file is retried.
func Load(path string, clock mls.Clock) (*Tracker, error) {
	t := &Tracker{
		path:    path,
		clock:   clock,
		records: make(map[string]Record),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating tracker directory: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return t, nil
		}
		return nil, fmt.Errorf("opening tracker database: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &CorruptError{Path: path, Line: line, Err: err}
		}
		if rec.Path == "" {
			return nil, &CorruptError{Path: path, Line: line, Err: errors.New("record has no path")}
		}
		if !rec.Status.Valid() {
			detail := fmt.Sprintf("unrecognized status %q", string(rec.Status))
			if rec.Detail != "" {
				detail += ": " + rec.Detail
			}
			rec.Status = mls.StatusFailed
			rec.Detail = detail
		}
		t.records[rec.Path] = rec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tracker database: %w", err)
	}

	return t, nil
}

// Path returns the database file location.
func (t *Tracker) Path() string { return t.path }

// Len returns the number of records.
func (t *Tracker) Len() int { return len(t.records) }

// IsUploaded reports whether identity has a record with StatusUploaded.
// Failed records return false so the file is retried on the next run.
func (t *Tracker) IsUploaded(identity string) bool {
	rec, ok := t.records[identity]
	return ok && rec.Status == mls.StatusUploaded
}

// Get returns the record for identity, if any.
func (t *Tracker) Get(identity string) (Record, bool) {
	rec, ok := t.records[identity]
	return rec, ok
}

// Record upserts the outcome for identity in memory, stamped with the
// current time. Nothing is persisted until Save.
func (t *Tracker) Record(identity string, status mls.Status, detail string) {
	t.records[identity] = Record{
		Path:      identity,
		Status:    status,
		Timestamp: t.clock.Now().UTC().Truncate(time.Second),
		Detail:    detail,
	}
}

// All returns every record sorted by path.
func (t *Tracker) All() []Record {
	out := make([]Record, 0, len(t.records))
	for _, p := range t.sortedPaths() {
		out = append(out, t.records[p])
	}
	return out
}

// Save atomically replaces the database file with the full in-memory state:
// the new content is written to a temp file in the same directory, fsynced,
// and renamed over the old file. A reader never observes a truncated
// database at the final path.
func (t *Tracker) Save() error {
	dir := filepath.Dir(t.path)
	tmpFile, err := os.CreateTemp(dir, ".tracker-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up the temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := t.encode(tmpFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, t.path); err != nil {
		return fmt.Errorf("replacing tracker database: %w", err)
	}

	success = true
	return nil
}

// Export writes the current database content to w in the on-disk format.
func (t *Tracker) Export(w io.Writer) error {
	return t.encode(w)
}

func (t *Tracker) encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, p := range t.sortedPaths() {
		if err := enc.Encode(t.records[p]); err != nil {
			return fmt.Errorf("encoding record for %s: %w", p, err)
		}
	}
	return nil
}

func (t *Tracker) sortedPaths() []string {
	paths := make([]string, 0, len(t.records))
	for p := range t.records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reset moves any existing database aside to <path>.bak and writes a fresh
// empty database in its place. The old file is never parsed, so Reset also
// recovers from corruption. Returns the backup path, empty if there was
// nothing to back up.
func Reset(path string) (string, error) {
	backup := ""
	if _, err := os.Stat(path); err == nil {
		backup = path + ".bak"
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("backing up tracker database: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat tracker database: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating tracker directory: %w", err)
	}
	if err := os.WriteFile(path, nil, 0600); err != nil {
		return "", fmt.Errorf("writing empty tracker database: %w", err)
	}
	return backup, nil
}

// Compile-time check that Tracker implements the mls.Store interface
var _ mls.Store = (*Tracker)(nil)
