package mls

import "time"

// RunState names the phases of one sync pass. A run moves
// Idle → Scanning → Filtering → Uploading and ends in one of the three
// terminal states carried by the RunSummary.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateScanning  RunState = "scanning"
	StateFiltering RunState = "filtering"
	StateUploading RunState = "uploading"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// Outcome is the per-file result reported through the progress callback and
// tallied in the summary.
type Outcome string

const (
	OutcomeUploaded  Outcome = "uploaded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCancelled Outcome = "cancelled"
)

// RunConfiguration carries the parameters of one sync pass. Cancellation is
// requested through the context passed to Engine.Run, not through a field
// here: cancel the context from any goroutine and the engine stops before
// the next file.
type RunConfiguration struct {
	// Root is the directory tree to scan.
	Root string

	// DryRun simulates uploads: no remote calls, no tracker mutation.
	DryRun bool

	// Extensions is the allowed-extension set; empty means
	// DefaultExtensions.
	Extensions ExtensionSet

	// Autosave persists the tracker after every recorded outcome instead
	// of only once at the end of the run.
	Autosave bool
}

// Progress is the immutable per-file event handed to the progress callback.
// Index is 1-based; Total is fixed once scanning completes.
type Progress struct {
	Index     int
	Total     int
	File      MediaFile
	Outcome   Outcome
	Simulated bool   // dry-run marker; the outcome still tallies as uploaded
	Detail    string // remote identifier or error text
}

// ProgressFunc receives progress events synchronously, one per file. The
// engine waits for each call to return before moving on.
type ProgressFunc func(Progress)

// RunSummary tallies one finished pass.
type RunSummary struct {
	State     RunState
	Root      string
	DryRun    bool
	Total     int
	Uploaded  int
	Failed    int
	Skipped   int
	Cancelled int
	Started   time.Time
	Elapsed   time.Duration
}
