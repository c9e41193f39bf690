package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"mls-go/internal/config"
	"mls-go/internal/history"
	"mls-go/internal/mls"
	"mls-go/internal/remote"
	"mls-go/internal/scan"
	"mls-go/internal/tracker"

	"github.com/google/uuid"
)

// Options tune how the App is wired for one CLI invocation.
type Options struct {
	// Passphrase is consulted when a remote's headers file is encrypted.
	Passphrase remote.PassphraseFunc
	// Quiet suppresses the stderr copy of the log (the log file still gets
	// everything). Set when a TUI owns the terminal.
	Quiet bool
}

// App is the application layer between the CLI and the sync engine.
// It constructs all dependencies from config, exposes high-level operations,
// and manages the history journal and log file lifecycle on Close.
type App struct {
	cfg        *config.Config
	logger     mls.Logger
	logFile    *os.File
	runID      string
	clock      mls.Clock
	tracker    *tracker.Tracker
	scanner    *scan.MediaScanner
	history    *history.Store
	remote     mls.Remote
	remoteName string
	passphrase remote.PassphraseFunc
}

// NewApp creates a wired App from the given config. The remote is not built
// here: only Sync needs one, and building it may prompt for a passphrase or
// touch the network. Call ConnectRemote before Sync. The caller must call
// Close when done.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	runID := uuid.New().String()

	extra := io.Writer(os.Stderr)
	if opts.Quiet {
		extra = io.Discard
	}
	logger, logFile, err := newLogger(cfg.LogDir, runID, extra)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	clock := mls.RealClock{}
	adapted := &slogAdapter{l: logger}

	trk, err := tracker.Load(cfg.Tracker.Path, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("loading tracker: %w", err)
	}

	hist, err := history.NewStoreFromConfig(cfg.History)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	return &App{
		cfg:        cfg,
		logger:     adapted,
		logFile:    logFile,
		runID:      runID,
		clock:      clock,
		tracker:    trk,
		scanner:    scan.NewMediaScanner(adapted),
		history:    hist,
		passphrase: opts.Passphrase,
	}, nil
}

// RunID identifies this invocation in the log and the history journal.
func (a *App) RunID() string { return a.runID }

// findRemote picks the remote config to use: the one matching name, or the
// first configured one when name is empty.
func (a *App) findRemote(name string) (config.RemoteConfig, error) {
	if len(a.cfg.Remotes) == 0 {
		return config.RemoteConfig{}, fmt.Errorf("no remotes configured")
	}
	if name == "" {
		return a.cfg.Remotes[0], nil
	}
	for _, rc := range a.cfg.Remotes {
		if rc.Name == name {
			return rc, nil
		}
	}
	return config.RemoteConfig{}, fmt.Errorf("no remote named %q in config", name)
}

// ConnectRemote builds the named remote (empty name means the first one).
// When validate is true the remote setup is checked before any upload is
// attempted; dry runs pass false so they stay fully offline.
func (a *App) ConnectRemote(ctx context.Context, name string, validate bool) error {
	rc, err := a.findRemote(name)
	if err != nil {
		return err
	}

	r, err := remote.NewRemoteFromConfig(ctx, rc, remote.Options{Passphrase: a.passphrase})
	if err != nil {
		return fmt.Errorf("creating remote %s: %w", rc.Name, err)
	}

	if validate {
		if err := r.ValidateSetup(ctx); err != nil {
			return fmt.Errorf("remote %s failed setup validation: %w", rc.Name, err)
		}
	}

	a.remote = r
	a.remoteName = rc.Name
	a.logger.Info("remote connected", "remote", rc.Name, "type", rc.Type, "validated", validate)
	return nil
}

// RemoteName returns the name of the connected remote, or "" before
// ConnectRemote.
func (a *App) RemoteName() string { return a.remoteName }

// resolveRoot picks the scan root: the explicit argument, or the configured
// library_root.
func (a *App) resolveRoot(root string) (string, error) {
	if root == "" {
		root = a.cfg.LibraryRoot
	}
	if root == "" {
		return "", fmt.Errorf("no library root: pass a directory or set library_root in config")
	}
	return root, nil
}

// extensions returns the configured extension filter, or the built-in media
// defaults.
func (a *App) extensions() mls.ExtensionSet {
	if len(a.cfg.Scan.Extensions) == 0 {
		return mls.DefaultExtensions()
	}
	return mls.NewExtensionSet(a.cfg.Scan.Extensions...)
}

// Sync runs one scan→filter→upload pass over root and journals the outcome.
// ConnectRemote must have been called first. Progress is reported through
// onProgress, which may be nil.
func (a *App) Sync(ctx context.Context, root string, dryRun bool, onProgress mls.ProgressFunc) (*mls.RunSummary, error) {
	if a.remote == nil {
		return nil, fmt.Errorf("no remote connected")
	}

	root, err := a.resolveRoot(root)
	if err != nil {
		return nil, err
	}

	engine := mls.NewEngine(a.scanner, a.tracker, a.remote, a.logger, a.clock)
	runCfg := mls.RunConfiguration{
		Root:       root,
		DryRun:     dryRun,
		Extensions: a.extensions(),
		Autosave:   a.cfg.Tracker.AutosaveEnabled(),
	}

	summary, runErr := engine.Run(ctx, runCfg, onProgress)
	a.journalRun(summary, runErr, root, dryRun)
	return summary, runErr
}

// journalRun appends the run outcome to the history journal. Journal write
// failures are logged, not returned: the sync result must survive them.
func (a *App) journalRun(summary *mls.RunSummary, runErr error, root string, dryRun bool) {
	var row history.Run
	if summary != nil {
		row = history.NewRun(a.runID, a.remoteName, summary)
		if runErr != nil {
			row.Detail = runErr.Error()
		}
	} else {
		// The run never started (unreadable root, bad configuration).
		now := a.clock.Now().UTC()
		row = history.Run{
			ID:         a.runID,
			Root:       root,
			Remote:     a.remoteName,
			State:      string(mls.StateFailed),
			DryRun:     dryRun,
			StartedAt:  now,
			FinishedAt: now,
		}
		if runErr != nil {
			row.Detail = runErr.Error()
		}
	}

	if err := a.history.RecordRun(context.Background(), row); err != nil {
		a.logger.Warn("recording run history failed", "error", err)
	}
}

// Scan lists the media files under root without touching the remote or the
// tracker.
func (a *App) Scan(root string) ([]mls.MediaFile, error) {
	root, err := a.resolveRoot(root)
	if err != nil {
		return nil, err
	}
	return a.scanner.Scan(root, a.extensions())
}

// FileStatus pairs a scanned media file with its tracked upload state.
// Tracked is false for files the tracker has never seen (pending).
type FileStatus struct {
	File    mls.MediaFile
	Tracked bool
	Status  mls.Status
	Detail  string
}

// Status scans root and reports each file's tracked state.
func (a *App) Status(root string) ([]FileStatus, error) {
	files, err := a.Scan(root)
	if err != nil {
		return nil, err
	}

	statuses := make([]FileStatus, 0, len(files))
	for _, f := range files {
		fs := FileStatus{File: f}
		if rec, ok := a.tracker.Get(f.Path); ok {
			fs.Tracked = true
			fs.Status = rec.Status
			fs.Detail = rec.Detail
		}
		statuses = append(statuses, fs)
	}
	return statuses, nil
}

// History returns the most recent runs from the journal, newest first.
func (a *App) History(ctx context.Context, limit int) ([]history.Run, error) {
	return a.history.ListRuns(ctx, limit)
}

// TrackerPath returns the location of the tracker database file.
func (a *App) TrackerPath() string { return a.tracker.Path() }

// TrackerLen returns the number of tracked files.
func (a *App) TrackerLen() int { return a.tracker.Len() }

// ExportTracker writes the tracker records to w in their persisted form.
func (a *App) ExportTracker(w io.Writer) error {
	return a.tracker.Export(w)
}

// Close releases the history journal and the log file.
func (a *App) Close() error {
	var firstErr error

	if a.history != nil {
		if err := a.history.Close(); err != nil {
			firstErr = fmt.Errorf("closing history: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
