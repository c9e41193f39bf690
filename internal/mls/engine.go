package mls

import (
	"context"
	"fmt"
)

// Engine is the orchestration layer that drives one scan→filter→upload pass
// over a media library. It consumes the scanner's file list, consults the
// store to keep every file at-most-once across runs, hands pending files to
// the remote, and reports per-file progress to its caller.
type Engine struct {
	scanner Scanner
	store   Store
	remote  Remote
	logger  Logger
	clock   Clock
}

// NewEngine creates an Engine with the provided dependencies. A single
// remote per run is supported; fanning one library out to several remotes
// would need per-remote store state and is not implemented.
func NewEngine(scanner Scanner, store Store, remote Remote, logger Logger, clock Clock) *Engine {
	return &Engine{
		scanner: scanner,
		store:   store,
		remote:  remote,
		logger:  logger,
		clock:   clock,
	}
}

// Run executes one pass described by cfg and reports each file through
// onProgress (which may be nil). Files are processed strictly sequentially.
//
// Cancellation is cooperative: cancel ctx from any goroutine and the engine
// stops before the next file, reporting the rest as cancelled. An in-flight
// upload is never interrupted, so worst-case cancellation latency is one
// file's upload time.
//
// A failure to start (unreadable root) returns an error and no summary.
// Per-file upload errors never abort the pass: they are recorded in the
// store with StatusFailed so the next run retries them. If the final store
// save fails, Run returns the finished summary together with the error.
func (e *Engine) Run(ctx context.Context, cfg RunConfiguration, onProgress ProgressFunc) (*RunSummary, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("run configuration has no root directory")
	}
	allowed := cfg.Extensions
	if len(allowed) == 0 {
		allowed = DefaultExtensions()
	}

	started := e.clock.Now()
	summary := &RunSummary{
		State:   StateIdle,
		Root:    cfg.Root,
		DryRun:  cfg.DryRun,
		Started: started,
	}

	e.logger.Info("scan started", "state", StateScanning, "root", cfg.Root, "dry_run", cfg.DryRun)
	files, err := e.scanner.Scan(cfg.Root, allowed)
	if err != nil {
		e.logger.Error("scan failed", "state", StateFailed, "root", cfg.Root, "error", err)
		return nil, fmt.Errorf("scanning %s: %w", cfg.Root, err)
	}
	summary.Total = len(files)
	e.logger.Info("scan complete", "state", StateFiltering, "files", len(files))

	// Uploads run on a context detached from run cancellation: the cancel
	// request is polled between files, and a transfer already in flight is
	// left to finish or fail on its own.
	uploadCtx := context.WithoutCancel(ctx)

	e.logger.Debug("processing files", "state", StateUploading, "total", len(files))
	cancelled := false
	for i, f := range files {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			e.logger.Info("cancellation requested", "remaining", len(files)-i)
		}

		p := Progress{Index: i + 1, Total: len(files), File: f}
		switch {
		case cancelled:
			p.Outcome = OutcomeCancelled
			summary.Cancelled++

		case e.store.IsUploaded(f.Path):
			p.Outcome = OutcomeSkipped
			summary.Skipped++
			e.logger.Debug("already uploaded", "path", f.Path)

		case cfg.DryRun:
			p.Outcome = OutcomeUploaded
			p.Simulated = true
			summary.Uploaded++
			e.logger.Info("would upload", "path", f.Path)

		default:
			detail, err := e.remote.Upload(uploadCtx, f)
			if err != nil {
				p.Outcome = OutcomeFailed
				p.Detail = err.Error()
				summary.Failed++
				e.store.Record(f.Path, StatusFailed, err.Error())
				e.logger.Error("upload failed", "path", f.Path, "error", err)
			} else {
				p.Outcome = OutcomeUploaded
				p.Detail = detail
				summary.Uploaded++
				e.store.Record(f.Path, StatusUploaded, detail)
				e.logger.Info("uploaded", "path", f.Path, "remote", detail)
			}
			if cfg.Autosave {
				// Best effort: the end-of-run save covers a miss here.
				if err := e.store.Save(); err != nil {
					e.logger.Warn("tracker autosave failed", "error", err)
				}
			}
		}

		if onProgress != nil {
			onProgress(p)
		}
	}

	if cancelled {
		summary.State = StateCancelled
	} else {
		summary.State = StateCompleted
	}
	summary.Elapsed = e.clock.Now().Sub(started)

	// Dry runs must leave the persisted store byte-identical, so nothing
	// is saved, not even a rewrite of identical content.
	if !cfg.DryRun {
		if err := e.store.Save(); err != nil {
			e.logger.Error("tracker save failed", "error", err)
			return summary, fmt.Errorf("saving tracker: %w", err)
		}
	}

	e.logger.Info("run finished",
		"state", summary.State,
		"uploaded", summary.Uploaded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cancelled", summary.Cancelled,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}
