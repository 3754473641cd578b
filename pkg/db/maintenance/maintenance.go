package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"podcastgo/pkg/db"
)

const (
	lastRunStateKey = "maintenance_last_run"
	scriptRetention = 30 * 24 * time.Hour
)

// Options controls a maintenance pass.
type Options struct {
	// OutputDir is swept for leftovers of interrupted runs.
	OutputDir string
	// Patterns are glob patterns, relative to OutputDir, of transient files.
	Patterns []string
	// MinAge protects files that may belong to a run still in progress.
	MinAge time.Duration
}

// Run executes all maintenance tasks: transient sweep and script pruning.
// Failures are logged; it blocks until completion.
func Run(ctx context.Context, d *db.DB, opts Options) error {
	slog.Info("Starting maintenance...")

	removed, err := sweep(opts, time.Now())
	if err != nil {
		slog.Error("Transient sweep failed", "error", err)
	} else {
		slog.Info("Transient sweep completed", "removed", removed)
	}

	if d != nil {
		if err := pruneScripts(ctx, d); err != nil {
			slog.Error("Script pruning failed", "error", err)
		} else {
			slog.Info("Script pruning completed")
		}
		if err := d.SetState(ctx, lastRunStateKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to update state: %w", err)
		}
	}

	return nil
}

// LastRun returns when maintenance last completed.
func LastRun(ctx context.Context, d *db.DB) (time.Time, bool) {
	val, ok := d.GetState(ctx, lastRunStateKey)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sweep(opts Options, now time.Time) (int, error) {
	if opts.OutputDir == "" {
		return 0, nil
	}
	removed := 0
	for _, pattern := range opts.Patterns {
		matches, err := filepath.Glob(filepath.Join(opts.OutputDir, pattern))
		if err != nil {
			return removed, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			if now.Sub(info.ModTime()) < opts.MinAge {
				continue
			}
			if err := os.Remove(path); err != nil {
				slog.Warn("Failed to remove leftover file", "path", path, "error", err)
				continue
			}
			slog.Debug("Removed leftover file", "path", path)
			removed++
		}
	}
	return removed, nil
}

// pruneScripts removes archived scripts older than 30 days.
func pruneScripts(ctx context.Context, d *db.DB) error {
	deadline := time.Now().Add(-scriptRetention).UTC()
	_, err := d.ExecContext(ctx, "DELETE FROM scripts WHERE created_at < ?", deadline)
	return err
}
