// Package export encodes an assembled track into the final mix file.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podcastgo/pkg/audio"
	"podcastgo/pkg/config"
)

// PartialSuffix marks a mix that is still being written.
const PartialSuffix = ".partial"

// Error is a failed export.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Encoder writes a track to a file.
type Encoder interface {
	// Ext is the file extension without the dot.
	Ext() string
	// Encode writes t to path, creating or truncating it.
	Encode(ctx context.Context, t *audio.Track, path string) error
}

// New returns the encoder for cfg.Format.
func New(cfg config.ExportConfig) (Encoder, error) {
	switch strings.ToLower(cfg.Format) {
	case config.FormatMP3, "":
		return NewFFmpeg(cfg.FFmpeg, cfg.Bitrate), nil
	case config.FormatWAV:
		return WAV{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", cfg.Format)
	}
}

// Write encodes t to dir/name atomically: the file appears only when complete.
// On failure nothing is left at the target path.
func Write(ctx context.Context, enc Encoder, t *audio.Track, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{Path: dir, Err: err}
	}

	final := filepath.Join(dir, name)
	partial := final + PartialSuffix

	if err := enc.Encode(ctx, t, partial); err != nil {
		removeQuiet(partial)
		return "", &Error{Path: final, Err: err}
	}
	if err := os.Rename(partial, final); err != nil {
		removeQuiet(partial)
		return "", &Error{Path: final, Err: err}
	}

	slog.Info("Export: mix written", "path", final, "duration", t.Duration())
	return final, nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Export: failed to remove partial file", "path", path, "error", err)
	}
}
