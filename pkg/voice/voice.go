// Package voice discovers voice models and validates speaker/voice assignments.
package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoVoices is returned when no voice model is available at all.
var ErrNoVoices = errors.New("no voice models available")

// ConfigError reports a setup problem detected before any synthesis starts.
type ConfigError struct {
	Dir string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %v (looked in %s)", e.Err, e.Dir)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Lister lists available voice identifiers in sorted order.
type Lister interface {
	Voices(ctx context.Context) ([]string, error)
}

// Catalog scans a directory for voice model files.
type Catalog struct {
	dir string
	ext string
}

// NewCatalog creates a catalog for dir. ext includes the dot (".onnx").
func NewCatalog(dir, ext string) *Catalog {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Catalog{dir: dir, ext: ext}
}

// Dir returns the scanned directory.
func (c *Catalog) Dir() string { return c.dir }

// Path returns the full path of a voice identifier.
func (c *Catalog) Path(id string) string {
	return filepath.Join(c.dir, id)
}

// Voices returns the sorted file names carrying the catalog's extension.
// A missing directory yields an empty list.
func (c *Catalog) Voices(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan voice directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if c.ext != "" && !strings.HasSuffix(e.Name(), c.ext) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Static is a fixed voice list, used by remote engines whose voices are not files.
type Static []string

// Voices returns a sorted copy of the list.
func (s Static) Voices(ctx context.Context) ([]string, error) {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out, nil
}
