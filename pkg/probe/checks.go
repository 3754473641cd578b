package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"podcastgo/pkg/voice"
)

// HealthChecker is satisfied by LLM providers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Voices fails when the lister reports no voice models.
func Voices(l voice.Lister) CheckFunc {
	return func(ctx context.Context) error {
		ids, err := l.Voices(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return voice.ErrNoVoices
		}
		return nil
	}
}

// Binary fails when name cannot be found on PATH (or at the given path).
func Binary(name string) CheckFunc {
	return func(ctx context.Context) error {
		if name == "" {
			return fmt.Errorf("no binary configured")
		}
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found: %w", name, err)
		}
		return nil
	}
}

// WritableDir creates dir if needed and verifies a file can be written in it.
func WritableDir(dir string) CheckFunc {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return fmt.Errorf("output dir not writable: %w", err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(filepath.Clean(name))
	}
}

// Health delegates to a provider's own health check.
func Health(h HealthChecker) CheckFunc {
	return func(ctx context.Context) error {
		return h.HealthCheck(ctx)
	}
}
