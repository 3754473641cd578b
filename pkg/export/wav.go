package export

import (
	"context"
	"fmt"
	"os"

	"github.com/gopxl/beep/v2/wav"

	"podcastgo/pkg/audio"
)

// WAV encodes PCM WAV natively.
type WAV struct{}

// Ext implements Encoder.
func (WAV) Ext() string { return "wav" }

// Encode implements Encoder.
func (WAV) Encode(ctx context.Context, t *audio.Track, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := wav.Encode(f, t.Streamer(), t.Format()); err != nil {
		f.Close()
		return fmt.Errorf("wav encode failed: %w", err)
	}
	return f.Close()
}
