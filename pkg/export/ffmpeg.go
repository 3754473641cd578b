package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"podcastgo/pkg/audio"
	"podcastgo/pkg/config"
)

// DefaultBitrate matches the encoder setting the mixes have always used.
const DefaultBitrate = config.Bitrate(192000)

// FFmpeg encodes MP3 by handing an intermediate WAV to the ffmpeg binary.
type FFmpeg struct {
	binary  string
	bitrate config.Bitrate
}

// NewFFmpeg creates an MP3 encoder.
func NewFFmpeg(binary string, bitrate config.Bitrate) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return &FFmpeg{binary: binary, bitrate: bitrate}
}

// Ext implements Encoder.
func (e *FFmpeg) Ext() string { return "mp3" }

// Binary returns the configured executable.
func (e *FFmpeg) Binary() string { return e.binary }

// Args returns the ffmpeg arguments for converting in to out.
func (e *FFmpeg) Args(in, out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-codec:a", "libmp3lame",
		"-b:a", e.bitrate.String(),
		"-f", "mp3",
		out,
	}
}

// Encode implements Encoder.
func (e *FFmpeg) Encode(ctx context.Context, t *audio.Track, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mix-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create intermediate wav: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := (WAV{}).Encode(ctx, t, tmpPath); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.binary, e.Args(tmpPath, path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error running ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
