package audio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// Decode reads a WAV or MP3 file fully into memory.
// The container is detected from the file header, not the extension.
func Decode(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head, _ := r.Peek(12)

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if isWAV(head) {
		streamer, format, err = wav.Decode(r)
	} else {
		streamer, format, err = mp3.Decode(io.NopCloser(r))
	}
	if err != nil {
		slog.Error("Failed to decode audio file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer streamer.Close()

	return NewClip(format, streamer)
}

func isWAV(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE"))
}
