// Package audio holds decoded speech clips and assembles them into a track.
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
)

// Clip is a fully decoded piece of audio held in memory.
type Clip struct {
	buf *beep.Buffer
}

// NewClip buffers s completely in the given format.
func NewClip(format beep.Format, s beep.Streamer) (*Clip, error) {
	buf := beep.NewBuffer(format)
	buf.Append(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to buffer audio: %w", err)
	}
	return &Clip{buf: buf}, nil
}

// Silence returns a clip of silence lasting d.
func Silence(format beep.Format, d time.Duration) *Clip {
	buf := beep.NewBuffer(format)
	if n := format.SampleRate.N(d); n > 0 {
		buf.Append(generators.Silence(n))
	}
	return &Clip{buf: buf}
}

// Format returns the clip's sample format.
func (c *Clip) Format() beep.Format { return c.buf.Format() }

// Len returns the number of samples.
func (c *Clip) Len() int { return c.buf.Len() }

// Duration returns the playing time.
func (c *Clip) Duration() time.Duration {
	return c.buf.Format().SampleRate.D(c.buf.Len())
}

// Streamer returns a fresh streamer over the whole clip.
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buf.Streamer(0, c.buf.Len())
}

// WriteWAV encodes the clip as a WAV file.
func (c *Clip) WriteWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	if err := wav.Encode(f, c.Streamer(), c.Format()); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return f.Close()
}
