package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
)

// resampleQuality is passed to beep.Resample when a clip's rate differs from the track.
const resampleQuality = 4

// SegmentKind tags a stretch of the track.
type SegmentKind string

const (
	SegmentLeadIn SegmentKind = "lead-in"
	SegmentClip   SegmentKind = "clip"
	SegmentGap    SegmentKind = "gap"
)

// Segment records one appended stretch, in samples.
type Segment struct {
	Kind    SegmentKind
	Samples int
}

// Track is the mix under construction. Samples are appended, never reordered.
type Track struct {
	buf      *beep.Buffer
	segments []Segment
}

// NewTrack starts a track with leadIn of silence.
func NewTrack(format beep.Format, leadIn time.Duration) *Track {
	t := &Track{buf: beep.NewBuffer(format)}
	t.appendSilence(SegmentLeadIn, leadIn)
	return t
}

// Append adds a clip followed by gap of silence.
func (t *Track) Append(c *Clip, gap time.Duration) error {
	if err := t.AppendClip(c); err != nil {
		return err
	}
	t.appendSilence(SegmentGap, gap)
	return nil
}

// AppendClip adds a clip, resampling it to the track's rate.
func (t *Track) AppendClip(c *Clip) error {
	var s beep.Streamer = c.Streamer()
	from, to := c.Format().SampleRate, t.buf.Format().SampleRate
	if from != to {
		s = beep.Resample(resampleQuality, from, to, s)
	}

	before := t.buf.Len()
	t.buf.Append(s)
	if err := s.Err(); err != nil {
		return fmt.Errorf("failed to append clip: %w", err)
	}
	t.segments = append(t.segments, Segment{Kind: SegmentClip, Samples: t.buf.Len() - before})
	return nil
}

func (t *Track) appendSilence(kind SegmentKind, d time.Duration) {
	n := t.buf.Format().SampleRate.N(d)
	if n <= 0 {
		return
	}
	t.buf.Append(generators.Silence(n))
	t.segments = append(t.segments, Segment{Kind: kind, Samples: n})
}

// Format returns the track's sample format.
func (t *Track) Format() beep.Format { return t.buf.Format() }

// Len returns the total number of samples.
func (t *Track) Len() int { return t.buf.Len() }

// Duration returns the total playing time.
func (t *Track) Duration() time.Duration {
	return t.buf.Format().SampleRate.D(t.buf.Len())
}

// Segments returns a copy of the segment ledger.
func (t *Track) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

// Clips returns the number of clips appended.
func (t *Track) Clips() int {
	n := 0
	for _, s := range t.segments {
		if s.Kind == SegmentClip {
			n++
		}
	}
	return n
}

// Gaps returns the duration of each gap in order.
func (t *Track) Gaps() []time.Duration {
	var out []time.Duration
	for _, s := range t.segments {
		if s.Kind == SegmentGap {
			out = append(out, t.buf.Format().SampleRate.D(s.Samples))
		}
	}
	return out
}

// Streamer returns a streamer over the whole track.
func (t *Track) Streamer() beep.StreamSeeker {
	return t.buf.Streamer(0, t.buf.Len())
}
