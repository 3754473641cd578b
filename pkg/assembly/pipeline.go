// Package assembly turns an edited script and a voice mapping into one mixed audio file.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"podcastgo/pkg/audio"
	"podcastgo/pkg/config"
	"podcastgo/pkg/export"
	"podcastgo/pkg/history"
	"podcastgo/pkg/script"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/voice"
)

// ErrUnmappedSpeaker fails a run that must not skip speakers without a voice.
var ErrUnmappedSpeaker = errors.New("speaker has no usable voice")

// Rand draws pause lengths. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Recorder receives one entry per successful run.
type Recorder interface {
	Add(ctx context.Context, e history.Entry) error
}

// Request is one run's input.
type Request struct {
	Script   string        `json:"script"`
	Voices   voice.Mapping `json:"voices"`
	Topic    string        `json:"topic"`
	Duration string        `json:"duration"` // requested minutes, recorded in history
}

// Result describes a finished mix.
type Result struct {
	Filename string          `json:"filename"`
	Path     string          `json:"path"`
	Duration time.Duration   `json:"duration"`
	Spoken   int             `json:"spoken"`
	Skipped  int             `json:"skipped"`
	Gaps     []time.Duration `json:"-"`
}

// Pipeline runs assemblies. It is safe for concurrent use; with the shared
// transient strategy, runs on the same output directory take turns.
type Pipeline struct {
	engine   tts.Provider
	voices   voice.Lister
	encoder  export.Encoder
	opts     Options
	recorder Recorder
	rand     Rand
	now      func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRecorder hands each successful run to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithRand replaces the pause randomness.
func WithRand(r Rand) Option {
	return func(p *Pipeline) { p.rand = r }
}

// WithClock replaces the clock used for artifact names and history dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline.
func New(engine tts.Provider, voices voice.Lister, encoder export.Encoder, opts Options, options ...Option) *Pipeline {
	p := &Pipeline{
		engine:  engine,
		voices:  voices,
		encoder: encoder,
		opts:    opts,
		rand:    globalRand{},
		now:     time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Options returns the run settings.
func (p *Pipeline) Options() Options { return p.opts }

// Run assembles req into a mix artifact. On error no artifact exists and no
// transient file is left behind.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			slog.Error("Assembly: run failed", "topic", req.Topic, "error", err, "elapsed", time.Since(start))
		}
	}()

	if err := p.opts.validate(); err != nil {
		return nil, &voice.ConfigError{Err: err}
	}

	lines := script.Parse(req.Script)
	speakers := script.Speakers(lines)

	report, err := voice.Resolve(ctx, p.voices, speakers)
	if err != nil {
		return nil, err
	}
	if report.Warning != "" {
		slog.Warn("Assembly: "+report.Warning, "topic", req.Topic)
	}
	mapping := usable(req.Voices, report.Voices)

	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return nil, &export.Error{Path: p.opts.OutputDir, Err: err}
	}

	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r := &run{p: p, mapping: mapping}
	if p.opts.Transient == config.TransientShared {
		// A crashed run may have left the shared file behind.
		r.transients = append(r.transients, p.opts.sharedPath())
	}
	defer r.cleanup()

	if !p.opts.SkipMissing {
		if missing := mapping.Unassigned(speakers); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnmappedSpeaker, strings.Join(missing, ", "))
		}
	}

	track := audio.NewTrack(p.opts.Format, p.opts.LeadIn)
	for i, line := range lines {
		if err := r.line(ctx, track, i, line); err != nil {
			return nil, err
		}
	}

	filename, unreserve := p.reserveName()
	defer unreserve()
	path, err := export.Write(ctx, p.encoder, track, p.opts.OutputDir, filename)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Filename: filename,
		Path:     path,
		Duration: track.Duration(),
		Spoken:   r.spoken,
		Skipped:  r.skipped,
		Gaps:     track.Gaps(),
	}
	slog.Info("Assembly: run complete",
		"file", filename, "spoken", r.spoken, "skipped", r.skipped,
		"duration", res.Duration.Round(time.Millisecond), "elapsed", time.Since(start))

	if p.recorder != nil {
		entry := history.NewEntry(filename, req.Topic, req.Duration, req.Script, p.now())
		if herr := p.recorder.Add(ctx, entry); herr != nil {
			slog.Warn("Assembly: failed to record history", "file", filename, "error", herr)
		}
	}
	return res, nil
}

// run is the per-run state.
type run struct {
	p          *Pipeline
	mapping    voice.Mapping
	transients []string
	spoken     int
	skipped    int
}

func (r *run) line(ctx context.Context, track *audio.Track, i int, line script.Line) error {
	voiceID, ok := r.mapping.Voice(line.Speaker)
	if !ok {
		slog.Debug("Assembly: skipping line without voice", "line", i+1, "speaker", line.Speaker)
		r.skipped++
		return nil
	}

	path := r.transientPath()
	clip, err := r.synthesize(ctx, i, voiceID, line.Text, path)
	removeQuiet(path)
	if err != nil {
		return err
	}

	if err := track.Append(clip, r.p.gap()); err != nil {
		return tts.Wrap(tts.NewError(tts.KindDecode, err), i, voiceID)
	}
	r.spoken++
	return nil
}

func (r *run) synthesize(ctx context.Context, i int, voiceID, text, path string) (*audio.Clip, error) {
	lineCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.p.opts.LineTimeout > 0 {
		lineCtx, cancel = context.WithTimeout(ctx, r.p.opts.LineTimeout)
	}
	defer cancel()

	if _, err := r.p.engine.Synthesize(lineCtx, text, voiceID, path); err != nil {
		return nil, tts.Wrap(err, i, voiceID)
	}
	clip, err := audio.Decode(path)
	if err != nil {
		return nil, tts.Wrap(tts.NewError(tts.KindDecode, err), i, voiceID)
	}
	return clip, nil
}

func (r *run) transientPath() string {
	if r.p.opts.Transient != config.TransientUnique {
		return r.p.opts.sharedPath()
	}
	path := filepath.Join(r.p.opts.OutputDir, UniqueTransientPrefix+uuid.NewString()+".wav")
	r.transients = append(r.transients, path)
	return path
}

// cleanup removes the shared path and every unique path handed to the engine.
func (r *run) cleanup() {
	for _, path := range r.transients {
		removeQuiet(path)
	}
	r.transients = nil
}

func (p *Pipeline) gap() time.Duration {
	lo, hi := p.opts.GapMin.Milliseconds(), p.opts.GapMax.Milliseconds()
	return time.Duration(lo+int64(p.rand.IntN(int(hi-lo+1)))) * time.Millisecond
}

var (
	namesMu  sync.Mutex
	reserved = map[string]bool{}
)

// reserveName picks podcast_<unix>.<ext>, adding a counter if that name is
// taken on disk or by a run still exporting.
func (p *Pipeline) reserveName() (string, func()) {
	namesMu.Lock()
	defer namesMu.Unlock()

	base := fmt.Sprintf("podcast_%d", p.now().Unix())
	ext := "." + p.encoder.Ext()
	name := base + ext
	for n := 2; reserved[p.nameKey(name)] || exists(filepath.Join(p.opts.OutputDir, name)); n++ {
		name = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	key := p.nameKey(name)
	reserved[key] = true
	return name, func() {
		namesMu.Lock()
		delete(reserved, key)
		namesMu.Unlock()
	}
}

func (p *Pipeline) nameKey(name string) string {
	return filepath.Join(p.opts.OutputDir, name)
}

// usable drops assignments whose voice is not available.
func usable(m voice.Mapping, available []string) voice.Mapping {
	unknown := m.Check(available)
	if len(unknown) == 0 {
		return m
	}
	slog.Warn("Assembly: assigned voices not found", "speakers", strings.Join(unknown, ", "))
	out := make(voice.Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, s := range unknown {
		delete(out, s)
	}
	return out
}

var slots sync.Map // transient path -> *semaphore.Weighted

// acquire takes the single slot guarding the shared transient path.
func (p *Pipeline) acquire(ctx context.Context) (func(), error) {
	if p.opts.Transient != config.TransientShared {
		return func() {}, nil
	}
	v, _ := slots.LoadOrStore(p.opts.sharedPath(), semaphore.NewWeighted(1))
	sem := v.(*semaphore.Weighted)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for transient slot: %w", err)
	}
	return func() { sem.Release(1) }, nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Assembly: failed to remove transient file", "path", path, "error", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }
