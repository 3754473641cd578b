// Package scriptgen turns a topic and target duration into a raw dialogue script.
package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"podcastgo/pkg/db"
	"podcastgo/pkg/llm"
	"podcastgo/pkg/llm/prompts"
	"podcastgo/pkg/script"
)

// DefaultWordsPerMinute is the speaking rate used to size scripts.
const DefaultWordsPerMinute = 150

const scriptTemplate = "script.tmpl"

// DefaultSpeakers are the two roles the prompt asks for. The first one opens.
var DefaultSpeakers = []string{"Host", "Expert"}

// ErrEmptyScript is returned when the model answers with no usable text.
var ErrEmptyScript = errors.New("model returned an empty script")

// Archive stores every generated script for later reference.
type Archive interface {
	SaveScript(ctx context.Context, s db.GeneratedScript) (int64, error)
}

// Request describes the script to write. Minutes is kept as typed by the user.
type Request struct {
	Topic   string `json:"topic"`
	Minutes string `json:"duration"`
}

// Script is a generated, not yet edited, dialogue.
type Script struct {
	ID       int64    `json:"id,omitempty"`
	Topic    string   `json:"topic"`
	Minutes  string   `json:"duration"`
	Words    int      `json:"target_words"`
	Text     string   `json:"script"`
	Speakers []string `json:"speakers"`
}

// Generator renders the script prompt and asks the LLM for a dialogue.
type Generator struct {
	llm      llm.Provider
	prompts  *prompts.Manager
	archive  Archive
	model    string
	wpm      int
	speakers []string
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithArchive records each generated script.
func WithArchive(a Archive, model string) Option {
	return func(g *Generator) {
		g.archive = a
		g.model = model
	}
}

// WithWordsPerMinute overrides the speaking rate.
func WithWordsPerMinute(wpm int) Option {
	return func(g *Generator) {
		if wpm > 0 {
			g.wpm = wpm
		}
	}
}

// WithSpeakers overrides the speaker roles.
func WithSpeakers(speakers ...string) Option {
	return func(g *Generator) {
		if len(speakers) > 0 {
			g.speakers = speakers
		}
	}
}

// New creates a Generator.
func New(p llm.Provider, pm *prompts.Manager, opts ...Option) *Generator {
	g := &Generator{
		llm:      p,
		prompts:  pm,
		wpm:      DefaultWordsPerMinute,
		speakers: DefaultSpeakers,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// TargetWords converts a duration in minutes into a word budget.
// Anything that is not a positive finite number counts as one minute.
func TargetWords(minutes string, wpm int) int {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	m, err := strconv.ParseFloat(strings.TrimSpace(minutes), 64)
	if err != nil || m <= 0 || math.IsInf(m, 0) || math.IsNaN(m) {
		return wpm
	}
	words := int(m * float64(wpm))
	if words < 1 {
		return wpm
	}
	return words
}

// Prompt renders the generation prompt for req.
func (g *Generator) Prompt(req Request) (string, error) {
	data := struct {
		Topic    string
		Words    int
		Speakers []string
		First    string
	}{
		Topic:    strings.TrimSpace(req.Topic),
		Words:    TargetWords(req.Minutes, g.wpm),
		Speakers: g.speakers,
		First:    g.speakers[0],
	}
	return g.prompts.Render(scriptTemplate, data)
}

// Generate asks the model for a script. The text is returned as-is apart from
// surrounding whitespace and code fences; the caller edits it before assembly.
func (g *Generator) Generate(ctx context.Context, req Request) (*Script, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}

	prompt, err := g.Prompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to render script prompt: %w", err)
	}

	raw, err := g.llm.GenerateText(ctx, "script", prompt)
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	text := llm.StripCodeFence(raw)
	if text == "" {
		return nil, ErrEmptyScript
	}

	lines := script.Parse(text)
	s := &Script{
		Topic:    strings.TrimSpace(req.Topic),
		Minutes:  req.Minutes,
		Words:    TargetWords(req.Minutes, g.wpm),
		Text:     text,
		Speakers: script.Speakers(lines),
	}
	if len(lines) == 0 {
		slog.Warn("ScriptGen: response has no speaker lines", "topic", s.Topic)
	}

	slog.Info("ScriptGen: script generated",
		"topic", s.Topic,
		"target_words", s.Words,
		"words", script.WordCount(lines),
		"lines", len(lines),
		"speakers", s.Speakers)

	g.store(ctx, s)
	return s, nil
}

func (g *Generator) store(ctx context.Context, s *Script) {
	if g.archive == nil {
		return
	}
	minutes, _ := strconv.ParseFloat(strings.TrimSpace(s.Minutes), 64)
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		minutes = 0
	}
	id, err := g.archive.SaveScript(ctx, db.GeneratedScript{
		Topic:     s.Topic,
		Minutes:   minutes,
		Model:     g.model,
		Script:    s.Text,
		CreatedAt: g.now(),
	})
	if err != nil {
		slog.Warn("ScriptGen: failed to archive script", "error", err)
		return
	}
	s.ID = id
}
