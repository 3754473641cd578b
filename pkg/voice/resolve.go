package voice

import (
	"context"
	"sort"
)

// Mapping assigns a voice identifier to each speaker label.
type Mapping map[string]string

// Voice returns the assigned voice for speaker, if any.
// An empty assignment counts as missing.
func (m Mapping) Voice(speaker string) (string, bool) {
	v, ok := m[speaker]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Check returns the speakers whose assigned voice is not in voices, sorted.
func (m Mapping) Check(voices []string) []string {
	known := make(map[string]struct{}, len(voices))
	for _, v := range voices {
		known[v] = struct{}{}
	}
	var out []string
	for speaker, v := range m {
		if v == "" {
			continue
		}
		if _, ok := known[v]; !ok {
			out = append(out, speaker)
		}
	}
	sort.Strings(out)
	return out
}

// Unassigned returns the speakers with no voice in m, sorted.
func (m Mapping) Unassigned(speakers []string) []string {
	var out []string
	for _, s := range speakers {
		if _, ok := m.Voice(s); !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// WarnNoSpeakers is reported when a script yields no parseable lines.
const WarnNoSpeakers = "no speakers (e.g. 'Host:') were detected in the script"

// Report is what a voice assigner is shown.
type Report struct {
	Speakers []string `json:"speakers"`
	Voices   []string `json:"voices"`
	Warning  string   `json:"warning,omitempty"`
}

// Validate checks the inputs needed to present a voice choice.
// It fails with a ConfigError wrapping ErrNoVoices when voices is empty and
// warns, without failing, when speakers is empty.
func Validate(speakers, voices []string) (*Report, error) {
	if len(voices) == 0 {
		return nil, &ConfigError{Err: ErrNoVoices}
	}

	r := &Report{
		Speakers: sortedCopy(speakers),
		Voices:   sortedCopy(voices),
	}
	if len(r.Speakers) == 0 {
		r.Warning = WarnNoSpeakers
	}
	return r, nil
}

// Resolve lists voices from l and validates them against speakers.
func Resolve(ctx context.Context, l Lister, speakers []string) (*Report, error) {
	voices, err := l.Voices(ctx)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	r, err := Validate(speakers, voices)
	if err != nil {
		if c, ok := l.(*Catalog); ok {
			return nil, &ConfigError{Dir: c.Dir(), Err: ErrNoVoices}
		}
		return nil, err
	}
	return r, nil
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
