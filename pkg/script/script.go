// Package script parses podcast dialogue scripts into speaker lines.
//
// A script is plain text with one utterance per physical line in the form
// "Speaker: text". Lines without a colon, or with nothing before it, are not
// spoken and are dropped without error.
package script

import (
	"sort"
	"strings"
)

// Line is one parsed (speaker, utterance) unit.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// String renders the line in script form.
func (l Line) String() string {
	return l.Speaker + ": " + l.Text
}

// Parse splits raw script text into lines in presentation order.
func Parse(raw string) []Line {
	var lines []Line
	for _, physical := range strings.Split(raw, "\n") {
		physical = strings.TrimSpace(physical)
		if physical == "" {
			continue
		}

		speaker, text, ok := strings.Cut(physical, ":")
		if !ok {
			continue
		}
		speaker = strings.TrimSpace(speaker)
		if speaker == "" {
			continue
		}

		lines = append(lines, Line{Speaker: speaker, Text: strings.TrimSpace(text)})
	}
	return lines
}

// Speakers returns the distinct speaker labels of lines, sorted.
func Speakers(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	var out []string
	for _, l := range lines {
		if _, ok := seen[l.Speaker]; ok {
			continue
		}
		seen[l.Speaker] = struct{}{}
		out = append(out, l.Speaker)
	}
	sort.Strings(out)
	return out
}

// SpeakersOf is a shortcut for Speakers(Parse(raw)).
func SpeakersOf(raw string) []string {
	return Speakers(Parse(raw))
}

// Render joins lines back into script text.
func Render(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}

// WordCount counts the spoken words of lines (speaker labels excluded).
func WordCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += len(strings.Fields(l.Text))
	}
	return n
}
