package script

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Labels used for the two sides of a review diff.
const (
	OriginalLabel = "Original AI Script"
	EditedLabel   = "Your Edited Version"
)

// DiffLine is one line of a side-by-side review.
type DiffLine struct {
	Op   string `json:"op"` // "equal", "insert", "delete"
	Text string `json:"text"`
}

// Diff returns a unified diff between the generated and the edited script.
// An empty string means the drafts are identical.
func Diff(original, edited string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(edited),
		FromFile: OriginalLabel,
		ToFile:   EditedLabel,
		Context:  3,
	})
}

// DiffLines returns a line-level review of every line in both drafts.
// Replaced lines appear as a delete followed by an insert.
func DiffLines(original, edited string) []DiffLine {
	a := splitKeep(original)
	b := splitKeep(edited)

	var out []DiffLine
	m := difflib.NewMatcher(a, b)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, s := range a[op.I1:op.I2] {
				out = append(out, DiffLine{Op: "equal", Text: s})
			}
		case 'd':
			for _, s := range a[op.I1:op.I2] {
				out = append(out, DiffLine{Op: "delete", Text: s})
			}
		case 'i':
			for _, s := range b[op.J1:op.J2] {
				out = append(out, DiffLine{Op: "insert", Text: s})
			}
		case 'r':
			for _, s := range a[op.I1:op.I2] {
				out = append(out, DiffLine{Op: "delete", Text: s})
			}
			for _, s := range b[op.J1:op.J2] {
				out = append(out, DiffLine{Op: "insert", Text: s})
			}
		}
	}
	return out
}

func splitKeep(s string) []string {
	if s == "" {
		return nil
	}
	lines := difflib.SplitLines(s)
	for i, l := range lines {
		lines[i] = trimNewline(l)
	}
	// SplitLines appends a trailing empty element when s ends with a newline.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
