package tts

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a synthesis failure.
type Kind string

const (
	KindLaunch   Kind = "launch"   // engine could not be started
	KindExit     Kind = "exit"     // engine ran and reported failure
	KindTimeout  Kind = "timeout"  // engine exceeded its time limit
	KindDecode   Kind = "decode"   // output missing or unreadable
	KindRemote   Kind = "remote"   // remote service refused or failed
	KindCanceled Kind = "canceled" // caller gave up
)

// SynthesisError is a failed synthesis of one line.
type SynthesisError struct {
	Kind  Kind
	Line  int // zero-based index into the parsed script, -1 when unknown
	Voice string
	Err   error
}

func (e *SynthesisError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("synthesis %s on line %d (voice %q): %v", e.Kind, e.Line+1, e.Voice, e.Err)
	}
	return fmt.Sprintf("synthesis %s: %v", e.Kind, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// NewError creates a SynthesisError not yet tied to a script line.
func NewError(kind Kind, err error) *SynthesisError {
	return &SynthesisError{Kind: kind, Line: -1, Err: err}
}

// Wrap attaches line and voice to err, classifying it when the engine did not.
func Wrap(err error, line int, voice string) *SynthesisError {
	var se *SynthesisError
	if errors.As(err, &se) {
		out := *se
		out.Line = line
		out.Voice = voice
		return &out
	}
	return &SynthesisError{Kind: classify(err), Line: line, Voice: voice, Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case IsFatalError(err):
		return KindRemote
	default:
		return KindExit
	}
}

// IsTimeout reports whether err is a synthesis timeout.
func IsTimeout(err error) bool {
	var se *SynthesisError
	return errors.As(err, &se) && se.Kind == KindTimeout
}

// KindOf returns the kind of a SynthesisError, or "" for other errors.
func KindOf(err error) Kind {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
