package tts

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsFatalError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "FatalError 429",
			err:      NewFatalError(429, "Too Many Requests"),
			expected: true,
		},
		{
			name:     "FatalError 500",
			err:      NewFatalError(500, "Internal Server Error"),
			expected: true,
		},
		{
			name:     "Standard Error",
			err:      errors.New("some regular error"),
			expected: false,
		},
		{
			name:     "Nil Error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatalError(tt.err); got != tt.expected {
				t.Errorf("IsFatalError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsFatalError_Wrapped(t *testing.T) {
	err := fmt.Errorf("azure: %w", NewFatalError(503, "unavailable"))
	if !IsFatalError(err) {
		t.Error("expected wrapped FatalError to be detected")
	}
}

func TestVoiceIDs(t *testing.T) {
	ids := VoiceIDs([]Voice{{ID: "b"}, {ID: "a"}})
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
