package tts

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

func TestVerifyAudioFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("FileDoesNotExist", func(t *testing.T) {
		err := VerifyAudioFile(filepath.Join(tmpDir, "missing.mp3"))
		if err == nil {
			t.Error("expected error for missing file, got nil")
		}
	})

	t.Run("FileTooSmall", func(t *testing.T) {
		path := filepath.Join(tmpDir, "small.mp3")
		if err := os.WriteFile(path, make([]byte, 512), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		err := VerifyAudioFile(path)
		if err == nil {
			t.Error("expected error for small file, got nil")
		}
	})

	t.Run("FileValid", func(t *testing.T) {
		path := filepath.Join(tmpDir, "valid.mp3")
		if err := os.WriteFile(path, make([]byte, MinAudioSize+1), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		err := VerifyAudioFile(path)
		if err != nil {
			t.Errorf("expected no error for valid file, got: %v", err)
		}
	})
}

func TestEscapeQuotes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`say "hi"`, `say \"hi\"`},
		{`cost $5`, `cost \$5`},
		{"run `id`", "run \\`id\\`"},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := EscapeQuotes(tt.in); got != tt.want {
			t.Errorf("EscapeQuotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeQuotes_ShellRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	text := "He said \"it's $HOME\" and `whoami` \\ done"
	out, err := exec.Command("sh", "-c", `printf '%s' "`+EscapeQuotes(text)+`"`).Output()
	if err != nil {
		t.Fatalf("shell failed: %v", err)
	}
	if string(out) != text {
		t.Errorf("shell saw %q, want %q", out, text)
	}
}

func TestShellQuote(t *testing.T) {
	if got := ShellQuote("it's"); got != `'it'\''s'` {
		t.Errorf("unexpected quoting: %s", got)
	}
}
