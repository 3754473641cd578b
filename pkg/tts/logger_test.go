package tts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tts.log")
	SetLogPath(path)
	t.Cleanup(func() { SetLogPath("logs/tts.log") })

	Log("PIPER", "Hello there", 0, nil)
	Log("PIPER", "Second", 0, errors.New("exit status 1"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[PIPER] STATUS: 0") {
		t.Errorf("missing status line: %s", content)
	}
	if !strings.Contains(content, "ERROR(exit status 1)") {
		t.Errorf("missing error line: %s", content)
	}
	if strings.Count(content, "TEXT:") != 2 {
		t.Errorf("expected two entries: %s", content)
	}
}
