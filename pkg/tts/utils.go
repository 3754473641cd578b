package tts

import (
	"fmt"
	"os"
	"strings"
)

var shellQuoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`$`, `\$`,
	"`", "\\`",
)

// EscapeQuotes escapes text for use inside a double-quoted POSIX shell word.
func EscapeQuotes(text string) string {
	return shellQuoteEscaper.Replace(text)
}

// ShellQuote wraps s in single quotes for the shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// VerifyAudioFile checks that path exists and is large enough to hold audio.
func VerifyAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file missing: %w", err)
	}
	if info.Size() < MinAudioSize {
		return fmt.Errorf("audio file too small (%d bytes): %s", info.Size(), path)
	}
	return nil
}
