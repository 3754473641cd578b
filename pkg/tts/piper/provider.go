// Package piper runs the Piper command-line engine, one process per utterance.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"podcastgo/pkg/config"
	"podcastgo/pkg/tracker"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/voice"
)

const (
	// TextModeStdin writes the utterance to the engine's standard input.
	TextModeStdin = "stdin"
	// TextModeShell pipes the escaped, double-quoted text through printf into the engine via sh.
	TextModeShell = "shell"

	trackerName = "piper"
	stderrTail  = 512
)

// Provider implements tts.Provider for Piper.
type Provider struct {
	binary    string
	textMode  string
	voicesDir string
	catalog   *voice.Catalog
	tracker   *tracker.Tracker
}

// NewProvider creates a Piper provider resolving voices inside paths.VoicesDir.
func NewProvider(cfg config.PiperConfig, paths config.PathsConfig, t *tracker.Tracker) *Provider {
	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}
	mode := cfg.TextMode
	if mode == "" {
		mode = TextModeStdin
	}
	return &Provider{
		binary:    binary,
		textMode:  mode,
		voicesDir: paths.VoicesDir,
		catalog:   voice.NewCatalog(paths.VoicesDir, paths.VoiceExtension),
		tracker:   t,
	}
}

// Synthesize runs Piper once and leaves a WAV file at outputPath.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID, outputPath string) (string, error) {
	if voiceID == "" {
		return "", tts.NewError(tts.KindLaunch, errors.New("voice model is required"))
	}

	cmd := p.command(ctx, text, filepath.Join(p.voicesDir, voiceID), outputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// A killed shell may leave children holding the pipe.
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		tts.Log("PIPER", text, -1, err)
		p.trackFailure()
		return "", tts.NewError(tts.KindLaunch, fmt.Errorf("failed to start %s: %w", p.binary, err))
	}

	if err := cmd.Wait(); err != nil {
		tts.Log("PIPER", text, cmd.ProcessState.ExitCode(), err)
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			if p.tracker != nil {
				p.tracker.TrackTimeout(trackerName)
			}
			return "", tts.NewError(tts.KindTimeout, fmt.Errorf("piper killed after %s: %w", time.Since(start).Round(time.Millisecond), ctxErr))
		case ctxErr != nil:
			p.trackFailure()
			return "", tts.NewError(tts.KindCanceled, ctxErr)
		}
		p.trackFailure()
		return "", tts.NewError(tts.KindExit, fmt.Errorf("piper failed: %w, stderr: %s", err, tail(stderr.String())))
	}

	if err := tts.VerifyAudioFile(outputPath); err != nil {
		tts.Log("PIPER", text, 0, err)
		p.trackFailure()
		return "", tts.NewError(tts.KindDecode, err)
	}

	tts.Log("PIPER", text, 0, nil)
	if p.tracker != nil {
		p.tracker.TrackSuccess(trackerName, time.Since(start))
	}
	slog.Debug("Piper: synthesized line", "voice", voiceID, "chars", len(text), "duration", time.Since(start))
	return "wav", nil
}

func (p *Provider) command(ctx context.Context, text, model, outputPath string) *exec.Cmd {
	if p.textMode == TextModeShell {
		line := fmt.Sprintf(`printf '%%s\n' "%s" | %s --model %s --output_file %s`,
			tts.EscapeQuotes(text), tts.ShellQuote(p.binary), tts.ShellQuote(model), tts.ShellQuote(outputPath))
		return exec.CommandContext(ctx, "sh", "-c", line)
	}

	cmd := exec.CommandContext(ctx, p.binary, "--model", model, "--output_file", outputPath)
	cmd.Stdin = strings.NewReader(text)
	return cmd
}

func (p *Provider) trackFailure() {
	if p.tracker != nil {
		p.tracker.TrackFailure(trackerName)
	}
}

// Voices lists voice model files in the voices directory.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	ids, err := p.catalog.Voices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tts.Voice, 0, len(ids))
	for _, id := range ids {
		out = append(out, tts.Voice{
			ID:   id,
			Name: strings.TrimSuffix(id, filepath.Ext(id)),
		})
	}
	return out, nil
}

// Binary returns the configured executable.
func (p *Provider) Binary() string { return p.binary }

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return "..." + s[len(s)-stderrTail:]
	}
	return s
}
