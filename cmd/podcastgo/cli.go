package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"podcastgo/pkg/assembly"
	"podcastgo/pkg/config"
	"podcastgo/pkg/logging"
	"podcastgo/pkg/script"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/voice"
)

// runCommand executes a one-shot subcommand. Logs go to stderr so stdout
// carries only the command's output.
func runCommand(ctx context.Context, configPath string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "voices", "speakers", "assemble":
	default:
		return fmt.Errorf("unknown command %q (run with -h for usage)", cmd)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.Log.Server.Level),
	})))
	tts.SetLogPath(cfg.Log.TTS.Path)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "voices":
		return cmdVoices(ctx, a, stdout)
	case "speakers":
		return cmdSpeakers(ctx, a, rest, stdin, stdout)
	default:
		return cmdAssemble(ctx, a, rest, stdin, stdout)
	}
}

func cmdVoices(ctx context.Context, a *app, out io.Writer) error {
	report, err := voice.Resolve(ctx, a.voices, nil)
	if err != nil {
		return err
	}
	for _, v := range report.Voices {
		fmt.Fprintln(out, v)
	}
	return nil
}

func cmdSpeakers(ctx context.Context, a *app, args []string, stdin io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: podcastgo speakers <script>")
	}
	raw, err := readScript(args[0], stdin)
	if err != nil {
		return err
	}

	report, err := voice.Resolve(ctx, a.voices, script.SpeakersOf(raw))
	if err != nil {
		return err
	}
	if report.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", report.Warning)
	}
	fmt.Fprintf(out, "Speakers: %s\n", strings.Join(report.Speakers, ", "))
	fmt.Fprintln(out, "Voices:")
	for _, v := range report.Voices {
		fmt.Fprintf(out, "  %s\n", v)
	}
	return nil
}

func cmdAssemble(ctx context.Context, a *app, args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("assemble", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	voices := mappingFlag{}
	fs.Var(voices, "voice", "Speaker=voice assignment (repeatable)")
	topic := fs.String("topic", "N/A", "Topic recorded in history")
	duration := fs.String("duration", "N/A", "Requested minutes recorded in history")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: podcastgo assemble [-voice Speaker=voice ...] [-topic T] [-duration M] <script>")
	}

	raw, err := readScript(fs.Arg(0), stdin)
	if err != nil {
		return err
	}

	unassigned := voice.Mapping(voices).Unassigned(script.SpeakersOf(raw))
	if len(unassigned) > 0 {
		slog.Warn("Speakers without a voice", "speakers", unassigned)
	}

	res, err := a.pipeline.Run(ctx, assembly.Request{
		Script:   raw,
		Voices:   voice.Mapping(voices),
		Topic:    *topic,
		Duration: *duration,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%.1fs, %d lines, %d skipped)\n", res.Path, res.Duration.Seconds(), res.Spoken, res.Skipped)
	return nil
}

func readScript(name string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

// mappingFlag collects repeated -voice Speaker=voice values.
type mappingFlag map[string]string

func (m mappingFlag) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}

func (m mappingFlag) Set(s string) error {
	speaker, v, ok := strings.Cut(s, "=")
	speaker, v = strings.TrimSpace(speaker), strings.TrimSpace(v)
	if !ok || speaker == "" || v == "" {
		return fmt.Errorf("expected Speaker=voice, got %q", s)
	}
	m[speaker] = v
	return nil
}
