package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"podcastgo/internal/api"
	"podcastgo/pkg/assembly"
	"podcastgo/pkg/config"
	"podcastgo/pkg/db"
	"podcastgo/pkg/db/maintenance"
	"podcastgo/pkg/export"
	"podcastgo/pkg/history"
	"podcastgo/pkg/llm/gemini"
	"podcastgo/pkg/llm/prompts"
	"podcastgo/pkg/probe"
	"podcastgo/pkg/scriptgen"
	"podcastgo/pkg/tracker"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/tts/azure"
	"podcastgo/pkg/tts/edgetts"
	"podcastgo/pkg/tts/piper"
	"podcastgo/pkg/voice"
)

const promptsDir = "configs/prompts"

// maintenanceMinAge keeps the startup sweep away from files of a run that
// another process may still be writing.
const maintenanceMinAge = 10 * time.Minute

// app holds the wired components shared by the server and the CLI commands.
type app struct {
	cfg      *config.Config
	db       *db.DB
	tracker  *tracker.Tracker
	engine   tts.Provider
	voices   voice.Lister
	encoder  export.Encoder
	history  history.Store
	pipeline *assembly.Pipeline
	llm      *gemini.Client
	scripts  *scriptgen.Generator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, db: dbConn, tracker: tracker.New()}

	if err := maintenance.Run(ctx, dbConn, maintenance.Options{
		OutputDir: cfg.Paths.OutputDir,
		Patterns:  assembly.TransientPatterns,
		MinAge:    maintenanceMinAge,
	}); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	if err := a.initAudio(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initScripts(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) initAudio(ctx context.Context) error {
	engine, lister, err := newEngine(ctx, a.cfg, a.tracker)
	if err != nil {
		return err
	}
	a.engine, a.voices = engine, lister

	enc, err := export.New(a.cfg.Export)
	if err != nil {
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}
	a.encoder = enc

	a.history, err = newHistory(a.cfg.History, a.db)
	if err != nil {
		return err
	}

	a.pipeline = assembly.New(engine, lister, enc, assembly.OptionsFromConfig(a.cfg), assembly.WithRecorder(a.history))
	return nil
}

func (a *app) initScripts() error {
	client, err := gemini.NewClient(a.cfg.LLM, a.cfg.Log.Gemini.Path, a.tracker)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	a.llm = client

	pm, err := prompts.NewManager(promptsDir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	a.scripts = scriptgen.New(client, pm,
		scriptgen.WithArchive(a.db, client.Model()),
		scriptgen.WithWordsPerMinute(a.cfg.LLM.WordsPerMinute),
	)
	return nil
}

// newEngine builds the configured TTS engine and the voice list offered for it.
func newEngine(ctx context.Context, cfg *config.Config, tr *tracker.Tracker) (tts.Provider, voice.Lister, error) {
	switch cfg.TTS.Engine {
	case config.EnginePiper:
		return piper.NewProvider(cfg.TTS.Piper, cfg.Paths, tr), voice.NewCatalog(cfg.Paths.VoicesDir, cfg.Paths.VoiceExtension), nil
	case config.EngineEdge:
		p := edgetts.NewProvider(cfg.TTS.EdgeTTS, tr)
		return p, remoteVoices(ctx, p), nil
	case config.EngineAzure:
		p := azure.NewProvider(cfg.TTS.AzureSpeech, tr)
		return p, remoteVoices(ctx, p), nil
	default:
		return nil, nil, fmt.Errorf("unknown tts engine: %q", cfg.TTS.Engine)
	}
}

func remoteVoices(ctx context.Context, p tts.Provider) voice.Static {
	voices, err := p.Voices(ctx)
	if err != nil {
		slog.Warn("Failed to list engine voices", "error", err)
		return nil
	}
	return voice.Static(tts.VoiceIDs(voices))
}

func newHistory(cfg config.HistoryConfig, d *db.DB) (history.Store, error) {
	switch cfg.Backend {
	case config.HistorySQLite:
		return history.NewSQLiteStore(d), nil
	case config.HistoryJSON, "":
		return history.NewFileStore(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %q", cfg.Backend)
	}
}

// probes lists the readiness checks: run once at startup and again on /api/probe.
func (a *app) probes() []probe.Probe {
	probes := []probe.Probe{
		{Name: "Output directory", Check: probe.WritableDir(a.cfg.Paths.OutputDir), Critical: true},
		// A missing voice catalog is reported at voice selection, not at startup.
		{Name: "Voice models", Check: probe.Voices(a.voices)},
	}
	if b, ok := a.engine.(interface{ Binary() string }); ok {
		probes = append(probes, probe.Probe{Name: "TTS engine", Check: probe.Binary(b.Binary())})
	}
	if b, ok := a.encoder.(interface{ Binary() string }); ok {
		probes = append(probes, probe.Probe{Name: "Encoder", Check: probe.Binary(b.Binary())})
	}
	probes = append(probes, probe.Probe{Name: "LLM provider", Check: probe.Health(a.llm), Timeout: 15 * time.Second})
	return probes
}

func (a *app) handlers(probes []probe.Probe) api.Handlers {
	return api.Handlers{
		Script:   api.NewScriptHandler(a.scripts),
		Voices:   api.NewVoiceHandler(a.voices),
		Assembly: api.NewAssemblyHandler(a.pipeline),
		History:  api.NewHistoryHandler(a.history),
		Stats:    api.NewStatsHandler(a.tracker, a.cfg.TTS.Engine),
		Probe:    api.NewProbeHandler(probes),
	}
}

func (a *app) Close() {
	if a.llm != nil {
		a.llm.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
}
