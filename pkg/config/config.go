package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Paths    PathsConfig    `yaml:"paths"`
	TTS      TTSConfig      `yaml:"tts"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Export   ExportConfig   `yaml:"export"`
	LLM      LLMConfig      `yaml:"llm"`
	History  HistoryConfig  `yaml:"history"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// PathsConfig holds the on-disk locations used by the pipeline.
type PathsConfig struct {
	VoicesDir      string `yaml:"voices_dir"`      // directory scanned for voice models
	VoiceExtension string `yaml:"voice_extension"` // e.g. ".onnx"
	OutputDir      string `yaml:"output_dir"`      // mix artifacts and transient line files
}

// PiperConfig holds settings for the Piper command-line engine.
type PiperConfig struct {
	Binary   string `yaml:"binary"`    // executable name or path
	TextMode string `yaml:"text_mode"` // "stdin" or "shell"
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	BaseURL            string `yaml:"base_url"`
	Origin             string `yaml:"origin"`
	UserAgent          string `yaml:"user_agent"`
	TrustedClientToken string `yaml:"trusted_client_token"`
	SecMSGecVersion    string `yaml:"sec_ms_gec_version"`
}

// AzureSpeechConfig holds settings for Azure Speech TTS.
type AzureSpeechConfig struct {
	Key      string `yaml:"key"`
	Region   string `yaml:"region"` // e.g., "eastus"
	Language string `yaml:"language"`
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine      string            `yaml:"engine"`
	Piper       PiperConfig       `yaml:"piper"`
	EdgeTTS     EdgeTTSConfig     `yaml:"edge_tts"`
	AzureSpeech AzureSpeechConfig `yaml:"azure_speech"`
}

// AssemblyConfig holds the pacing and resource settings of one assembly run.
type AssemblyConfig struct {
	LeadIn       Duration `yaml:"lead_in"`
	GapMin       Duration `yaml:"gap_min"`
	GapMax       Duration `yaml:"gap_max"`
	SampleRate   int      `yaml:"sample_rate"`
	Channels     int      `yaml:"channels"`
	LineTimeout  Duration `yaml:"line_timeout"`
	Transient    string   `yaml:"transient"`     // "shared" or "unique"
	MissingVoice string   `yaml:"missing_voice"` // "skip" or "fail"
}

// ExportConfig holds mix export settings.
type ExportConfig struct {
	Format  string  `yaml:"format"` // "mp3" or "wav"
	Bitrate Bitrate `yaml:"bitrate"`
	FFmpeg  string  `yaml:"ffmpeg"`
}

// LLMConfig holds settings for the Large Language Model provider.
type LLMConfig struct {
	Provider          string   `yaml:"provider"` // "gemini"
	Model             string   `yaml:"model"`
	Key               string   `yaml:"key"`
	BaseURL           string   `yaml:"base_url,omitempty"` // API endpoint override
	Timeout           Duration `yaml:"timeout"`
	WordsPerMinute    int      `yaml:"words_per_minute"`
	Temperature       float32  `yaml:"temperature"`        // 0 keeps the model default
	TemperatureJitter float32  `yaml:"temperature_jitter"` // bell-curve spread around Temperature
}

// HistoryConfig holds settings for the podcast history log.
type HistoryConfig struct {
	Backend string `yaml:"backend"` // "json" or "sqlite"
	Path    string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Gemini   LogSettings `yaml:"gemini"`
	TTS      LogSettings `yaml:"tts"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// Option values.
const (
	EnginePiper = "piper"
	EngineEdge  = "edge-tts"
	EngineAzure = "azure-speech"

	TransientShared = "shared"
	TransientUnique = "unique"

	MissingVoiceSkip = "skip"
	MissingVoiceFail = "fail"

	FormatMP3 = "mp3"
	FormatWAV = "wav"

	HistoryJSON   = "json"
	HistorySQLite = "sqlite"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:5000",
		},
		Paths: PathsConfig{
			VoicesDir:      "model",
			VoiceExtension: ".onnx",
			OutputDir:      "static/output",
		},
		TTS: TTSConfig{
			Engine: EnginePiper,
			Piper: PiperConfig{
				Binary:   "piper",
				TextMode: "stdin",
			},
			EdgeTTS: EdgeTTSConfig{
				BaseURL: "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1",
			},
			AzureSpeech: AzureSpeechConfig{
				Language: "en-US",
			},
		},
		Assembly: AssemblyConfig{
			LeadIn:       Duration(1000 * time.Millisecond),
			GapMin:       Duration(600 * time.Millisecond),
			GapMax:       Duration(1200 * time.Millisecond),
			SampleRate:   22050,
			Channels:     1,
			LineTimeout:  Duration(2 * time.Minute),
			Transient:    TransientShared,
			MissingVoice: MissingVoiceSkip,
		},
		Export: ExportConfig{
			Format:  FormatMP3,
			Bitrate: 192000,
			FFmpeg:  "ffmpeg",
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-2.5-flash",
			Timeout:        Duration(120 * time.Second),
			WordsPerMinute: 150,
		},
		History: HistoryConfig{
			Backend: HistoryJSON,
			Path:    "history.json",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Gemini: LogSettings{
				Path:  "./logs/gemini.log",
				Level: "INFO",
			},
			TTS: LogSettings{
				Path:  "./logs/tts.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/podcastgo.db",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
// A .env file in the working directory is loaded first so secrets can live outside the YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty secrets from the environment (never saved back to disk).
func applyEnv(cfg *Config) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	fill(&cfg.LLM.Key, "GEMINI_API_KEY")
	fill(&cfg.TTS.AzureSpeech.Key, "AZURE_SPEECH_KEY")
	fill(&cfg.TTS.AzureSpeech.Region, "AZURE_SPEECH_REGION")
	fill(&cfg.TTS.EdgeTTS.Origin, "EDGE_TTS_ORIGIN")
	fill(&cfg.TTS.EdgeTTS.UserAgent, "EDGE_TTS_USER_AGENT")
	fill(&cfg.TTS.EdgeTTS.TrustedClientToken, "EDGE_TTS_TRUSTED_CLIENT_TOKEN")
	fill(&cfg.TTS.EdgeTTS.SecMSGecVersion, "EDGE_TTS_SEC_MS_GEC_VERSION")
}

// Validate checks option values and ranges.
func (c *Config) Validate() error {
	a := c.Assembly
	if a.LeadIn < 0 {
		return fmt.Errorf("assembly.lead_in must not be negative")
	}
	if a.GapMin < 0 || a.GapMax < a.GapMin {
		return fmt.Errorf("assembly gap range [%v, %v] is invalid", a.GapMin.Std(), a.GapMax.Std())
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("assembly.sample_rate must be positive, got %d", a.SampleRate)
	}
	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("assembly.channels must be 1 or 2, got %d", a.Channels)
	}

	checks := []struct {
		field string
		value string
		valid []string
	}{
		{"tts.engine", c.TTS.Engine, []string{EnginePiper, EngineEdge, EngineAzure}},
		{"tts.piper.text_mode", c.TTS.Piper.TextMode, []string{"stdin", "shell"}},
		{"assembly.transient", a.Transient, []string{TransientShared, TransientUnique}},
		{"assembly.missing_voice", a.MissingVoice, []string{MissingVoiceSkip, MissingVoiceFail}},
		{"export.format", c.Export.Format, []string{FormatMP3, FormatWAV}},
		{"history.backend", c.History.Backend, []string{HistoryJSON, HistorySQLite}},
	}
	for _, ch := range checks {
		if !oneOf(ch.value, ch.valid) {
			return fmt.Errorf("invalid %s '%s': must be one of %v", ch.field, ch.value, ch.valid)
		}
	}

	if c.TTS.AzureSpeech.Language != "" && !isValidLocale(c.TTS.AzureSpeech.Language) {
		return fmt.Errorf("invalid tts.azure_speech.language format '%s': must be 'xx-YY' (e.g. 'en-US', 'de-DE')", c.TTS.AzureSpeech.Language)
	}
	return nil
}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}

func isValidLocale(s string) bool {
	matched, _ := regexp.MatchString(`^[a-z]{2}-[A-Z]{2}$`, s)
	return matched
}

var (
	reEngine    = regexp.MustCompile(`(?m)^(\s+)engine:`)
	reTransient = regexp.MustCompile(`(?m)^(\s+)transient:`)
	reMissing   = regexp.MustCompile(`(?m)^(\s+)missing_voice:`)
	reFormat    = regexp.MustCompile(`(?m)^(\s+)format:`)
)

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# PodcastGo Configuration
# -----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Bitrate:  plain bits per second, or k / M suffix (e.g. 192k)

`)
	data = append(header, data...)

	// Inject comments for enum fields.
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: piper, edge-tts, azure-speech\n${1}engine:"))
	data = reTransient.ReplaceAll(data, []byte("${1}# Options: shared (one guarded file), unique (one file per line)\n${1}transient:"))
	data = reMissing.ReplaceAll(data, []byte("${1}# Options: skip (drop unvoiced lines), fail (abort the run)\n${1}missing_voice:"))
	data = reFormat.ReplaceAll(data, []byte("${1}# Options: mp3, wav\n${1}format:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
