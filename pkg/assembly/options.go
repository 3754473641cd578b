package assembly

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gopxl/beep/v2"

	"podcastgo/pkg/config"
)

// Transient file names inside the output directory.
const (
	SharedTransientName   = "_temp_line.wav"
	UniqueTransientPrefix = "_line_"
)

// TransientPatterns matches every file a run may leave behind if the process dies.
var TransientPatterns = []string{
	SharedTransientName + "*",
	UniqueTransientPrefix + "*.wav*",
	"*.partial",
	".mix-*.wav",
}

// Options holds everything a run needs besides its request.
type Options struct {
	OutputDir   string
	LeadIn      time.Duration
	GapMin      time.Duration
	GapMax      time.Duration
	Format      beep.Format
	LineTimeout time.Duration // zero disables the per-line limit
	Transient   string        // config.TransientShared or config.TransientUnique
	SkipMissing bool          // skip unmapped speakers instead of failing
}

// OptionsFromConfig maps configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	a := cfg.Assembly
	return Options{
		OutputDir:   cfg.Paths.OutputDir,
		LeadIn:      a.LeadIn.Std(),
		GapMin:      a.GapMin.Std(),
		GapMax:      a.GapMax.Std(),
		Format:      beep.Format{SampleRate: beep.SampleRate(a.SampleRate), NumChannels: a.Channels, Precision: 2},
		LineTimeout: a.LineTimeout.Std(),
		Transient:   a.Transient,
		SkipMissing: a.MissingVoice != config.MissingVoiceFail,
	}
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions(outputDir string) Options {
	cfg := config.DefaultConfig()
	cfg.Paths.OutputDir = outputDir
	return OptionsFromConfig(cfg)
}

func (o Options) validate() error {
	switch {
	case o.OutputDir == "":
		return errors.New("output directory is required")
	case o.LeadIn < 0:
		return fmt.Errorf("lead-in must not be negative: %s", o.LeadIn)
	case o.GapMin < 0 || o.GapMax < o.GapMin:
		return fmt.Errorf("invalid gap range [%s, %s]", o.GapMin, o.GapMax)
	case o.Format.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", o.Format.SampleRate)
	case o.Format.NumChannels != 1 && o.Format.NumChannels != 2:
		return fmt.Errorf("invalid channel count %d", o.Format.NumChannels)
	case o.Transient != config.TransientShared && o.Transient != config.TransientUnique:
		return fmt.Errorf("unknown transient strategy %q", o.Transient)
	}
	return nil
}

func (o Options) sharedPath() string {
	return filepath.Join(o.OutputDir, SharedTransientName)
}
