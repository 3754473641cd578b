package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"podcastgo/pkg/voice"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Success Probe",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
		{
			Name: "Slow Probe",
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			Timeout: 20 * time.Millisecond,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
	if !errors.Is(results[2].Error, context.DeadlineExceeded) {
		t.Errorf("Expected per-probe timeout, got %v", results[2].Error)
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatuses(t *testing.T) {
	got := Statuses([]Result{
		{Probe: Probe{Name: "voices", Critical: true}, Duration: 3 * time.Millisecond},
		{Probe: Probe{Name: "llm"}, Error: errors.New("no key")},
	})
	if !got[0].OK || got[0].DurationMS != 3 || !got[0].Critical {
		t.Errorf("unexpected status %+v", got[0])
	}
	if got[1].OK || got[1].Error != "no key" {
		t.Errorf("unexpected status %+v", got[1])
	}
}

func TestVoices(t *testing.T) {
	if err := Voices(voice.Static{"a.onnx"})(context.Background()); err != nil {
		t.Errorf("expected pass, got %v", err)
	}
	if err := Voices(voice.Static{})(context.Background()); !errors.Is(err, voice.ErrNoVoices) {
		t.Errorf("expected ErrNoVoices, got %v", err)
	}
}

func TestBinary(t *testing.T) {
	if err := Binary("")(context.Background()); err == nil {
		t.Error("empty binary should fail")
	}
	if err := Binary("definitely-not-a-real-binary-xyz")(context.Background()); err == nil {
		t.Error("missing binary should fail")
	}
	self, err := os.Executable()
	if err != nil {
		t.Skip("no executable path")
	}
	if err := Binary(self)(context.Background()); err != nil {
		t.Errorf("own test binary should be found: %v", err)
	}
}

func TestWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := WritableDir(dir)(context.Background()); err != nil {
		t.Fatalf("expected writable dir, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("probe left files behind: %v", entries)
	}
}

type checker struct{ err error }

func (c checker) HealthCheck(ctx context.Context) error { return c.err }

func TestHealth(t *testing.T) {
	if err := Health(checker{})(context.Background()); err != nil {
		t.Error(err)
	}
	if err := Health(checker{errors.New("down")})(context.Background()); err == nil {
		t.Error("expected failure")
	}
}
