package azure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podcastgo/pkg/config"
	"podcastgo/pkg/tracker"
	"podcastgo/pkg/tts"
)

var _ tts.Provider = (*Provider)(nil)

func TestProvider_Structure(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.AzureSpeechConfig
		tracker  *tracker.Tracker
		wantLang string
	}{
		{
			name:     "With Tracker",
			cfg:      config.AzureSpeechConfig{Key: "fake-key", Region: "eastus", Language: "de-DE"},
			tracker:  tracker.New(),
			wantLang: "de-DE",
		},
		{
			name:     "Without Tracker",
			cfg:      config.AzureSpeechConfig{Key: "fake-key", Region: "eastus"},
			wantLang: "en-US",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.cfg, tt.tracker)
			if p.tracker != tt.tracker {
				t.Error("Tracker not assigned correctly")
			}
			if p.region != tt.cfg.Region {
				t.Errorf("Region = %q, want %q", p.region, tt.cfg.Region)
			}
			if p.language != tt.wantLang {
				t.Errorf("Language = %q, want %q", p.language, tt.wantLang)
			}
			if !strings.Contains(p.url, "eastus.tts.speech.microsoft.com") {
				t.Errorf("unexpected url %s", p.url)
			}
		})
	}
}

func TestBuildSSML(t *testing.T) {
	p := NewProvider(config.AzureSpeechConfig{}, nil)

	tests := []struct {
		name    string
		input   string
		want    string
		notWant string
	}{
		{name: "Normal Text", input: "Hello World", want: "Hello World"},
		{name: "Escaped Plain Text", input: `Ben & Jerry say "hi"`, want: "Ben &amp; Jerry say &#34;hi&#34;"},
		{name: "Valid SSML", input: `Hello <break time="1s"/> World`, want: `Hello <break time="1s"/> World`},
		{
			name:  "Reparable SSML (Extra Attribute & Injection)",
			input: `Hello <lang xml:lang="vi-VN" xml:ID="foo">World</lang>`,
			want:  `Hello <lang xml:lang="vi-VN">World,</lang>`,
		},
		{name: "Existing Punctuation (No Injection)", input: `<lang xml:lang="de">Sentence.</lang>`, want: `<lang xml:lang="de">Sentence.</lang>`},
		{name: "Malformed SSML (Strip Tags)", input: "Hello <lang>Bad World", want: "Hello Bad World", notWant: "<lang"},
		{name: "Nested Speak Removed", input: "<speak>Hi</speak>", want: "<voice name='v'>Hi</voice>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.buildSSML("v", tt.input)
			if !strings.Contains(got, tt.want) {
				t.Errorf("ssml %q should contain %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("ssml %q should not contain %q", got, tt.notWant)
			}
			if err := validateSSML(got); err != nil {
				t.Errorf("ssml is not well-formed: %v", err)
			}
		})
	}
}

func newTestProvider(t *testing.T, h http.HandlerFunc) (*Provider, *tracker.Tracker) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tr := tracker.New()
	p := NewProvider(config.AzureSpeechConfig{Key: "k", Region: "test"}, tr)
	p.url = srv.URL
	return p, tr
}

func TestSynthesize_Success(t *testing.T) {
	audio := []byte("ID3 fake mp3 payload")
	p, tr := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "k" {
			t.Error("missing subscription key")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "<voice name='en-US-AvaNeural'>Hello</voice>") {
			t.Errorf("unexpected ssml: %s", body)
		}
		_, _ = w.Write(audio)
	})

	out := filepath.Join(t.TempDir(), "_temp_line.wav")
	format, err := p.Synthesize(context.Background(), "Hello", "en-US-AvaNeural", out)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if format != "mp3" {
		t.Errorf("format = %s, want mp3", format)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output must be written to the exact path: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("unexpected payload %q", got)
	}
	if tr.Snapshot()["azure-speech"].Success != 1 {
		t.Error("success not tracked")
	}
}

func TestSynthesize_HTTPError(t *testing.T) {
	p, tr := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := p.Synthesize(context.Background(), "Hello", "v", filepath.Join(t.TempDir(), "x"))
	if !tts.IsFatalError(err) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry body: %v", err)
	}
	if tts.Wrap(err, 0, "v").Kind != tts.KindRemote {
		t.Error("http failure should classify as remote")
	}
	if tr.Snapshot()["azure-speech"].Failures != 1 {
		t.Error("failure not tracked")
	}
}

func TestSynthesize_Timeout(t *testing.T) {
	p, tr := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Synthesize(ctx, "Hello", "v", filepath.Join(t.TempDir(), "x"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !tts.IsTimeout(tts.Wrap(err, 0, "v")) {
		t.Errorf("expected timeout classification, got %v", err)
	}
	if tr.Snapshot()["azure-speech"].Timeouts != 1 {
		t.Error("timeout not tracked")
	}
}

func TestSynthesize_MissingCredentials(t *testing.T) {
	p := NewProvider(config.AzureSpeechConfig{}, nil)
	_, err := p.Synthesize(context.Background(), "Hello", "v", "x")
	if tts.KindOf(err) != tts.KindLaunch {
		t.Errorf("expected launch error, got %v", err)
	}
}

func TestVoices(t *testing.T) {
	voices, err := NewProvider(config.AzureSpeechConfig{}, nil).Voices(context.Background())
	if err != nil || len(voices) == 0 {
		t.Fatalf("expected voices, got %v, %v", voices, err)
	}
}
