package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcastgo/pkg/assembly"
	"podcastgo/pkg/export"
	"podcastgo/pkg/history"
	"podcastgo/pkg/llm"
	"podcastgo/pkg/probe"
	"podcastgo/pkg/scriptgen"
	"podcastgo/pkg/tracker"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/version"
	"podcastgo/pkg/voice"
)

type fakeGenerator struct {
	err error
	got scriptgen.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req scriptgen.Request) (*scriptgen.Script, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &scriptgen.Script{Topic: req.Topic, Minutes: req.Minutes, Words: 300, Text: "Host: Hi.\nExpert: Hello.", Speakers: []string{"Expert", "Host"}}, nil
}

type fakeRunner struct {
	err error
	got assembly.Request
}

func (f *fakeRunner) Run(ctx context.Context, req assembly.Request) (*assembly.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &assembly.Result{Filename: "podcast_1700000000.mp3", Duration: 4500 * time.Millisecond, Spoken: 2, Skipped: 1}, nil
}

type env struct {
	srv    *httptest.Server
	gen    *fakeGenerator
	runner *fakeRunner
	hist   *history.FileStore
	out    string
	tr     *tracker.Tracker
}

func newEnv(t *testing.T, voices voice.Lister) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		gen:    &fakeGenerator{},
		runner: &fakeRunner{},
		hist:   history.NewFileStore(filepath.Join(dir, "history.json")),
		out:    filepath.Join(dir, "output"),
		tr:     tracker.New(),
	}
	require.NoError(t, os.MkdirAll(e.out, 0o755))

	mux := NewMux(e.out, Handlers{
		Script:   NewScriptHandler(e.gen),
		Voices:   NewVoiceHandler(voices),
		Assembly: NewAssemblyHandler(e.runner),
		History:  NewHistoryHandler(e.hist),
		Stats:    NewStatsHandler(e.tr, "piper"),
		Probe: NewProbeHandler([]probe.Probe{
			{Name: "voices", Check: probe.Voices(voices), Critical: true},
		}),
	}, nil)
	e.srv = httptest.NewServer(mux)
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func (e *env) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestHealthAndVersion(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})

	resp, body := e.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, body = e.get(t, "/api/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`{"version": %q}`, version.Version), string(body))
}

func TestGenerateScript(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})

	resp, body := e.post(t, "/api/script", `{"topic":"Volcanoes","duration":"2"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Host: Hi.\nExpert: Hello.", body["script"])
	assert.Equal(t, "2", e.gen.got.Minutes)

	resp, _ = e.post(t, "/api/script", `{"topic":" "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.post(t, "/api/script", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateScript_Errors(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})

	e.gen.err = fmt.Errorf("script generation failed: %w", llm.ErrNotConfigured)
	resp, _ := e.post(t, "/api/script", `{"topic":"x","duration":"1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	e.gen.err = errors.New("quota")
	resp, body := e.post(t, "/api/script", `{"topic":"x","duration":"1"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "Could not generate a script")
}

func TestReview(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})

	resp, body := e.post(t, "/api/script/review", `{"original_script":"Host: Hi.\nExpert: Hello.","edited_script":"Host: Hi there.\nExpert: Hello."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "Original AI Script", body["from_label"])
	assert.Contains(t, body["unified"], "+Host: Hi there.")
	assert.Equal(t, []any{"Expert", "Host"}, body["speakers"])

	_, body = e.post(t, "/api/script/review", `{"original_script":"Host: Hi.","edited_script":"Host: Hi."}`)
	assert.Equal(t, false, body["changed"])
}

func TestVoicesAndSpeakers(t *testing.T) {
	e := newEnv(t, voice.Static{"b.onnx", "a.onnx"})

	resp, raw := e.get(t, "/api/voices")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"voices":["a.onnx","b.onnx"]}`, string(raw))

	resp, body := e.post(t, "/api/speakers", `{"final_script":"Host: Hi.\nExpert: Hello."}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Expert", "Host"}, body["speakers"])
	assert.Nil(t, body["warning"])

	resp, body = e.post(t, "/api/speakers", `{"final_script":"no dialogue here"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no speakers is a warning")
	assert.Equal(t, voice.WarnNoSpeakers, body["warning"])
}

func TestSpeakers_NoVoices(t *testing.T) {
	e := newEnv(t, voice.NewCatalog(filepath.Join(t.TempDir(), "model"), ".onnx"))

	resp, body := e.post(t, "/api/speakers", `{"final_script":"Host: Hi."}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "config", body["kind"])
	assert.Contains(t, body["error"], "CRITICAL ERROR")

	resp, raw := e.get(t, "/api/probe")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(raw), `"ok":false`)
}

func TestAssemble(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})

	resp, body := e.post(t, "/api/assemble", `{"final_script":"Host: Hi.\nGuest: Yo.","voices":{"Host":"a.onnx","Guest":" ","Ghost":"a.onnx"},"topic":"Tides"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "podcast_1700000000.mp3", body["filename"])
	assert.Equal(t, "/output/podcast_1700000000.mp3", body["url"])
	assert.Equal(t, 4.5, body["duration_seconds"])

	assert.Equal(t, voice.Mapping{"Host": "a.onnx"}, e.runner.got.Voices, "blank and foreign speakers are dropped")
	assert.Equal(t, "Tides", e.runner.got.Topic)
	assert.Equal(t, "N/A", e.runner.got.Duration)
}

func TestAssemble_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"config", &voice.ConfigError{Err: voice.ErrNoVoices}, http.StatusUnprocessableEntity, "config"},
		{"unmapped", fmt.Errorf("line 2: %w", assembly.ErrUnmappedSpeaker), http.StatusUnprocessableEntity, "unmapped_speaker"},
		{"timeout", tts.Wrap(context.DeadlineExceeded, 0, "a.onnx"), http.StatusGatewayTimeout, "timeout"},
		{"exit", tts.NewError(tts.KindExit, errors.New("exit status 1")), http.StatusBadGateway, "exit"},
		{"export", &export.Error{Path: "x.mp3", Err: errors.New("disk full")}, http.StatusInternalServerError, "export"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, voice.Static{"a.onnx"})
			e.runner.err = tt.err

			resp, body := e.post(t, "/api/assemble", `{"final_script":"Host: Hi.","voices":{"Host":"a.onnx"}}`)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, body["kind"])
		})
	}
}

func TestHistoryAndDashboard(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})

	resp, raw := e.get(t, "/api/history")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, e.hist.Add(ctx, history.NewEntry("podcast_1.mp3", "A", "30", "Host: a", base)))
	require.NoError(t, e.hist.Add(ctx, history.NewEntry("podcast_2.mp3", "B", "45", "Host: b", base.Add(24*time.Hour))))

	_, raw = e.get(t, "/api/history")
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "podcast_2.mp3", entries[0].Filename, "newest first")

	_, raw = e.get(t, "/api/dashboard")
	var st history.Stats
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, 2, st.TotalPodcasts)
	assert.Equal(t, "1h 15m", st.FormattedDuration)
	assert.Equal(t, "May 02, 2026", st.LastCreationDate)
}

func TestStats(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})
	e.tr.TrackSuccess("piper", 200*time.Millisecond)
	e.tr.TrackSuccess("piper", 400*time.Millisecond)
	e.tr.TrackTimeout("gemini")

	_, raw := e.get(t, "/api/stats")
	var st StatsResponse
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, "piper", st.Engine)
	require.Len(t, st.Providers, 2)
	assert.Equal(t, "gemini", st.Providers[0].Name)
	assert.Equal(t, int64(1), st.Providers[0].Timeouts)
	assert.Equal(t, int64(300), st.Providers[1].AvgLatencyMS)
}

func TestOutputServing(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})
	require.NoError(t, os.WriteFile(filepath.Join(e.out, "podcast_1.mp3"), []byte("ID3audio"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(e.out, "_temp_line.wav"), []byte("RIFF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(e.out, "podcast_2.mp3.partial"), []byte("x"), 0o644))

	resp, body := e.get(t, "/output/podcast_1.mp3")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ID3audio", string(body))

	for _, p := range []string{"/output/_temp_line.wav", "/output/podcast_2.mp3.partial", "/output/"} {
		resp, _ := e.get(t, p)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, p)
	}
}

func TestLatestLog(t *testing.T) {
	e := newEnv(t, voice.Static{"a.onnx"})
	resp, raw := e.get(t, "/api/log/latest")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"log"`)
}

func TestShutdown(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(NewMux("", Handlers{}, func() { close(done) }))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/shutdown", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}

	// Unregistered handlers answer 404/405.
	resp, err = http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
