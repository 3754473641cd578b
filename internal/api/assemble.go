package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"podcastgo/pkg/assembly"
	"podcastgo/pkg/export"
	"podcastgo/pkg/script"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/voice"
)

// Runner executes one assembly.
type Runner interface {
	Run(ctx context.Context, req assembly.Request) (*assembly.Result, error)
}

// AssemblyHandler serves audio assembly.
type AssemblyHandler struct {
	runner Runner
}

// NewAssemblyHandler creates a new AssemblyHandler.
func NewAssemblyHandler(r Runner) *AssemblyHandler {
	return &AssemblyHandler{runner: r}
}

// AssembleRequest is the body of POST /api/assemble.
type AssembleRequest struct {
	Script   string            `json:"final_script"`
	Voices   map[string]string `json:"voices"`
	Topic    string            `json:"topic"`
	Duration string            `json:"duration"`
}

// AssembleResponse describes the finished mix.
type AssembleResponse struct {
	Filename        string  `json:"filename"`
	URL             string  `json:"url"`
	Topic           string  `json:"topic"`
	DurationSeconds float64 `json:"duration_seconds"`
	Spoken          int     `json:"spoken"`
	Skipped         int     `json:"skipped"`
	Script          string  `json:"script"`
}

// HandleAssemble handles POST /api/assemble. The request stays open for the
// whole run; closing it cancels the run.
func (h *AssemblyHandler) HandleAssemble(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request", err.Error())
		return
	}

	// Speakers absent from the script are dropped like unassigned form fields.
	mapping := voice.Mapping{}
	for _, sp := range script.SpeakersOf(req.Script) {
		if v := strings.TrimSpace(req.Voices[sp]); v != "" {
			mapping[sp] = v
		}
	}

	topic := req.Topic
	if topic == "" {
		topic = "N/A"
	}
	duration := req.Duration
	if duration == "" {
		duration = "N/A"
	}

	res, err := h.runner.Run(r.Context(), assembly.Request{
		Script:   req.Script,
		Voices:   mapping,
		Topic:    topic,
		Duration: duration,
	})
	if err != nil {
		status, kind := assemblyStatus(err)
		writeError(w, status, kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AssembleResponse{
		Filename:        res.Filename,
		URL:             "/output/" + url.PathEscape(res.Filename),
		Topic:           topic,
		DurationSeconds: res.Duration.Seconds(),
		Spoken:          res.Spoken,
		Skipped:         res.Skipped,
		Script:          req.Script,
	})
}

// assemblyStatus maps a run failure to an HTTP status and error kind.
func assemblyStatus(err error) (int, string) {
	var exportErr *export.Error
	switch {
	case voice.IsConfigError(err):
		return http.StatusUnprocessableEntity, "config"
	case errors.Is(err, assembly.ErrUnmappedSpeaker):
		return http.StatusUnprocessableEntity, "unmapped_speaker"
	case tts.IsTimeout(err):
		return http.StatusGatewayTimeout, string(tts.KindTimeout)
	case tts.KindOf(err) != "":
		return http.StatusBadGateway, string(tts.KindOf(err))
	case errors.As(err, &exportErr):
		return http.StatusInternalServerError, "export"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
