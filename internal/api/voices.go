package api

import (
	"log/slog"
	"net/http"

	"podcastgo/pkg/script"
	"podcastgo/pkg/voice"
)

// VoiceHandler serves voice listing and the speaker/voice assignment step.
type VoiceHandler struct {
	voices voice.Lister
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(l voice.Lister) *VoiceHandler {
	return &VoiceHandler{voices: l}
}

// HandleList handles GET /api/voices
func (h *VoiceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.voices.Voices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "config", err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": ids})
}

// SpeakersRequest carries the final script.
type SpeakersRequest struct {
	Script string `json:"final_script"`
}

// HandleSpeakers handles POST /api/speakers. It lists the speakers to assign
// and the voices to choose from. No voices at all is a 422; no speakers is a
// 200 with a warning so the script can be edited again.
func (h *VoiceHandler) HandleSpeakers(w http.ResponseWriter, r *http.Request) {
	var req SpeakersRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request", err.Error())
		return
	}

	report, err := voice.Resolve(r.Context(), h.voices, script.SpeakersOf(req.Script))
	if err != nil {
		slog.Error("Voice selection unavailable", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "config", "CRITICAL ERROR: "+err.Error())
		return
	}
	if report.Warning != "" {
		slog.Warn("Voice selection", "warning", report.Warning)
	}
	writeJSON(w, http.StatusOK, report)
}
