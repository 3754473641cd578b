package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"podcastgo/pkg/llm"
	"podcastgo/pkg/script"
	"podcastgo/pkg/scriptgen"
)

// Generator produces a first-draft script.
type Generator interface {
	Generate(ctx context.Context, req scriptgen.Request) (*scriptgen.Script, error)
}

// ScriptHandler serves script generation.
type ScriptHandler struct {
	gen Generator
}

// NewScriptHandler creates a new ScriptHandler.
func NewScriptHandler(g Generator) *ScriptHandler {
	return &ScriptHandler{gen: g}
}

// HandleGenerate handles POST /api/script
func (h *ScriptHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req scriptgen.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request", err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "request", "topic is required")
		return
	}

	s, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		slog.Error("Script generation failed", "topic", req.Topic, "error", err)
		switch {
		case errors.Is(err, llm.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "llm", "script generation is not configured (missing API key)")
		default:
			writeError(w, http.StatusBadGateway, "llm", "Could not generate a script from the AI. Please try again later.")
		}
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// ReviewRequest carries both drafts of a script.
type ReviewRequest struct {
	Original string `json:"original_script"`
	Edited   string `json:"edited_script"`
}

// ReviewResponse shows what the editor changed.
type ReviewResponse struct {
	FromLabel string            `json:"from_label"`
	ToLabel   string            `json:"to_label"`
	Unified   string            `json:"unified"`
	Lines     []script.DiffLine `json:"lines"`
	Changed   bool              `json:"changed"`
	Speakers  []string          `json:"speakers"`
}

// handleReview handles POST /api/script/review
func handleReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request", err.Error())
		return
	}

	unified, err := script.Diff(req.Original, req.Edited)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "diff", err.Error())
		return
	}

	speakers := script.SpeakersOf(req.Edited)
	if speakers == nil {
		speakers = []string{}
	}
	writeJSON(w, http.StatusOK, ReviewResponse{
		FromLabel: script.OriginalLabel,
		ToLabel:   script.EditedLabel,
		Unified:   unified,
		Lines:     script.DiffLines(req.Original, req.Edited),
		Changed:   unified != "",
		Speakers:  speakers,
	})
}
