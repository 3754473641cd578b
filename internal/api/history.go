package api

import (
	"net/http"

	"podcastgo/pkg/history"
)

// HistoryHandler serves the history log and the dashboard summary.
type HistoryHandler struct {
	store history.Store
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(s history.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// HandleList handles GET /api/history (newest first).
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history", err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleDashboard handles GET /api/dashboard
func (h *HistoryHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history.Summarize(entries))
}
