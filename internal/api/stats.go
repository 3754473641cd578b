package api

import (
	"net/http"
	"runtime"
	"sort"
	"time"

	"podcastgo/pkg/tracker"
)

// StatsHandler reports engine and LLM call statistics.
type StatsHandler struct {
	tracker *tracker.Tracker
	engine  string
	started time.Time
}

// NewStatsHandler creates a new StatsHandler for the active TTS engine.
func NewStatsHandler(t *tracker.Tracker, engine string) *StatsHandler {
	return &StatsHandler{tracker: t, engine: engine, started: time.Now()}
}

// ProviderStatsDTO is one provider's counters.
type ProviderStatsDTO struct {
	Name         string `json:"name"`
	Success      int64  `json:"success"`
	Failures     int64  `json:"failures"`
	Timeouts     int64  `json:"timeouts"`
	AvgLatencyMS int64  `json:"avg_latency_ms"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Engine    string             `json:"engine"`
	UptimeSec int64              `json:"uptime_sec"`
	MemoryMB  uint64             `json:"memory_mb"`
	Providers []ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatsResponse{
		Engine:    h.engine,
		UptimeSec: int64(time.Since(h.started).Seconds()),
		MemoryMB:  mem.Alloc / 1024 / 1024,
		Providers: []ProviderStatsDTO{},
	}

	for name, s := range h.tracker.Snapshot() {
		resp.Providers = append(resp.Providers, ProviderStatsDTO{
			Name:         name,
			Success:      s.Success,
			Failures:     s.Failures,
			Timeouts:     s.Timeouts,
			AvgLatencyMS: s.AvgLatency().Milliseconds(),
		})
	}
	sort.Slice(resp.Providers, func(i, j int) bool { return resp.Providers[i].Name < resp.Providers[j].Name })

	writeJSON(w, http.StatusOK, resp)
}
