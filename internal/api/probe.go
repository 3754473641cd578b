package api

import (
	"net/http"

	"podcastgo/pkg/probe"
)

// ProbeHandler re-runs the readiness checks on demand.
type ProbeHandler struct {
	probes []probe.Probe
}

// NewProbeHandler creates a new ProbeHandler.
func NewProbeHandler(probes []probe.Probe) *ProbeHandler {
	return &ProbeHandler{probes: probes}
}

func (h *ProbeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	results := probe.Run(r.Context(), h.probes)

	status := http.StatusOK
	for _, res := range results {
		if res.Error != nil && res.Probe.Critical {
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, map[string]any{"checks": probe.Statuses(results)})
}
