package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"podcastgo/pkg/logging"
	"podcastgo/pkg/version"
)

// Handlers groups the endpoint handlers served by NewServer.
// A nil handler leaves its routes unregistered.
type Handlers struct {
	Script   *ScriptHandler
	Voices   *VoiceHandler
	Assembly *AssemblyHandler
	History  *HistoryHandler
	Stats    *StatsHandler
	Probe    *ProbeHandler
}

// NewServer creates and configures the HTTP server. Generated files under
// outputDir are served at /output/.
func NewServer(addr, outputDir string, h Handlers, shutdown func()) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           logging.Middleware(NewMux(outputDir, h, shutdown)),
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: an assembly request lasts as long as the synthesis.
		IdleTimeout: 60 * time.Second,
	}
}

// NewMux registers all routes.
func NewMux(outputDir string, h Handlers, shutdown func()) *http.ServeMux {
	mux := http.NewServeMux()

	// 1. Health & Version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 2. Script workflow
	if h.Script != nil {
		mux.HandleFunc("POST /api/script", h.Script.HandleGenerate)
	}
	mux.HandleFunc("POST /api/script/review", handleReview)

	// 3. Voices
	if h.Voices != nil {
		mux.HandleFunc("GET /api/voices", h.Voices.HandleList)
		mux.HandleFunc("POST /api/speakers", h.Voices.HandleSpeakers)
	}

	// 4. Assembly
	if h.Assembly != nil {
		mux.HandleFunc("POST /api/assemble", h.Assembly.HandleAssemble)
	}

	// 5. History & Dashboard
	if h.History != nil {
		mux.HandleFunc("GET /api/history", h.History.HandleList)
		mux.HandleFunc("GET /api/dashboard", h.History.HandleDashboard)
	}

	// 6. Diagnostics
	if h.Stats != nil {
		mux.Handle("GET /api/stats", h.Stats)
	}
	if h.Probe != nil {
		mux.Handle("GET /api/probe", h.Probe)
	}

	// 7. Shutdown
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Let the response flush first
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	// 8. Generated audio
	if outputDir != "" {
		fs := &outputFileSystem{root: http.Dir(outputDir)}
		mux.Handle("GET /output/", http.StripPrefix("/output/", http.FileServer(fs)))
	}

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": %q}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
