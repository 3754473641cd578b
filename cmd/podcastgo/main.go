package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podcastgo/internal/api"
	"podcastgo/pkg/config"
	"podcastgo/pkg/logging"
	"podcastgo/pkg/probe"
	"podcastgo/pkg/tts"
	"podcastgo/pkg/version"
)

const defaultConfigPath = "configs/podcastgo.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the YAML config file")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	args := flag.Args()
	if len(args) == 0 || args[0] == "serve" {
		if err := run(context.Background(), *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runCommand(ctx, *configPath, args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: podcastgo [flags] [command]

Commands:
  serve                          run the HTTP server (default)
  voices                         list the voices of the configured engine
  speakers <script>              show speakers found in a script and the available voices
  assemble [options] <script>    render a script into one audio file

A script argument of "-" reads standard input.

Flags:
`)
	flag.PrintDefaults()
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	tts.SetLogPath(appCfg.Log.TTS.Path)

	slog.Info("PodcastGo Started", "version", version.Version, "engine", appCfg.TTS.Engine)

	a, err := newApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Startup Probes
	probes := a.probes()
	results := probe.Run(ctx, probes)
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	srv := api.NewServer(appCfg.Server.Address, appCfg.Paths.OutputDir, a.handlers(probes), func() {
		slog.Info("Shutdown requested via API")
		cancel()
	})
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case sig := <-quit:
		slog.Info("Shutting down server...", "signal", sig)
	case <-ctx.Done():
		slog.Info("Context canceled, shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("Server exited properly")
	return nil
}
