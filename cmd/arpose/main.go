// arpose - AR viewer steered by head pose
//
// Renders the mesh cabinet and, while the live feed is on, moves the viewer
// camera to follow the user's head.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-arpose/internal/config"
	"github.com/teslashibe/go-arpose/internal/log"
	"github.com/teslashibe/go-arpose/pkg/app"
)

func main() {
	cfg := parseFlags()

	log.Init(cfg.File.LogLevel)
	log.Info("arpose starting",
		"port", cfg.File.Port,
		"profile", cfg.Profile,
		"detector", cfg.File.Detection.Backend,
		"models", cfg.File.ModelsDir)

	a, err := app.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if err := a.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = a.Run(ctx)
	a.Shutdown()
	if err != nil {
		log.Error("runtime error", "error", err)
		os.Exit(1)
	}
	log.Info("goodbye")
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	configPath := flag.String("config", config.Path(), "Config file (overrides ARPOSE_CONFIG env var)")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugTracking := flag.Bool("debug-tracking", false, "Enable per-frame tracking logs (very verbose)")
	profile := flag.String("profile", cfg.Profile, "Tracking profile: default, smooth, responsive")
	startFeed := flag.Bool("feed", false, "Switch the live feed on at startup")
	noWeb := flag.Bool("no-web", false, "Disable the web dashboard")
	port := flag.String("port", "", "Dashboard port (overrides config and ARPOSE_PORT)")
	device := flag.String("device", "", "Camera device index, file or URL")
	backend := flag.String("detector", "", "Landmark backend: yunet, remote")
	models := flag.String("models", "", "Directory of OBJ meshes")
	frameMs := flag.Int("frame-ms", cfg.FrameInterval, "Render interval for the dashboard stream (ms)")
	flag.Parse()

	// The file is optional only at its default location.
	explicit := false
	flag.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })
	file, err := config.Load(*configPath, !explicit && *configPath == config.DefaultPath)
	if err != nil {
		stdlog.Fatalf("❌ %v", err)
	}
	cfg.File = file

	cfg.Debug, cfg.DebugTracking = *debugFlag, *debugTracking
	cfg.Profile, cfg.StartFeed, cfg.NoWeb, cfg.FrameInterval = *profile, *startFeed, *noWeb, *frameMs
	if *device != "" {
		cfg.File.Feed.Device = *device
	}
	if *backend != "" {
		cfg.File.Detection.Backend = *backend
	}
	if *models != "" {
		cfg.File.ModelsDir = *models
	}

	// Environment first, then the explicit flag wins.
	cfg.File.ApplyEnv()
	if *port != "" {
		cfg.File.Port = *port
	}
	if *debugFlag {
		cfg.File.LogLevel = "debug"
	}
	return cfg
}
