// Command roboarm opens a window with a two-link arm that follows the mouse.
// Clicking records waypoints; playback moves the arm through them.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"roboarm/internal/logging"
	"roboarm/internal/management"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		logLevel   = flag.String("log-level", "", "Override the configured log level")
		noServers  = flag.Bool("no-servers", false, "Disable the IPC and HTTP servers")
	)
	flag.Parse()

	if err := run(*configPath, *logLevel, *noServers); err != nil {
		fmt.Fprintf(os.Stderr, "roboarm: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string, noServers bool) error {
	configManager, fromFile, err := management.LoadConfig(configPath, false)
	if err != nil {
		return err
	}
	cfg := configManager.GetConfig()

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logManager, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	defer logManager.Close()
	logger := logging.GetLogger("roboarm")

	if noServers {
		cfg.IPC.Enabled = false
		cfg.HTTP.Enabled = false
	}

	infra, err := management.NewInfrastructureManager(configManager, cfg, fromFile)
	if err != nil {
		return err
	}
	app, err := management.NewApplicationManager(infra, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := infra.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := infra.Stop(); err != nil {
			logger.Error("Infrastructure shutdown failed", "error", err)
		}
	}()

	if err := app.StartExternal(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(); err != nil {
			logger.Error("Controller shutdown failed", "error", err)
		}
	}()

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetTPS(ticksPerSecond(cfg.FrameInterval))

	logger.Info("Window opened",
		"width", cfg.Window.Width,
		"height", cfg.Window.Height,
		"segment_length", cfg.Arm.SegmentLength)

	if err := ebiten.RunGame(NewGame(app.GetController(), cfg.Window)); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	logger.Info("Window closed")
	return nil
}

func ticksPerSecond(interval time.Duration) int {
	if interval <= 0 {
		return ebiten.DefaultTPS
	}
	return int(math.Max(1, math.Round(float64(time.Second)/float64(interval))))
}
