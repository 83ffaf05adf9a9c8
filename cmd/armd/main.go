// Command armd runs the arm headless: the frame loop drives the controller,
// remote clients steer it over IPC and HTTP, and solved poses go to the
// configured joint output. It shuts down gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roboarm/internal/logging"
	"roboarm/internal/management"
)

type ArmSystem struct {
	infrastructure *management.InfrastructureManager
	application    *management.ApplicationManager
	logManager     *logging.Manager
	logger         *logging.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	running        bool
}

func NewArmSystem(configPath, logLevel string) (*ArmSystem, error) {
	configManager, _, err := management.LoadConfig(configPath, true)
	if err != nil {
		return nil, err
	}
	cfg := configManager.GetConfig()
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logManager, err := logging.Init(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logging: %w", err)
	}

	infrastructure, err := management.NewInfrastructureManager(configManager, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create infrastructure manager: %w", err)
	}

	application, err := management.NewApplicationManager(infrastructure, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create application manager: %w", err)
	}

	return &ArmSystem{
		infrastructure: infrastructure,
		application:    application,
		logManager:     logManager,
		logger:         logging.GetLogger("armd"),
	}, nil
}

func (s *ArmSystem) Start() error {
	if s.running {
		return fmt.Errorf("system is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.logger.Info("Starting arm system")

	if err := s.infrastructure.Start(s.ctx); err != nil {
		return fmt.Errorf("failed to start infrastructure layer: %w", err)
	}

	if err := s.application.Start(s.ctx); err != nil {
		_ = s.infrastructure.Stop()
		return fmt.Errorf("failed to start application layer: %w", err)
	}

	s.running = true
	s.logger.Info("Arm system started")
	s.printSystemInfo()
	return nil
}

// Stop reverses Start: frame loop first, then servers and watcher.
func (s *ArmSystem) Stop() error {
	if !s.running {
		return fmt.Errorf("system is not running")
	}

	s.logger.Info("Stopping arm system", "status", s.application.Status())
	s.cancel()

	var stopErr error
	if err := s.application.Stop(); err != nil {
		s.logger.Error("Error stopping application layer", "error", err)
		stopErr = err
	}
	if err := s.infrastructure.Stop(); err != nil {
		s.logger.Error("Error stopping infrastructure layer", "error", err)
		stopErr = err
	}

	s.running = false
	s.logger.Info("Arm system stopped")
	_ = s.logManager.Close()
	return stopErr
}

func (s *ArmSystem) printSystemInfo() {
	cfg := s.infrastructure.GetSystemConfig()

	fmt.Println("==========================================")
	fmt.Println("  Arm Control Service")
	fmt.Println("==========================================")
	fmt.Printf("  Config File: %s\n", s.infrastructure.GetConfigManager().GetConfigPath())
	fmt.Printf("  Frame Interval: %v\n", cfg.FrameInterval)
	fmt.Printf("  Segment Length: %.1f (reach %.1f)\n", cfg.Arm.SegmentLength, 2*cfg.Arm.SegmentLength)
	fmt.Printf("  Shoulder: %s\n", cfg.Arm.Shoulder)
	fmt.Printf("  Waypoint Capacity: %d\n", cfg.Playback.WaypointCapacity)
	if cfg.IPC.Enabled {
		fmt.Printf("  IPC Server: %s\n", s.infrastructure.GetIPCServer().Addr())
	}
	if cfg.HTTP.Enabled {
		fmt.Printf("  HTTP API: %s\n", cfg.HTTP.Address)
	}
	if sink := s.infrastructure.GetJointSink(); sink != nil {
		fmt.Printf("  Joint Output: %s (every %d frames)\n", sink.Name(), cfg.Output.Every)
	}
	fmt.Println("==========================================")
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		logLevel   = flag.String("log-level", "", "Override the configured log level")
	)
	flag.Parse()

	system, err := NewArmSystem(*configPath, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "armd: failed to create arm system: %v\n", err)
		os.Exit(1)
	}

	if err := system.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "armd: failed to start arm system: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	system.logger.Info("Received shutdown signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan error, 1)
	go func() {
		done <- system.Stop()
	}()

	select {
	case err := <-done:
		if err != nil {
			fmt.Fprintf(os.Stderr, "armd: shutdown finished with errors: %v\n", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		fmt.Fprintln(os.Stderr, "armd: shutdown timeout reached, forcing exit")
		os.Exit(1)
	}
}
