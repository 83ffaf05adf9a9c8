// Package management assembles the arm system from its parts and runs it:
// the infrastructure layer (config, servers, joint output) and the
// application layer (controller, frame loop, live config updates).
package management

import (
	"context"
	"fmt"

	"roboarm/internal/arm"
	"roboarm/internal/core"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

type ApplicationManager struct {
	infrastructure *InfrastructureManager
	controller     *arm.Controller
	eventLoop      *core.EventLoop
	configHandler  *ConfigHandler
	external       bool
	logger         *logging.Logger
}

// NewApplicationManager creates the controller and event loop and attaches
// them to the infrastructure.
func NewApplicationManager(infrastructure *InfrastructureManager, systemConfig types.SystemConfig) (*ApplicationManager, error) {
	am := &ApplicationManager{
		infrastructure: infrastructure,
		controller:     arm.NewController(systemConfig),
		eventLoop:      core.NewEventLoop(systemConfig.FrameInterval),
		configHandler:  NewConfigHandler(systemConfig),
		logger:         logging.GetLogger("application"),
	}

	infrastructure.Attach(am.controller)
	infrastructure.WatchConfigChanges(am.configHandler.Apply)

	if err := am.eventLoop.RegisterModule(am.controller.Name(), am.controller); err != nil {
		return nil, fmt.Errorf("failed to register controller: %w", err)
	}

	am.logger.Info("Application layer created",
		"segment_length", systemConfig.Arm.SegmentLength,
		"shoulder", systemConfig.Arm.Shoulder.String(),
		"waypoint_capacity", systemConfig.Playback.WaypointCapacity)
	return am, nil
}

func (am *ApplicationManager) GetController() *arm.Controller {
	return am.controller
}

func (am *ApplicationManager) GetEventLoop() *core.EventLoop {
	return am.eventLoop
}

// Start runs the controller on the event loop.
func (am *ApplicationManager) Start(ctx context.Context) error {
	if err := am.eventLoop.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event loop: %w", err)
	}
	return nil
}

// StartExternal starts the controller without the event loop; the caller
// drives frames with Controller.Tick.
func (am *ApplicationManager) StartExternal(ctx context.Context) error {
	am.external = true
	if err := am.controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}
	return nil
}

// Stop halts the frame loop or, for an external loop, the controller.
func (am *ApplicationManager) Stop() error {
	if am.external {
		return am.controller.Stop()
	}
	return am.eventLoop.Stop()
}

// Status summarises the running system for diagnostics.
func (am *ApplicationManager) Status() map[string]interface{} {
	status := map[string]interface{}{
		"controller": am.controller.Status(),
	}
	if !am.external {
		status["event_loop"] = am.eventLoop.GetModuleStatus()
	}
	if server := am.infrastructure.GetIPCServer(); server != nil {
		status["ipc_clients"] = server.ClientCount()
	}
	return status
}
