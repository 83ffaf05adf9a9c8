package management

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"roboarm/internal/arm"
	"roboarm/internal/config"
	"roboarm/internal/core"
	"roboarm/internal/hardware"
	"roboarm/internal/httpapi"
	"roboarm/internal/ipc"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

// InfrastructureManager owns everything around the arm controller: the
// configuration, the IPC and HTTP servers and the joint output. Disabled
// components stay nil.
type InfrastructureManager struct {
	configManager *config.ConfigManager
	config        types.SystemConfig
	ipcServer     *ipc.IPCServer
	httpServer    *httpapi.Server
	jointSink     core.JointSink
	watchConfig   bool
	logger        *logging.Logger
}

// LoadConfig loads configPath. When the file does not exist the defaults are
// used, and written to configPath if createMissing is set. A file that exists
// but fails to parse or validate is an error and is left untouched.
func LoadConfig(configPath string, createMissing bool) (*config.ConfigManager, bool, error) {
	cm := config.NewConfigManager(configPath)
	err := cm.LoadConfig("")
	if err == nil {
		return cm, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}

	logger := logging.GetLogger("infrastructure")
	logger.Warn("Config file not found", "path", configPath)
	if !createMissing {
		logger.Info("Using built-in defaults")
		return cm, false, nil
	}

	logger.Info("Creating default configuration", "path", configPath)
	if err := cm.CreateDefaultConfig(); err != nil {
		return nil, false, fmt.Errorf("failed to create default config: %w", err)
	}
	return cm, true, nil
}

// NewInfrastructureManager builds the components enabled in cfg, the
// effective configuration after command-line overrides. watchConfig polls the
// file behind configManager for changes.
func NewInfrastructureManager(configManager *config.ConfigManager, cfg types.SystemConfig, watchConfig bool) (*InfrastructureManager, error) {
	im := &InfrastructureManager{
		configManager: configManager,
		config:        cfg,
		watchConfig:   watchConfig,
		logger:        logging.GetLogger("infrastructure"),
	}

	sink, err := hardware.NewJointSink(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create joint output: %w", err)
	}
	im.jointSink = sink

	if cfg.IPC.Enabled {
		im.ipcServer = ipc.NewIPCServer(cfg.IPC)
	}
	return im, nil
}

// Attach wires the controller into the joint output and the servers. It must
// be called before Start.
func (im *InfrastructureManager) Attach(controller *arm.Controller) {
	cfg := im.config

	if im.jointSink != nil {
		controller.AddSink(im.jointSink)
	}
	if im.ipcServer != nil {
		bridge := ipc.NewBridge(im.ipcServer, controller, cfg.IPC.BroadcastEvery)
		controller.AddFrameListener(bridge.OnFrame)
	}
	if cfg.HTTP.Enabled {
		im.httpServer = httpapi.NewServer(cfg.HTTP, controller)
	}
}

func (im *InfrastructureManager) GetConfigManager() *config.ConfigManager {
	return im.configManager
}

func (im *InfrastructureManager) GetIPCServer() *ipc.IPCServer {
	return im.ipcServer
}

func (im *InfrastructureManager) GetHTTPServer() *httpapi.Server {
	return im.httpServer
}

func (im *InfrastructureManager) GetJointSink() core.JointSink {
	return im.jointSink
}

func (im *InfrastructureManager) GetSystemConfig() types.SystemConfig {
	return im.config
}

// Start brings up the IPC and HTTP servers and the config watcher.
func (im *InfrastructureManager) Start(ctx context.Context) error {
	im.logger.Info("Starting infrastructure layer")

	if im.ipcServer != nil {
		if err := im.ipcServer.Start(); err != nil {
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
	}

	if im.httpServer != nil {
		go func() {
			if err := im.httpServer.Listen(); err != nil {
				im.logger.Error("HTTP API stopped", "error", err)
			}
		}()
	}

	if im.watchConfig {
		if err := im.configManager.StartWatching(ctx); err != nil {
			im.logger.Warn("Failed to start config watcher", "error", err)
		}
	}

	im.logger.Info("Infrastructure layer started successfully")
	return nil
}

// Stop shuts down in reverse start order. The joint sink is closed by the
// controller that owns it.
func (im *InfrastructureManager) Stop() error {
	im.logger.Info("Stopping infrastructure layer")

	var errs []error

	if im.watchConfig {
		if err := im.configManager.StopWatching(); err != nil {
			errs = append(errs, fmt.Errorf("config watcher stop error: %w", err))
		}
	}

	if im.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := im.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server stop error: %w", err))
		}
		cancel()
	}

	if im.ipcServer != nil {
		if err := im.ipcServer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("IPC server stop error: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	im.logger.Info("Infrastructure layer stopped successfully")
	return nil
}

// WatchConfigChanges calls callback with every reloaded configuration.
func (im *InfrastructureManager) WatchConfigChanges(callback func(types.SystemConfig)) {
	if err := im.configManager.WatchChanges(func(cfg types.SystemConfig) {
		im.logger.Info("Configuration changed, updating system")
		callback(cfg)
	}); err != nil {
		im.logger.Warn("Failed to register config watcher", "error", err)
	}
}
