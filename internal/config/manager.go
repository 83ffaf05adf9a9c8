// Package config loads the YAML system configuration, fills defaults,
// validates it and watches the file for changes at runtime.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"roboarm/internal/core"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultFrameInterval  = 16 * time.Millisecond
	DefaultEventQueueSize = 64
)

type ConfigManager struct {
	config       types.SystemConfig
	configPath   string
	configLock   sync.RWMutex
	watchers     []func(types.SystemConfig)
	watchersLock sync.RWMutex
	lastModified time.Time
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	watching     bool
}

// NewConfigManager starts with the defaults; call LoadConfig to read the file.
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		config:       DefaultConfig(),
		configPath:   configPath,
		pollInterval: time.Second,
	}
}

// log is resolved per call so records follow a later logging.Init.
func (cm *ConfigManager) log() *logging.Logger {
	return logging.GetLogger("config_manager")
}

// LoadConfig reads, defaults and validates the file at path (or the current
// path when empty). The previous config stays active on error.
func (cm *ConfigManager) LoadConfig(path string) error {
	cm.configLock.Lock()
	defer cm.configLock.Unlock()

	if path != "" {
		cm.configPath = path
	}

	info, err := os.Stat(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return err
	}

	cm.config = config
	cm.lastModified = info.ModTime()

	cm.log().Info("Configuration loaded", "config_path", cm.configPath)
	return nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (types.SystemConfig, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return types.SystemConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return types.SystemConfig{}, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (cm *ConfigManager) Reload() error {
	return cm.LoadConfig("")
}

func (cm *ConfigManager) GetConfig() types.SystemConfig {
	cm.configLock.RLock()
	defer cm.configLock.RUnlock()
	return cm.config
}

// SetConfig validates config, writes it to the config path and notifies
// watchers.
func (cm *ConfigManager) SetConfig(config types.SystemConfig) error {
	if err := validateConfig(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	cm.configLock.Lock()
	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		cm.configLock.Unlock()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cm.config = config
	if info, err := os.Stat(cm.configPath); err == nil {
		cm.lastModified = info.ModTime()
	}
	cm.configLock.Unlock()

	cm.notifyWatchers()
	cm.log().Info("Configuration updated and saved", "config_path", cm.configPath)
	return nil
}

// WatchChanges registers a callback for reloaded or saved configurations.
func (cm *ConfigManager) WatchChanges(callback func(types.SystemConfig)) error {
	if callback == nil {
		return errors.New("callback cannot be nil")
	}

	cm.watchersLock.Lock()
	defer cm.watchersLock.Unlock()

	cm.watchers = append(cm.watchers, callback)
	return nil
}

// StartWatching polls the config file and reloads it when its modification
// time moves forward.
func (cm *ConfigManager) StartWatching(ctx context.Context) error {
	if cm.watching {
		return fmt.Errorf("config watcher is already running")
	}

	cm.ctx, cm.cancel = context.WithCancel(ctx)
	cm.watching = true

	cm.wg.Add(1)
	go cm.watchFile()

	cm.log().Info("Started watching config file", "config_path", cm.configPath)
	return nil
}

func (cm *ConfigManager) StopWatching() error {
	if !cm.watching {
		return fmt.Errorf("config watcher is not running")
	}

	cm.cancel()
	cm.wg.Wait()
	cm.watching = false

	cm.log().Info("Stopped watching config file")
	return nil
}

func (cm *ConfigManager) watchFile() {
	defer cm.wg.Done()

	ticker := time.NewTicker(cm.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.ctx.Done():
			return
		case <-ticker.C:
			cm.checkFileChanges()
		}
	}
}

func (cm *ConfigManager) checkFileChanges() bool {
	info, err := os.Stat(cm.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			cm.log().Error("Error checking config file", "error", err)
		}
		return false
	}

	cm.configLock.RLock()
	changed := info.ModTime().After(cm.lastModified)
	cm.configLock.RUnlock()
	if !changed {
		return false
	}

	cm.log().Info("Config file modified, reloading")
	if err := cm.Reload(); err != nil {
		cm.log().Error("Failed to reload config", "error", err)
		// don't retry the same broken file every poll
		cm.configLock.Lock()
		cm.lastModified = info.ModTime()
		cm.configLock.Unlock()
		return false
	}
	cm.notifyWatchers()
	return true
}

func (cm *ConfigManager) notifyWatchers() {
	cm.watchersLock.RLock()
	watchers := make([]func(types.SystemConfig), len(cm.watchers))
	copy(watchers, cm.watchers)
	cm.watchersLock.RUnlock()

	config := cm.GetConfig()
	for _, watcher := range watchers {
		go watcher(config)
	}
}

// DefaultConfig is an 800x600 window with the shoulder at its centre and all
// outputs local or disabled.
func DefaultConfig() types.SystemConfig {
	return types.SystemConfig{
		FrameInterval:  DefaultFrameInterval,
		EventQueueSize: DefaultEventQueueSize,
		Arm: types.ArmConfig{
			SegmentLength: 140,
			Width:         10,
			Shoulder:      types.Point2D{X: 400, Y: 300},
		},
		Playback: types.PlaybackConfig{
			AnimSpeed:        core.DefaultAnimSpeed,
			SegmentBoost:     core.DefaultSegmentBoost,
			WaypointCapacity: core.DefaultWaypointCapacity,
		},
		Window: types.WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "roboarm",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		IPC: types.IPCConfig{
			Enabled:        true,
			Address:        "127.0.0.1",
			Port:           18080,
			Timeout:        5 * time.Second,
			BufferSize:     256,
			BroadcastEvery: 4,
		},
		HTTP: types.HTTPConfig{
			Enabled:      true,
			Address:      "127.0.0.1:18081",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Output: types.OutputConfig{
			Protocol: "none",
			Every:    1,
			Modbus: types.ModbusConfig{
				Type:     "tcp",
				Address:  "127.0.0.1",
				Port:     502,
				BaudRate: 115200,
				DataBits: 8,
				StopBits: 1,
				Parity:   "N",
				SlaveID:  1,
				Timeout:  time.Second,
			},
			Serial: types.SerialConfig{
				PortName: "/dev/ttyUSB0",
				BaudRate: 115200,
				DataBits: 8,
				StopBits: 1,
				Parity:   "N",
			},
		},
	}
}

func validateConfig(config *types.SystemConfig) error {
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	if config.EventQueueSize <= 0 {
		config.EventQueueSize = DefaultEventQueueSize
	}
	if config.IPC.BufferSize <= 0 {
		config.IPC.BufferSize = 256
	}
	if config.IPC.Timeout <= 0 {
		config.IPC.Timeout = 5 * time.Second
	}
	if config.IPC.BroadcastEvery <= 0 {
		config.IPC.BroadcastEvery = 1
	}
	if config.Output.Every <= 0 {
		config.Output.Every = 1
	}
	if config.Output.Protocol == "" {
		config.Output.Protocol = "none"
	}
	if config.Window.Title == "" {
		config.Window.Title = "roboarm"
	}

	if config.Arm.SegmentLength <= 0 {
		return fmt.Errorf("%w: arm segment_length must be positive", ErrInvalidConfig)
	}
	if config.Arm.Width < 0 {
		return fmt.Errorf("%w: arm width must not be negative", ErrInvalidConfig)
	}
	if config.Playback.AnimSpeed < 0 {
		return fmt.Errorf("%w: playback anim_speed must not be negative", ErrInvalidConfig)
	}
	if config.Playback.SegmentBoost < 0 {
		return fmt.Errorf("%w: playback segment_boost must not be negative", ErrInvalidConfig)
	}
	if config.Playback.WaypointCapacity < 0 {
		return fmt.Errorf("%w: playback waypoint_capacity must not be negative", ErrInvalidConfig)
	}
	if config.Window.Width <= 0 || config.Window.Height <= 0 {
		return fmt.Errorf("%w: window size must be positive", ErrInvalidConfig)
	}
	// port 0 picks a free port
	if config.IPC.Enabled && (config.IPC.Port < 0 || config.IPC.Port > 65535) {
		return fmt.Errorf("%w: ipc port %d out of range", ErrInvalidConfig, config.IPC.Port)
	}
	if config.HTTP.Enabled && config.HTTP.Address == "" {
		return fmt.Errorf("%w: http address is required when http is enabled", ErrInvalidConfig)
	}

	switch config.Output.Protocol {
	case "none":
	case "modbus":
		if config.Output.Modbus.Type != "tcp" && config.Output.Modbus.Type != "rtu" {
			return fmt.Errorf("%w: unsupported modbus type %q", ErrInvalidConfig, config.Output.Modbus.Type)
		}
		if config.Output.Modbus.Address == "" {
			return fmt.Errorf("%w: modbus address is required", ErrInvalidConfig)
		}
	case "serial":
		if config.Output.Serial.PortName == "" {
			return fmt.Errorf("%w: serial port_name is required", ErrInvalidConfig)
		}
		if config.Output.Serial.BaudRate <= 0 {
			return fmt.Errorf("%w: serial baud_rate must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown output protocol %q", ErrInvalidConfig, config.Output.Protocol)
	}

	return nil
}

// CreateDefaultConfig writes the defaults to the config path.
func (cm *ConfigManager) CreateDefaultConfig() error {
	return cm.SetConfig(DefaultConfig())
}

// GetConfigPath returns the file LoadConfig and SetConfig use.
func (cm *ConfigManager) GetConfigPath() string {
	cm.configLock.RLock()
	defer cm.configLock.RUnlock()
	return cm.configPath
}

func (cm *ConfigManager) ExportConfig(path string) error {
	cm.configLock.RLock()
	data, err := yaml.Marshal(cm.config)
	cm.configLock.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	cm.log().Info("Configuration exported", "path", path)
	return nil
}
