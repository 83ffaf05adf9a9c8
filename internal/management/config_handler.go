package management

import (
	"sync"

	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

// ConfigHandler applies configuration reloads to the running system. Only the
// log level changes live; everything else is reported as needing a restart.
type ConfigHandler struct {
	mu      sync.Mutex
	current types.SystemConfig
	logger  *logging.Logger
}

// NewConfigHandler starts from the configuration the system was built with.
func NewConfigHandler(current types.SystemConfig) *ConfigHandler {
	return &ConfigHandler{
		current: current,
		logger:  logging.GetLogger("config_handler"),
	}
}

// Apply takes effect on the log level and warns about everything else.
func (ch *ConfigHandler) Apply(next types.SystemConfig) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if next.Logging.Level != ch.current.Logging.Level {
		if err := logging.GetManager().UpdateConfig(&next.Logging); err != nil {
			ch.logger.Error("Failed to update log level", "error", err)
		}
	}

	if sections := RestartRequired(ch.current, next); len(sections) > 0 {
		ch.logger.Warn("Configuration changes need a restart", "sections", sections)
	}

	// Keep the running values for restart-only sections so repeated reloads
	// keep reporting them.
	ch.current.Logging.Level = next.Logging.Level
}

// RestartRequired lists the sections of next that differ from current and
// cannot be applied to a running system.
func RestartRequired(current, next types.SystemConfig) []string {
	var sections []string
	if next.Arm != current.Arm {
		sections = append(sections, "arm")
	}
	if next.Playback != current.Playback {
		sections = append(sections, "playback")
	}
	if next.FrameInterval != current.FrameInterval || next.EventQueueSize != current.EventQueueSize {
		sections = append(sections, "frame_loop")
	}
	if next.Window != current.Window {
		sections = append(sections, "window")
	}
	if next.IPC != current.IPC {
		sections = append(sections, "ipc")
	}
	if next.HTTP != current.HTTP {
		sections = append(sections, "http")
	}
	if next.Output != current.Output {
		sections = append(sections, "output")
	}
	if next.Logging.Format != current.Logging.Format || next.Logging.Output != current.Logging.Output ||
		next.Logging.OutputPath != current.Logging.OutputPath || next.Logging.AddSource != current.Logging.AddSource {
		sections = append(sections, "logging")
	}
	return sections
}
