// Package logging provides named structured loggers built on log/slog.
// Components ask for a logger by name and every record carries module=<name>.
package logging

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	defaultManager *Manager
	defaultMu      sync.Mutex
)

// Manager hands out named loggers that share one root handler and level.
type Manager struct {
	mu      sync.RWMutex
	root    *Logger
	loggers map[string]*Logger
	config  *Config
}

// NewManager creates a manager whose loggers share one handler.
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}

	root, err := NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create default logger: %w", err)
	}

	return &Manager{
		root:    root,
		loggers: map[string]*Logger{"default": root},
		config:  config,
	}, nil
}

// GetManager returns the process-wide manager, creating it with defaults on
// first use.
func GetManager() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultManager == nil {
		defaultManager, _ = NewManager(DefaultConfig())
	}
	return defaultManager
}

// Init replaces the process-wide manager. Loggers handed out earlier keep
// their old handler, so call it before building components.
func Init(config *Config) (*Manager, error) {
	m, err := NewManager(config)
	if err != nil {
		return nil, err
	}

	defaultMu.Lock()
	old := defaultManager
	defaultManager = m
	defaultMu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return m, nil
}

// GetLogger returns the logger for name, creating it on first use.
func (m *Manager) GetLogger(name string) *Logger {
	m.mu.RLock()
	logger, exists := m.loggers[name]
	m.mu.RUnlock()
	if exists {
		return logger
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if logger, exists := m.loggers[name]; exists {
		return logger
	}
	logger = m.root.With("module", name)
	m.loggers[name] = logger
	return logger
}

// UpdateConfig applies a new level to every logger. Format and output changes
// need a restart.
func (m *Manager) UpdateConfig(config *Config) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if config.Level != m.config.Level {
		m.root.UpdateLevel(config.Level)
		m.root.Info("Log level updated", "level", config.Level)

		next := *m.config
		next.Level = config.Level
		m.config = &next
	}
	return nil
}

func (m *Manager) GetLoggerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loggers))
	for name := range m.loggers {
		names = append(names, name)
	}
	return names
}

// Close releases the log file, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.Writer == nil && m.config.Output == "file" {
		if c, ok := m.root.out.(io.Closer); ok {
			return c.Close()
		}
	}
	return nil
}

// GetLogger returns a named logger from the process-wide manager.
func GetLogger(name string) *Logger {
	return GetManager().GetLogger(name)
}

func Default() *Logger {
	return GetLogger("default")
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
