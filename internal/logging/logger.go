package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls the log handler.
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, text
	Output     string `yaml:"output"`      // stdout, stderr, file
	OutputPath string `yaml:"output_path"` // used when output is file
	AddSource  bool   `yaml:"add_source"`

	// Writer overrides Output when set. Not read from YAML.
	Writer io.Writer `yaml:"-"`
}

// Logger wraps slog.Logger with a mutable level.
type Logger struct {
	*slog.Logger
	level  *slog.LevelVar
	out    io.Writer
	config *Config
}

// NewLogger creates a logger from config.
func NewLogger(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(config.Level))

	w, err := openWriter(config)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: slog.New(newHandler(config, w, level)),
		level:  level,
		out:    w,
		config: config,
	}, nil
}

// DefaultConfig logs text at info level to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriter(config *Config) (io.Writer, error) {
	if config.Writer != nil {
		return config.Writer, nil
	}

	switch strings.ToLower(config.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if config.OutputPath == "" {
			config.OutputPath = "logs/roboarm.log"
		}
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(config.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	default:
		return os.Stdout, nil
	}
}

func newHandler(config *Config, w io.Writer, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}
	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// With returns a logger carrying extra attributes. The level stays shared
// with the parent.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
		out:    l.out,
		config: l.config,
	}
}

func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{
		Logger: l.Logger.WithGroup(name),
		level:  l.level,
		out:    l.out,
		config: l.config,
	}
}

// UpdateLevel changes the level of this logger and every logger derived from
// it.
func (l *Logger) UpdateLevel(level string) {
	l.config.Level = level
	l.level.Set(parseLevel(level))
}

func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

func (l *Logger) GetConfig() *Config {
	return l.config
}
