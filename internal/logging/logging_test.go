package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNamedLoggerCarriesModule(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewManager(&Config{Level: "info", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.GetLogger("playback").Info("started", "waypoints", 3)
	out := buf.String()
	if !strings.Contains(out, "module=playback") || !strings.Contains(out, "waypoints=3") {
		t.Fatalf("unexpected output: %q", out)
	}
	if m.GetLogger("playback") != m.GetLogger("playback") {
		t.Fatalf("named loggers are not cached")
	}
}

func TestUpdateConfigChangesLevelOfExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewManager(&Config{Level: "info", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	l := m.GetLogger("solver")

	l.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug record written at info level")
	}

	if err := m.UpdateConfig(&Config{Level: "debug"}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug record missing after level change: %q", buf.String())
	}
	if l.Level() != slog.LevelDebug {
		t.Fatalf("level = %v, want debug", l.Level())
	}
	if err := m.UpdateConfig(nil); err == nil {
		t.Fatalf("nil config accepted")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.Info("dropped")
	l.Warn("kept", "port", 18080)

	line := strings.TrimSpace(buf.String())
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("output is not a single JSON record: %q", line)
	}
	if rec["msg"] != "kept" || rec["port"] != float64(18080) {
		t.Fatalf("record = %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
