package management

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"roboarm/internal/config"
	"roboarm/internal/ipc"
	"roboarm/pkg/types"
)

func TestRestartRequired(t *testing.T) {
	base := config.DefaultConfig()

	next := base
	next.Logging.Level = "debug"
	if got := RestartRequired(base, next); len(got) != 0 {
		t.Fatalf("level change flagged %v", got)
	}

	next.Arm.SegmentLength = 200
	next.IPC.Port = 19000
	next.Logging.Format = "json"
	want := []string{"arm", "ipc", "logging"}
	if got := RestartRequired(base, next); !reflect.DeepEqual(got, want) {
		t.Fatalf("RestartRequired = %v, want %v", got, want)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cm, fromFile, err := LoadConfig(path, false)
	if err != nil || fromFile {
		t.Fatalf("LoadConfig = %v, %v", fromFile, err)
	}
	if cm.GetConfig().Arm != config.DefaultConfig().Arm {
		t.Fatalf("defaults not used")
	}

	cm, fromFile, err = LoadConfig(path, true)
	if err != nil || !fromFile {
		t.Fatalf("LoadConfig with create = %v, %v", fromFile, err)
	}
	if err := cm.Reload(); err != nil {
		t.Fatalf("created file does not load: %v", err)
	}
}

func TestLoadConfigKeepsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("arm:\n  segment_length: 0\nplayback:\n  anim_speed: 321\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	for _, create := range []bool{true, false} {
		cm, _, err := LoadConfig(path, create)
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Fatalf("LoadConfig(create=%v) err = %v, want %v", create, err, config.ErrInvalidConfig)
		}
		if cm != nil {
			t.Fatalf("LoadConfig(create=%v) returned a manager for a broken file", create)
		}
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("config file rewritten:\n%s", got)
	}
}

func TestSystemOverIPC(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FrameInterval = 2 * time.Millisecond
	cfg.IPC.Port = 0
	cfg.IPC.BroadcastEvery = 1
	cfg.HTTP.Enabled = false

	cm := config.NewConfigManager(filepath.Join(t.TempDir(), "unused.yaml"))
	if err := cm.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	infra, err := NewInfrastructureManager(cm, cm.GetConfig(), false)
	if err != nil {
		t.Fatalf("NewInfrastructureManager: %v", err)
	}
	app, err := NewApplicationManager(infra, cm.GetConfig())
	if err != nil {
		t.Fatalf("NewApplicationManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := infra.Start(ctx); err != nil {
		t.Fatalf("infra Start: %v", err)
	}
	defer infra.Stop()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app Start: %v", err)
	}
	defer app.Stop()

	host, port, _ := net.SplitHostPort(infra.GetIPCServer().Addr().String())
	p, _ := strconv.Atoi(port)
	client := ipc.NewIPCClient(types.IPCConfig{Address: host, Port: p, BufferSize: 64, Timeout: time.Second})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()

	target := types.Point2D{X: 450, Y: 350}
	if err := client.SendPointer(target); err != nil {
		t.Fatalf("SendPointer: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg, ok := <-client.Receive():
			if !ok {
				t.Fatalf("connection closed")
			}
			if msg.Type != ipc.MessageTypeFrame {
				continue
			}
			if p, ok := ipc.PointFromData(msg.Data["target"]); ok && p == target {
				status := app.Status()
				if status["ipc_clients"] != 1 {
					t.Fatalf("status = %v", status)
				}
				return
			}
		case <-deadline:
			t.Fatalf("no frame with the new target")
		}
	}
}
