package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingModule struct {
	mu      sync.Mutex
	started bool
	stopped bool
	dts     []time.Duration
	ticks   chan struct{}
}

func newRecordingModule() *recordingModule {
	return &recordingModule{ticks: make(chan struct{}, 64)}
}

func (m *recordingModule) Name() string { return "recording" }

func (m *recordingModule) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *recordingModule) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *recordingModule) Process(dt time.Duration) error {
	m.mu.Lock()
	m.dts = append(m.dts, dt)
	m.mu.Unlock()
	select {
	case m.ticks <- struct{}{}:
	default:
	}
	return nil
}

func (m *recordingModule) Status() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dts)
}

func TestEventLoopPassesFrameDelta(t *testing.T) {
	el := NewEventLoop(5 * time.Millisecond)
	mod := newRecordingModule()
	if err := el.RegisterModule("recording", mod); err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}
	if err := el.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 4; i++ {
		select {
		case <-mod.ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
	if err := el.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mod.mu.Lock()
	defer mod.mu.Unlock()
	if !mod.started || !mod.stopped {
		t.Fatalf("module lifecycle: started=%v stopped=%v", mod.started, mod.stopped)
	}
	if mod.dts[0] != 0 {
		t.Fatalf("first frame dt = %v, want 0", mod.dts[0])
	}
	for i, dt := range mod.dts[1:] {
		if dt <= 0 {
			t.Fatalf("frame %d dt = %v, want > 0", i+1, dt)
		}
	}
}

func TestEventLoopDeltaExcludesFrameWork(t *testing.T) {
	el := NewEventLoop(time.Millisecond)
	mod := newRecordingModule()
	_ = el.RegisterModule("recording", mod)

	base := time.Unix(1000, 0)
	// start/end pairs for two frames
	clock := []time.Time{
		base,
		base.Add(4 * time.Millisecond),
		base.Add(10 * time.Millisecond),
		base.Add(12 * time.Millisecond),
	}
	el.now = func() time.Time {
		now := clock[0]
		clock = clock[1:]
		return now
	}

	el.processCycle()
	el.processCycle()

	if len(mod.dts) != 2 {
		t.Fatalf("got %d frames, want 2", len(mod.dts))
	}
	if mod.dts[1] != 6*time.Millisecond {
		t.Fatalf("second frame dt = %v, want 6ms", mod.dts[1])
	}
}

func TestEventLoopRegistration(t *testing.T) {
	el := NewEventLoop(time.Second)
	mod := newRecordingModule()

	if err := el.RegisterModule("a", mod); err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}
	if err := el.RegisterModule("a", mod); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if got := el.GetModuleStatus()["a"]; got != 0 {
		t.Fatalf("status = %v, want 0", got)
	}
	if err := el.UnregisterModule("a"); err != nil {
		t.Fatalf("UnregisterModule: %v", err)
	}
	if err := el.UnregisterModule("a"); err == nil {
		t.Fatalf("unregistering a missing module succeeded")
	}
	if err := el.Stop(); err == nil {
		t.Fatalf("stopping an idle loop succeeded")
	}
}
