package hardware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roboarm/pkg/types"
)

type stallingSink struct {
	started    chan struct{}
	release    chan struct{}
	connectErr error

	mu      sync.Mutex
	written []types.Pose
	closed  bool
}

func newStallingSink() *stallingSink {
	return &stallingSink{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (s *stallingSink) Name() string                      { return "stalling" }
func (s *stallingSink) Connect(ctx context.Context) error { return s.connectErr }

func (s *stallingSink) WriteJoints(ctx context.Context, pose types.Pose) error {
	s.started <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.written = append(s.written, pose)
	s.mu.Unlock()
	return nil
}

func (s *stallingSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stallingSink) poses() []types.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Pose(nil), s.written...)
}

func TestAsyncSinkDoesNotBlockOnStalledDevice(t *testing.T) {
	dev := newStallingSink()
	sink := NewAsyncSink(dev)

	if err := sink.WriteJoints(context.Background(), types.Pose{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("write before connect: err = %v, want %v", err, ErrNotConnected)
	}
	if err := sink.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	first := types.Pose{ShoulderAngle: 0.1}
	if err := sink.WriteJoints(context.Background(), first); err != nil {
		t.Fatalf("WriteJoints: %v", err)
	}
	select {
	case <-dev.started:
	case <-time.After(time.Second):
		t.Fatalf("device never received the first pose")
	}

	// The device is stuck on the first pose; further frames must not wait.
	done := make(chan struct{})
	go func() {
		for i := 2; i <= 10; i++ {
			sink.WriteJoints(context.Background(), types.Pose{ShoulderAngle: float64(i) / 10})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("WriteJoints blocked on a stalled device")
	}
	if replaced, _ := sink.Stats(); replaced != 8 {
		t.Fatalf("replaced = %d, want 8", replaced)
	}

	close(dev.release)
	deadline := time.Now().Add(time.Second)
	for len(dev.poses()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := dev.poses()
	if len(got) != 2 || got[0] != first || got[1].ShoulderAngle != 1.0 {
		t.Fatalf("device got %+v, want the first and the newest pose", got)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !dev.closed {
		t.Fatalf("device not closed")
	}
	if err := sink.WriteJoints(context.Background(), first); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("write after close: err = %v", err)
	}
}

func TestAsyncSinkConnectError(t *testing.T) {
	dev := newStallingSink()
	dev.connectErr = errors.New("no device")
	sink := NewAsyncSink(dev)

	if err := sink.Connect(context.Background()); !errors.Is(err, dev.connectErr) {
		t.Fatalf("Connect err = %v, want %v", err, dev.connectErr)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
