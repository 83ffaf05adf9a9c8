package core

import (
	"context"
	"time"

	"roboarm/pkg/types"
)

// Module is stepped once per frame by the EventLoop.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Process(dt time.Duration) error
	Status() interface{}
}

// JointSink receives solved poses, typically a servo controller.
type JointSink interface {
	Name() string
	Connect(ctx context.Context) error
	WriteJoints(ctx context.Context, pose types.Pose) error
	Close() error
}

// FrameListener observes every published frame. It runs on the frame loop
// and must not block.
type FrameListener func(frame *types.Frame)
