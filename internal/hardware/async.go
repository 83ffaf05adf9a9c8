package hardware

import (
	"context"
	"sync"
	"sync/atomic"

	"roboarm/internal/core"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

// AsyncSink moves device writes off the frame loop. It holds at most one
// pending pose; a pose submitted while the device is still busy replaces the
// pending one, so the device always receives the newest pose.
type AsyncSink struct {
	sink    core.JointSink
	pending chan types.Pose

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	replaced atomic.Uint64
	failed   atomic.Uint64
	logger   *logging.Logger
}

// NewAsyncSink wraps sink. Writes are queued once Connect succeeds.
func NewAsyncSink(sink core.JointSink) *AsyncSink {
	return &AsyncSink{
		sink:    sink,
		pending: make(chan types.Pose, 1),
		logger:  logging.GetLogger("joint_output").With("sink", sink.Name()),
	}
}

func (a *AsyncSink) Name() string { return a.sink.Name() }

// Unwrap returns the device sink.
func (a *AsyncSink) Unwrap() core.JointSink { return a.sink }

// Connect connects the device synchronously and starts the writer.
func (a *AsyncSink) Connect(ctx context.Context) error {
	if err := a.sink.Connect(ctx); err != nil {
		return err
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.running.Store(true)
	a.wg.Add(1)
	go a.writeLoop()
	return nil
}

// WriteJoints queues pose and returns immediately.
func (a *AsyncSink) WriteJoints(ctx context.Context, pose types.Pose) error {
	if !a.running.Load() {
		return ErrNotConnected
	}
	for {
		select {
		case a.pending <- pose:
			return nil
		default:
		}
		// only the frame loop sends, so the slot frees up after one receive
		select {
		case <-a.pending:
			a.replaced.Add(1)
		default:
		}
	}
}

func (a *AsyncSink) writeLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case pose := <-a.pending:
			if err := a.sink.WriteJoints(a.ctx, pose); err != nil {
				a.failed.Add(1)
				a.logger.Debug("Joint write failed", "error", err)
			}
		}
	}
}

// Stats reports poses replaced before they were written and failed writes.
func (a *AsyncSink) Stats() (replaced, failed uint64) {
	return a.replaced.Load(), a.failed.Load()
}

// Close stops the writer, then closes the device.
func (a *AsyncSink) Close() error {
	if a.running.Swap(false) {
		a.cancel()
		a.wg.Wait()
	}
	return a.sink.Close()
}
