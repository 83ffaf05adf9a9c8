// Package arm runs the per-frame update of the two-link arm: it applies
// queued input events to the playback state machine, solves the pose for the
// effective target and publishes the result as an immutable frame.
package arm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"roboarm/internal/core"
	"roboarm/internal/kinematics"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

// Controller implements core.Module. Submit, Frame and Status may be called
// from any goroutine; everything else belongs to the frame loop.
type Controller struct {
	arm      types.ArmConfig
	playback *core.Playback
	events   chan core.Event

	frame   atomic.Pointer[types.Frame]
	seq     uint64
	dropped atomic.Uint64

	mu        sync.RWMutex
	sinks     []core.JointSink
	sinkEvery uint64
	listeners []core.FrameListener

	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger
}

// NewController creates a controller and publishes the rest pose as frame 0.
func NewController(cfg types.SystemConfig) *Controller {
	queueSize := cfg.EventQueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	every := cfg.Output.Every
	if every <= 0 {
		every = 1
	}

	c := &Controller{
		arm:       cfg.Arm,
		playback:  core.NewPlayback(cfg.Playback),
		events:    make(chan core.Event, queueSize),
		sinkEvery: uint64(every),
		ctx:       context.Background(),
		logger:    logging.GetLogger("arm_controller"),
	}

	// Rest pose hangs 45 degrees below the horizontal.
	c.playback.MovePointer(cfg.Arm.Shoulder.Add(types.Point2D{X: cfg.Arm.SegmentLength, Y: cfg.Arm.SegmentLength}))
	c.publish(0)
	return c
}

func (c *Controller) Name() string { return "arm_controller" }

// Arm returns the immutable arm geometry.
func (c *Controller) Arm() types.ArmConfig { return c.arm }

// AddSink registers a joint output. Sinks added before Start are connected by
// Start.
func (c *Controller) AddSink(sink core.JointSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, sink)
}

// AddFrameListener registers l for every published frame.
func (c *Controller) AddFrameListener(l core.FrameListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Start connects the joint sinks.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sink := range c.sinks {
		if err := sink.Connect(c.ctx); err != nil {
			return fmt.Errorf("failed to connect joint sink %s: %w", sink.Name(), err)
		}
		c.logger.Info("Joint sink connected", "sink", sink.Name())
	}
	return nil
}

// Stop closes the joint sinks.
func (c *Controller) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Submit queues an event for the next frame. It never blocks; when the queue
// is full the event is dropped and false is returned.
func (c *Controller) Submit(ev core.Event) bool {
	if ev == nil {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		c.dropped.Add(1)
		c.logger.Warn("Event queue full, dropping event", "type", ev.Type(), "source", ev.Source())
		return false
	}
}

// Process runs one frame. It is called by core.EventLoop.
func (c *Controller) Process(dt time.Duration) error {
	_, err := c.step(dt.Seconds())
	return err
}

// Tick runs one frame with dt in seconds and returns the published frame.
// Sink errors are logged.
func (c *Controller) Tick(dt float64) *types.Frame {
	frame, err := c.step(dt)
	if err != nil {
		c.logger.Warn("Joint output failed", "error", err)
	}
	return frame
}

func (c *Controller) step(dt float64) (*types.Frame, error) {
	before := c.playback.Mode()
	c.drainEvents()

	frame := c.publish(dt)
	if after := frame.Mode; after != before {
		c.logger.Info("Playback mode changed", "from", before, "to", after, "waypoints", len(frame.Waypoints))
	}

	c.mu.RLock()
	listeners := c.listeners
	sinks := c.sinks
	c.mu.RUnlock()

	for _, l := range listeners {
		l(frame)
	}

	if len(sinks) == 0 || frame.Seq%c.sinkEvery != 0 {
		return frame, nil
	}
	var errs []error
	for _, sink := range sinks {
		if err := sink.WriteJoints(c.ctx, frame.Pose); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return frame, errors.Join(errs...)
}

func (c *Controller) drainEvents() {
	for {
		select {
		case ev := <-c.events:
			before := c.playback.Len()
			c.playback.Apply(ev)
			if ev.Type() == core.EventTypeRecord && c.playback.Len() == before {
				c.logger.Debug("Waypoint dropped at capacity", "capacity", c.playback.Capacity())
			}
		default:
			return
		}
	}
}

// publish advances playback, solves the pose and stores the new frame.
func (c *Controller) publish(dt float64) *types.Frame {
	target := c.playback.Target()
	if c.seq > 0 {
		target = c.playback.Advance(dt)
	}

	frame := &types.Frame{
		Seq:       c.seq,
		Mode:      c.playback.Mode(),
		Target:    target,
		Pointer:   c.playback.Pointer(),
		Pose:      kinematics.Solve(c.arm, target),
		Waypoints: c.playback.Waypoints(),
		Segment:   c.playback.Segment(),
		DT:        dt,
	}
	c.seq++
	c.frame.Store(frame)
	return frame
}

// Frame returns the most recent frame. The result must not be modified.
func (c *Controller) Frame() *types.Frame {
	return c.frame.Load()
}

// Capacity returns the waypoint limit, 0 when unbounded.
func (c *Controller) Capacity() int {
	return c.playback.Capacity()
}

// Dropped counts events rejected by a full queue.
func (c *Controller) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Controller) Status() interface{} {
	f := c.Frame()
	return map[string]interface{}{
		"seq":            f.Seq,
		"mode":           f.Mode.String(),
		"waypoints":      len(f.Waypoints),
		"capacity":       c.playback.Capacity(),
		"queued_events":  len(c.events),
		"dropped_events": c.dropped.Load(),
	}
}
