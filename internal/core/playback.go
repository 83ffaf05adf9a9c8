package core

import (
	"math"

	"roboarm/internal/kinematics"
	"roboarm/pkg/types"
)

const (
	DefaultAnimSpeed        = 200.0
	DefaultSegmentBoost     = 0.5
	DefaultWaypointCapacity = 32
)

// Playback records waypoints and walks the target along them.
//
// In ModeIdle the effective target is the live pointer. In ModePlaying it is
// a point moving along the waypoint polyline in straight lines, one segment
// at a time, at AnimSpeed plus SegmentBoost times the segment length.
//
// Playback is owned by a single frame loop and is not safe for concurrent use.
type Playback struct {
	animSpeed float64
	boost     float64
	capacity  int

	waypoints []types.Point2D
	pointer   types.Point2D

	mode     types.Mode
	segment  int
	progress float64 // distance travelled along the current segment
	target   types.Point2D
}

// NewPlayback creates an idle playback with no waypoints.
func NewPlayback(cfg types.PlaybackConfig) *Playback {
	pb := &Playback{
		animSpeed: cfg.AnimSpeed,
		boost:     cfg.SegmentBoost,
		capacity:  cfg.WaypointCapacity,
	}
	if pb.capacity > 0 {
		pb.waypoints = make([]types.Point2D, 0, pb.capacity)
	}
	return pb
}

// Apply dispatches one input event.
func (pb *Playback) Apply(ev Event) {
	switch e := ev.(type) {
	case *PointerEvent:
		pb.MovePointer(e.Position)
	case *RecordEvent:
		pb.Record()
	case *PlaybackEvent:
		pb.StartPlayback()
	case *ResetEvent:
		pb.Reset()
	}
}

// Reset drops every waypoint and returns to idle.
func (pb *Playback) Reset() {
	pb.waypoints = pb.waypoints[:0]
	pb.mode = types.ModeIdle
	pb.segment = 0
	pb.progress = 0
	pb.target = types.Point2D{}
}

// RecordWaypoint appends p. Once the capacity is reached further points are
// dropped silently; callers that care compare Len with Capacity.
func (pb *Playback) RecordWaypoint(p types.Point2D) {
	if pb.capacity > 0 && len(pb.waypoints) >= pb.capacity {
		return
	}
	pb.waypoints = append(pb.waypoints, p)
}

// Record appends the current pointer position.
func (pb *Playback) Record() {
	pb.RecordWaypoint(pb.pointer)
}

// StartPlayback begins at the first waypoint. It does nothing while already
// playing or when no waypoint has been recorded.
func (pb *Playback) StartPlayback() {
	if pb.mode != types.ModeIdle || len(pb.waypoints) == 0 {
		return
	}
	pb.mode = types.ModePlaying
	pb.segment = 0
	pb.progress = 0
	pb.target = pb.waypoints[0]
}

// MovePointer tracks the pointer in every mode; it only steers the arm when
// idle.
func (pb *Playback) MovePointer(p types.Point2D) {
	pb.pointer = p
}

// Advance steps playback by dt seconds and returns the effective target for
// this frame. The frame that detects the end of the path still reports the
// final waypoint; later frames report the pointer.
func (pb *Playback) Advance(dt float64) types.Point2D {
	if pb.mode != types.ModePlaying {
		return pb.pointer
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	if pb.segment+1 >= len(pb.waypoints) {
		pb.mode = types.ModeIdle
		pb.segment = 0
		pb.progress = 0
		return pb.target
	}

	start := pb.waypoints[pb.segment]
	end := pb.waypoints[pb.segment+1]
	segLen := kinematics.Distance(start, end)

	speed := pb.animSpeed + pb.boost*segLen
	move := speed * dt

	heading := kinematics.Bearing(start, end)
	pb.target.X += move * math.Cos(heading)
	pb.target.Y += move * math.Sin(heading)

	pb.progress += move
	if pb.progress*pb.progress >= kinematics.DistanceSquared(start, end) {
		pb.progress = 0
		pb.segment++
		pb.target = end
	}
	return pb.target
}

// Target is the point the arm should reach right now.
func (pb *Playback) Target() types.Point2D {
	if pb.mode == types.ModePlaying {
		return pb.target
	}
	return pb.pointer
}

func (pb *Playback) Mode() types.Mode       { return pb.mode }
func (pb *Playback) Pointer() types.Point2D { return pb.pointer }
func (pb *Playback) Len() int               { return len(pb.waypoints) }
func (pb *Playback) Segment() int           { return pb.segment }
func (pb *Playback) Progress() float64      { return pb.progress }

// Capacity returns the waypoint limit, or 0 when unbounded.
func (pb *Playback) Capacity() int {
	if pb.capacity < 0 {
		return 0
	}
	return pb.capacity
}

// Waypoints returns a copy of the recorded path.
func (pb *Playback) Waypoints() []types.Point2D {
	out := make([]types.Point2D, len(pb.waypoints))
	copy(out, pb.waypoints)
	return out
}
