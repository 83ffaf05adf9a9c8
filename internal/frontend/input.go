// Package frontend holds the window-independent half of the interactive
// program: mapping raw input to arm events, wall-clock frame timing and the
// geometry to draw for a frame.
package frontend

import (
	"time"

	"roboarm/internal/core"
	"roboarm/pkg/types"
)

// Input is the raw input of one frame. The buttons are edge-triggered: true
// only on the frame they went down.
type Input struct {
	Cursor types.Point2D
	Record bool
	Play   bool
	Reset  bool
	Quit   bool
}

// Mapper turns per-frame input into events. The pointer event comes first so
// a record on the same frame captures the new cursor position.
type Mapper struct {
	source string
	last   types.Point2D
	seen   bool
}

// NewMapper tags events with source.
func NewMapper(source string) *Mapper {
	return &Mapper{source: source}
}

// Events returns the events for one frame of input, in the order they apply.
func (m *Mapper) Events(in Input) []core.Event {
	var events []core.Event

	if !m.seen || in.Cursor != m.last {
		events = append(events, core.NewPointerEvent(m.source, in.Cursor))
		m.last = in.Cursor
		m.seen = true
	}
	if in.Record {
		events = append(events, core.NewRecordEvent(m.source))
	}
	if in.Play {
		events = append(events, core.NewPlaybackEvent(m.source))
	}
	if in.Reset {
		events = append(events, core.NewResetEvent(m.source))
	}
	return events
}

// Clock measures dt for a caller-driven frame loop: the time from the end of
// the previous frame to the start of the current one.
type Clock struct {
	now     func() time.Time
	lastEnd time.Time
}

// NewClock measures frame deltas.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Begin returns dt in seconds. The first frame gets 0.
func (c *Clock) Begin() float64 {
	if c.lastEnd.IsZero() {
		return 0
	}
	dt := c.now().Sub(c.lastEnd).Seconds()
	if dt < 0 {
		return 0
	}
	return dt
}

// End marks the end of the frame's work.
func (c *Clock) End() {
	c.lastEnd = c.now()
}
