package frontend

import (
	"strings"
	"testing"
	"time"

	"roboarm/internal/core"
	"roboarm/pkg/types"
)

func TestMapperEvents(t *testing.T) {
	m := NewMapper("window")

	events := m.Events(Input{Cursor: types.Point2D{X: 10, Y: 20}, Record: true})
	if len(events) != 2 || events[0].Type() != core.EventTypePointer || events[1].Type() != core.EventTypeRecord {
		t.Fatalf("first frame events = %v", events)
	}

	if events := m.Events(Input{Cursor: types.Point2D{X: 10, Y: 20}}); len(events) != 0 {
		t.Fatalf("still cursor produced %v", events)
	}

	events = m.Events(Input{Cursor: types.Point2D{X: 11, Y: 20}, Play: true, Reset: true})
	want := []core.EventType{core.EventTypePointer, core.EventTypePlayback, core.EventTypeReset}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i, ev := range events {
		if ev.Type() != want[i] || ev.Source() != "window" {
			t.Fatalf("event %d = %v/%s, want %v", i, ev.Type(), ev.Source(), want[i])
		}
	}
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	if dt := c.Begin(); dt != 0 {
		t.Fatalf("first dt = %v, want 0", dt)
	}
	now = now.Add(5 * time.Millisecond)
	c.End()

	now = now.Add(20 * time.Millisecond)
	if dt := c.Begin(); dt < 0.0199 || dt > 0.0201 {
		t.Fatalf("dt = %v, want 0.02", dt)
	}
	c.End()

	now = now.Add(-time.Second)
	if dt := c.Begin(); dt != 0 {
		t.Fatalf("dt after clock step back = %v, want 0", dt)
	}
}

func TestBuildScene(t *testing.T) {
	arm := types.ArmConfig{SegmentLength: 100, Width: 8, Shoulder: types.Point2D{X: 400, Y: 300}}
	f := &types.Frame{
		Mode:   types.ModePlaying,
		Target: types.Point2D{X: 450, Y: 300},
		Pose: types.Pose{
			Elbow:    types.Point2D{X: 425, Y: 397},
			Effector: types.Point2D{X: 450, Y: 300},
		},
		Waypoints: []types.Point2D{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
		Segment:   1,
	}

	s := BuildScene(arm, f, 32)
	if s.Links[0].From != arm.Shoulder || s.Links[0].To != f.Pose.Elbow || s.Links[1].To != f.Pose.Effector {
		t.Fatalf("links = %+v", s.Links)
	}
	if len(s.Path) != 2 || s.Path[1].From != (types.Point2D{X: 2, Y: 2}) {
		t.Fatalf("path = %+v", s.Path)
	}
	if !strings.Contains(s.Status, "waypoints: 3/32") || !strings.Contains(s.Status, "segment: 2") {
		t.Fatalf("status = %q", s.Status)
	}

	if s := BuildScene(arm, &types.Frame{}, 0); !strings.Contains(s.Status, "0/unbounded") || len(s.Path) != 0 {
		t.Fatalf("idle scene = %+v", s)
	}
}
