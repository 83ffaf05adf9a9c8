package main

import (
	"math"
	"testing"

	"roboarm/internal/kinematics"
	"roboarm/pkg/types"
)

func TestPolygonStaysInReach(t *testing.T) {
	arm := types.ArmConfig{SegmentLength: 100, Shoulder: types.Point2D{X: 400, Y: 300}}

	points := Polygon(arm, 4)
	if len(points) != 5 {
		t.Fatalf("len = %d, want 5 (closed polygon)", len(points))
	}
	if points[0] != points[4] {
		t.Fatalf("polygon not closed: %v != %v", points[0], points[4])
	}
	for _, p := range points {
		if d := kinematics.Distance(arm.Shoulder, p); math.Abs(d-150) > 1e-9 || d > kinematics.Reach(arm) {
			t.Fatalf("vertex %v at distance %v", p, d)
		}
	}
}
