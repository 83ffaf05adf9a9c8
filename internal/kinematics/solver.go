// Package kinematics solves the equal-length two-link planar arm in closed
// form. Everything here is pure and safe to call from any goroutine.
package kinematics

import (
	"math"

	"roboarm/pkg/types"
)

// Distance is the Euclidean distance between a and b.
func Distance(a, b types.Point2D) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// DistanceSquared avoids the square root for comparisons.
func DistanceSquared(a, b types.Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}

// Bearing returns the absolute angle from one point to another, or 0 when the
// points coincide.
func Bearing(from, to types.Point2D) float64 {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx)
}

// Reach is the farthest distance the end effector can be from the shoulder.
func Reach(cfg types.ArmConfig) float64 {
	return 2 * cfg.SegmentLength
}

// Solve computes the pose that puts the end effector on target.
//
// The elbow interior angle comes from the law of cosines for the isosceles
// triangle (shoulder, elbow, target). Its cosine is clamped to [-1, 1], so an
// unreachable target yields the fully extended arm along the target bearing
// with Clamped set. A target on the shoulder folds the arm back at bearing 0.
//
// The elbow always sits on the positive-angle side of the shoulder-target
// axis: the half base angle is added to the bearing.
func Solve(cfg types.ArmConfig, target types.Point2D) types.Pose {
	l := cfg.SegmentLength
	d2 := DistanceSquared(cfg.Shoulder, target)

	cosBeta := (d2 - 2*l*l) / (-2 * l * l)
	clamped := false
	if cosBeta < -1 {
		cosBeta = -1
		clamped = true
	} else if cosBeta > 1 {
		cosBeta = 1
	}
	if math.IsNaN(cosBeta) {
		// zero-length links
		cosBeta = 1
	}

	beta := math.Acos(cosBeta)
	a := (math.Pi - beta) / 2
	bearing := Bearing(cfg.Shoulder, target)

	shoulder := a + bearing
	elbow := beta + shoulder - math.Pi

	elbowPos := cfg.Shoulder.Add(polar(l, shoulder))
	return types.Pose{
		ShoulderAngle: shoulder,
		ElbowAngle:    elbow,
		Elbow:         elbowPos,
		Effector:      elbowPos.Add(polar(l, elbow)),
		Clamped:       clamped,
	}
}

// EndEffector runs the forward kinematics of a pose.
func EndEffector(cfg types.ArmConfig, pose types.Pose) types.Point2D {
	elbow := cfg.Shoulder.Add(polar(cfg.SegmentLength, pose.ShoulderAngle))
	return elbow.Add(polar(cfg.SegmentLength, pose.ElbowAngle))
}

func polar(r, theta float64) types.Point2D {
	return types.Point2D{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}
