package frontend

import (
	"fmt"

	"roboarm/pkg/types"
)

type Segment struct {
	From, To types.Point2D
}

// Scene is everything drawn for one frame, in render coordinates.
type Scene struct {
	Links     [2]Segment
	Joints    [3]types.Point2D // shoulder, elbow, effector
	LinkWidth float64
	Waypoints []types.Point2D
	Path      []Segment
	Target    types.Point2D
	Status    string
}

// BuildScene lays out everything drawn for frame f.
func BuildScene(arm types.ArmConfig, f *types.Frame, capacity int) Scene {
	s := Scene{
		Links: [2]Segment{
			{From: arm.Shoulder, To: f.Pose.Elbow},
			{From: f.Pose.Elbow, To: f.Pose.Effector},
		},
		Joints:    [3]types.Point2D{arm.Shoulder, f.Pose.Elbow, f.Pose.Effector},
		LinkWidth: arm.Width,
		Waypoints: f.Waypoints,
		Target:    f.Target,
		Status:    statusLine(f, capacity),
	}
	for i := 1; i < len(f.Waypoints); i++ {
		s.Path = append(s.Path, Segment{From: f.Waypoints[i-1], To: f.Waypoints[i]})
	}
	return s
}

func statusLine(f *types.Frame, capacity int) string {
	limit := "unbounded"
	if capacity > 0 {
		limit = fmt.Sprintf("%d", capacity)
	}
	line := fmt.Sprintf("mode: %s  waypoints: %d/%s", f.Mode, len(f.Waypoints), limit)
	if f.Mode == types.ModePlaying {
		line += fmt.Sprintf("  segment: %d", f.Segment+1)
	}
	if f.Pose.Clamped {
		line += "  (out of reach)"
	}
	return line + "\nclick/space record  p play  r reset  q quit"
}
