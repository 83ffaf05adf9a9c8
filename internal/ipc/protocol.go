// Package ipc exchanges newline-delimited JSON messages with remote
// controllers and telemetry consumers over TCP.
package ipc

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roboarm/internal/core"
	"roboarm/pkg/types"
)

const (
	MessageTypePointer        = string(core.EventTypePointer)
	MessageTypeRecord         = string(core.EventTypeRecord)
	MessageTypePlay           = string(core.EventTypePlayback)
	MessageTypeReset          = string(core.EventTypeReset)
	MessageTypeStatusRequest  = "status_request"
	MessageTypeFrame          = "frame"
	MessageTypeStatusResponse = "status_response"
	MessageTypeErrorResponse  = "error_response"
)

var ErrUnknownMessage = errors.New("unknown message type")

// NewMessage stamps a message with a fresh ID and the current time.
func NewMessage(msgType, target string, data map[string]interface{}) types.IPCMessage {
	return types.IPCMessage{
		Type:      msgType,
		Target:    target,
		Data:      data,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
}

// DecodeEvent maps an inbound message to an input event. Pointer messages
// carry the position as numeric "x" and "y" data fields.
func DecodeEvent(msg types.IPCMessage) (core.Event, error) {
	t, ok := core.ParseEventType(msg.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}

	var pos types.Point2D
	if t == core.EventTypePointer {
		p, ok := PointFromData(msg.Data)
		if !ok {
			return nil, fmt.Errorf("pointer message requires numeric x and y")
		}
		pos = p
	}
	return core.NewEvent(t, msg.Source, pos), nil
}

// PointData encodes p the way PointFromData expects it.
func PointData(p types.Point2D) map[string]interface{} {
	return map[string]interface{}{"x": p.X, "y": p.Y}
}

// PointFromData reads an {"x", "y"} object. v is either a data map or a
// nested value decoded from JSON.
func PointFromData(v interface{}) (types.Point2D, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return types.Point2D{}, false
	}
	x, okX := number(m["x"])
	y, okY := number(m["y"])
	if !okX || !okY {
		return types.Point2D{}, false
	}
	return types.Point2D{X: x, Y: y}, true
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// FrameData flattens a frame into the payload of a "frame" message.
func FrameData(f *types.Frame) map[string]interface{} {
	return map[string]interface{}{
		"seq":            f.Seq,
		"mode":           f.Mode.String(),
		"target":         PointData(f.Target),
		"pointer":        PointData(f.Pointer),
		"elbow":          PointData(f.Pose.Elbow),
		"effector":       PointData(f.Pose.Effector),
		"shoulder_angle": f.Pose.ShoulderAngle,
		"elbow_angle":    f.Pose.ElbowAngle,
		"clamped":        f.Pose.Clamped,
		"segment":        f.Segment,
		"waypoints":      len(f.Waypoints),
	}
}

func errorData(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}
