// Package types defines the data structures shared across the arm system:
// plane geometry, arm configuration, solved poses, per-frame snapshots, IPC
// messages and the system configuration tree loaded from YAML.
package types

import (
	"fmt"
	"time"

	"roboarm/internal/logging"
)

// Point2D is a position in render space.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point2D) Add(q Point2D) Point2D { return Point2D{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point2D) Sub(q Point2D) Point2D { return Point2D{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point2D) Scale(k float64) Point2D {
	return Point2D{X: p.X * k, Y: p.Y * k}
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// ArmConfig describes the two-link arm. Both links share SegmentLength.
type ArmConfig struct {
	SegmentLength float64 `yaml:"segment_length" json:"segment_length"`
	Width         float64 `yaml:"width" json:"width"` // render only
	Shoulder      Point2D `yaml:"shoulder" json:"shoulder"`
}

type Mode int

const (
	ModeIdle Mode = iota
	ModePlaying
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePlaying:
		return "playing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*m = ModeIdle
	case "playing":
		*m = ModePlaying
	default:
		return fmt.Errorf("unknown mode %q", string(text))
	}
	return nil
}

// Pose is the solved joint state for one frame. Angles are absolute world
// angles in radians: ShoulderAngle for the first link, ElbowAngle for the
// second.
type Pose struct {
	ShoulderAngle float64 `json:"shoulder_angle"`
	ElbowAngle    float64 `json:"elbow_angle"`
	Elbow         Point2D `json:"elbow"`
	Effector      Point2D `json:"effector"`
	Clamped       bool    `json:"clamped"`
}

// Frame is the immutable output of one tick.
type Frame struct {
	Seq       uint64    `json:"seq"`
	Mode      Mode      `json:"mode"`
	Target    Point2D   `json:"target"`
	Pointer   Point2D   `json:"pointer"`
	Pose      Pose      `json:"pose"`
	Waypoints []Point2D `json:"waypoints"`
	Segment   int       `json:"segment"`
	DT        float64   `json:"dt"`
}

type IPCMessage struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Target    string                 `json:"target"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id"`
}

type SystemConfig struct {
	FrameInterval  time.Duration  `yaml:"frame_interval"`
	EventQueueSize int            `yaml:"event_queue_size"`
	Arm            ArmConfig      `yaml:"arm"`
	Playback       PlaybackConfig `yaml:"playback"`
	Window         WindowConfig   `yaml:"window"`
	Logging        logging.Config `yaml:"logging"`
	IPC            IPCConfig      `yaml:"ipc"`
	HTTP           HTTPConfig     `yaml:"http"`
	Output         OutputConfig   `yaml:"output"`
}

type PlaybackConfig struct {
	AnimSpeed    float64 `yaml:"anim_speed"`    // base speed, units per second
	SegmentBoost float64 `yaml:"segment_boost"` // extra speed per unit of segment length
	// WaypointCapacity <= 0 means unbounded recording.
	WaypointCapacity int `yaml:"waypoint_capacity"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type IPCConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"`
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	BufferSize     int           `yaml:"buffer_size"`
	BroadcastEvery int           `yaml:"broadcast_every"` // frames between telemetry broadcasts
}

type HTTPConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// OutputConfig selects where solved joint angles are sent.
type OutputConfig struct {
	Protocol string       `yaml:"protocol"` // none, modbus, serial
	Every    int          `yaml:"every"`    // write every N frames
	Modbus   ModbusConfig `yaml:"modbus"`
	Serial   SerialConfig `yaml:"serial"`
}

type ModbusConfig struct {
	Type          string        `yaml:"type"`    // "tcp", "rtu"
	Address       string        `yaml:"address"` // host or serial device
	Port          int           `yaml:"port"`
	BaudRate      int           `yaml:"baud_rate"`
	DataBits      int           `yaml:"data_bits"`
	StopBits      int           `yaml:"stop_bits"`
	Parity        string        `yaml:"parity"`
	SlaveID       byte          `yaml:"slave_id"`
	StartRegister uint16        `yaml:"start_register"`
	Timeout       time.Duration `yaml:"timeout"`
}

type SerialConfig struct {
	PortName    string `yaml:"port_name"` // e.g. "/dev/ttyUSB0", "COM1"
	BaudRate    int    `yaml:"baud_rate"`
	DataBits    int    `yaml:"data_bits"`
	StopBits    int    `yaml:"stop_bits"`
	Parity      string `yaml:"parity"` // "N", "E", "O"
	FlowControl bool   `yaml:"flow_control"`
}
