// Package comm holds what every joint output shares: connection state,
// error bookkeeping and the wire encoding of joint angles.
package comm

import (
	"errors"
	"fmt"
	"math"

	"roboarm/pkg/types"
)

var ErrNotConnected = errors.New("joint sink not connected")

type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// CentiDegrees maps an angle in radians to hundredths of a degree in
// [0, 36000).
func CentiDegrees(rad float64) uint16 {
	if math.IsNaN(rad) || math.IsInf(rad, 0) {
		return 0
	}
	cd := math.Round(rad * 18000 / math.Pi)
	cd = math.Mod(cd, 36000)
	if cd < 0 {
		cd += 36000
	}
	if cd >= 36000 {
		cd = 0
	}
	return uint16(cd)
}

// JointRegisters returns the shoulder and elbow angles as two registers.
func JointRegisters(pose types.Pose) [2]uint16 {
	return [2]uint16{CentiDegrees(pose.ShoulderAngle), CentiDegrees(pose.ElbowAngle)}
}

// EncodeJoints packs the joint registers big-endian, shoulder first.
func EncodeJoints(pose types.Pose) []byte {
	regs := JointRegisters(pose)
	return []byte{
		byte(regs[0] >> 8), byte(regs[0]),
		byte(regs[1] >> 8), byte(regs[1]),
	}
}

// FormatJointLine renders the ASCII command understood by line-oriented servo
// controllers.
func FormatJointLine(pose types.Pose) string {
	regs := JointRegisters(pose)
	return fmt.Sprintf("J %d %d\n", regs[0], regs[1])
}
