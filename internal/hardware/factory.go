// Package hardware builds the joint output selected in the configuration.
package hardware

import (
	"fmt"

	"roboarm/internal/core"
	"roboarm/internal/hardware/comm"
	"roboarm/internal/hardware/protocols/modbus"
	"roboarm/internal/hardware/protocols/serial"
	"roboarm/pkg/types"
)

// ErrNotConnected is returned by sinks written before Connect.
var ErrNotConnected = comm.ErrNotConnected

const (
	ProtocolNone   = "none"
	ProtocolModbus = "modbus"
	ProtocolSerial = "serial"
)

// NewJointSink returns the sink for config.Protocol, or nil when joint output
// is disabled. Device sinks are wrapped in an AsyncSink so a slow or dead
// device never stalls the frame loop.
func NewJointSink(config types.OutputConfig) (core.JointSink, error) {
	switch config.Protocol {
	case "", ProtocolNone:
		return nil, nil
	case ProtocolModbus:
		if config.Modbus.Type != "tcp" && config.Modbus.Type != "rtu" {
			return nil, fmt.Errorf("unsupported Modbus type: %s", config.Modbus.Type)
		}
		return NewAsyncSink(modbus.NewSink(config.Modbus)), nil
	case ProtocolSerial:
		if config.Serial.PortName == "" {
			return nil, fmt.Errorf("serial output requires a port name")
		}
		return NewAsyncSink(serial.NewSink(config.Serial)), nil
	default:
		return nil, fmt.Errorf("unsupported output protocol: %s", config.Protocol)
	}
}
