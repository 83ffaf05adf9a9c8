package hardware

import (
	"testing"

	"roboarm/internal/hardware/protocols/modbus"
	"roboarm/internal/hardware/protocols/serial"
	"roboarm/pkg/types"
)

func TestNewJointSink(t *testing.T) {
	sink, err := NewJointSink(types.OutputConfig{Protocol: ProtocolNone})
	if err != nil || sink != nil {
		t.Fatalf("none: sink = %v err = %v", sink, err)
	}

	sink, err = NewJointSink(types.OutputConfig{
		Protocol: ProtocolModbus,
		Modbus:   types.ModbusConfig{Type: "rtu", Address: "/dev/ttyUSB1"},
	})
	if err != nil {
		t.Fatalf("modbus: %v", err)
	}
	async, ok := sink.(*AsyncSink)
	if !ok {
		t.Fatalf("modbus: got %T", sink)
	}
	if _, ok := async.Unwrap().(*modbus.Sink); !ok {
		t.Fatalf("modbus: wraps %T", async.Unwrap())
	}

	sink, err = NewJointSink(types.OutputConfig{
		Protocol: ProtocolSerial,
		Serial:   types.SerialConfig{PortName: "/dev/ttyACM0"},
	})
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	async, ok = sink.(*AsyncSink)
	if !ok {
		t.Fatalf("serial: got %T", sink)
	}
	if _, ok := async.Unwrap().(*serial.Sink); !ok || sink.Name() != "serial-/dev/ttyACM0" {
		t.Fatalf("serial: wraps %T %q", async.Unwrap(), sink.Name())
	}

	bad := []types.OutputConfig{
		{Protocol: "canbus"},
		{Protocol: ProtocolModbus, Modbus: types.ModbusConfig{Type: "ascii"}},
		{Protocol: ProtocolSerial},
	}
	for _, cfg := range bad {
		if _, err := NewJointSink(cfg); err == nil {
			t.Errorf("%+v accepted", cfg)
		}
	}
}
