package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/jacobsa/go-serial/serial"

	"roboarm/internal/hardware/comm"
	"roboarm/pkg/types"
)

type fakePort struct {
	bytes.Buffer
	closed bool
	err    error
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func testConfig() types.SerialConfig {
	return types.SerialConfig{
		PortName:    "/dev/ttyTEST",
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "E",
		FlowControl: true,
	}
}

func TestOptions(t *testing.T) {
	o := Options(testConfig())
	if o.PortName != "/dev/ttyTEST" || o.BaudRate != 115200 || o.DataBits != 8 || o.StopBits != 1 {
		t.Fatalf("options = %+v", o)
	}
	if o.ParityMode != serial.PARITY_EVEN || !o.RTSCTSFlowControl {
		t.Fatalf("parity/flow = %v/%v", o.ParityMode, o.RTSCTSFlowControl)
	}

	cfg := testConfig()
	cfg.Parity = "x"
	if Options(cfg).ParityMode != serial.PARITY_NONE {
		t.Fatalf("unknown parity not mapped to none")
	}
}

func TestWriteJoints(t *testing.T) {
	port := &fakePort{}
	var opened serial.OpenOptions
	sink := NewSinkWithOpener(testConfig(), func(o serial.OpenOptions) (io.ReadWriteCloser, error) {
		opened = o
		return port, nil
	})

	pose := types.Pose{ShoulderAngle: math.Pi / 2, ElbowAngle: -math.Pi / 2}
	if err := sink.WriteJoints(context.Background(), pose); !errors.Is(err, comm.ErrNotConnected) {
		t.Fatalf("write before connect: err = %v", err)
	}

	if err := sink.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if opened.PortName != "/dev/ttyTEST" || !sink.IsConnected() {
		t.Fatalf("port not opened: %+v", opened)
	}

	if err := sink.WriteJoints(context.Background(), pose); err != nil {
		t.Fatalf("WriteJoints: %v", err)
	}
	if got := port.String(); got != "J 9000 27000\n" {
		t.Fatalf("wrote %q", got)
	}

	port.err = errors.New("unplugged")
	if err := sink.WriteJoints(context.Background(), pose); err == nil {
		t.Fatalf("write error not returned")
	}
	if writes, failures := sink.Stats(); writes != 1 || failures != 1 {
		t.Fatalf("stats = %d/%d, want 1/1", writes, failures)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !port.closed || sink.IsConnected() {
		t.Fatalf("port not closed")
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	sink := NewSinkWithOpener(testConfig(), func(serial.OpenOptions) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	})
	if err := sink.Connect(context.Background()); err == nil {
		t.Fatalf("Connect succeeded")
	}
	if sink.GetStatus() != comm.StatusError || sink.GetLastError() == nil {
		t.Fatalf("status = %v", sink.GetStatus())
	}
}
