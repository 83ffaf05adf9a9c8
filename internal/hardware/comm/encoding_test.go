package comm

import (
	"errors"
	"math"
	"testing"

	"roboarm/pkg/types"
)

func TestCentiDegrees(t *testing.T) {
	cases := []struct {
		rad  float64
		want uint16
	}{
		{0, 0},
		{math.Pi / 2, 9000},
		{math.Pi, 18000},
		{-math.Pi / 2, 27000},
		{2 * math.Pi, 0},
		{-2 * math.Pi, 0},
		{3 * math.Pi, 18000},
		{-0.0000001, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, c := range cases {
		if got := CentiDegrees(c.rad); got != c.want {
			t.Errorf("CentiDegrees(%v) = %d, want %d", c.rad, got, c.want)
		}
	}
}

func TestEncodeJoints(t *testing.T) {
	pose := types.Pose{ShoulderAngle: math.Pi / 2, ElbowAngle: -math.Pi / 2}

	got := EncodeJoints(pose)
	want := []byte{0x23, 0x28, 0x69, 0x78}
	if string(got) != string(want) {
		t.Fatalf("EncodeJoints = % x, want % x", got, want)
	}

	if line := FormatJointLine(pose); line != "J 9000 27000\n" {
		t.Fatalf("FormatJointLine = %q", line)
	}
}

func TestBaseSinkErrorBookkeeping(t *testing.T) {
	bs := NewBaseSink("test")
	if bs.IsConnected() || bs.GetStatus().String() != "disconnected" {
		t.Fatalf("new sink status = %v", bs.GetStatus())
	}

	bs.SetStatus(StatusConnected)
	bs.RecordWrite()

	errBus := errors.New("bus fault")
	if err := bs.HandleWithError(errBus); !errors.Is(err, errBus) {
		t.Fatalf("HandleWithError returned %v", err)
	}
	bs.HandleWithError(errBus)
	if writes, failures := bs.Stats(); writes != 1 || failures != 2 {
		t.Fatalf("stats = %d/%d, want 1/2", writes, failures)
	}
	if bs.GetLastError() == nil {
		t.Fatalf("last error not kept")
	}

	bs.ClearError()
	if bs.GetLastError() != nil {
		t.Fatalf("last error not cleared")
	}
	if ConnectionStatus(9).String() != "status(9)" {
		t.Fatalf("unknown status string = %q", ConnectionStatus(9).String())
	}
}
