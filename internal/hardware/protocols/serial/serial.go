// Package serial writes joint angles to a servo controller as text lines over
// a serial port.
package serial

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"

	"roboarm/internal/hardware/comm"
	"roboarm/pkg/types"
)

// Opener opens the port described by options. serial.Open is used unless
// overridden.
type Opener func(options serial.OpenOptions) (io.ReadWriteCloser, error)

// Sink writes one "J <shoulder> <elbow>" line per frame, both in
// centi-degrees.
type Sink struct {
	*comm.BaseSink
	config types.SerialConfig
	open   Opener
	mu     sync.Mutex
	port   io.ReadWriteCloser
}

// NewSink opens the port with go-serial on Connect.
func NewSink(config types.SerialConfig) *Sink {
	return NewSinkWithOpener(config, serial.Open)
}

func NewSinkWithOpener(config types.SerialConfig, open Opener) *Sink {
	return &Sink{
		BaseSink: comm.NewBaseSink("serial-" + config.PortName),
		config:   config,
		open:     open,
	}
}

// Options converts the configuration into go-serial open options.
func Options(config types.SerialConfig) serial.OpenOptions {
	options := serial.OpenOptions{
		PortName:          config.PortName,
		BaudRate:          uint(config.BaudRate),
		DataBits:          uint(config.DataBits),
		StopBits:          uint(config.StopBits),
		MinimumReadSize:   1,
		RTSCTSFlowControl: config.FlowControl,
	}

	switch config.Parity {
	case "E", "e":
		options.ParityMode = serial.PARITY_EVEN
	case "O", "o":
		options.ParityMode = serial.PARITY_ODD
	default:
		options.ParityMode = serial.PARITY_NONE
	}
	return options
}

// Connect opens the serial port.
func (s *Sink) Connect(ctx context.Context) error {
	s.SetStatus(comm.StatusConnecting)

	port, err := s.open(Options(s.config))
	if err != nil {
		s.SetStatus(comm.StatusError)
		return s.HandleWithError(fmt.Errorf("failed to open serial port %s: %w", s.config.PortName, err))
	}

	s.mu.Lock()
	s.port = port
	s.mu.Unlock()

	s.SetStatus(comm.StatusConnected)
	s.ClearError()
	return nil
}

func (s *Sink) WriteJoints(ctx context.Context, pose types.Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return comm.ErrNotConnected
	}

	if _, err := io.WriteString(s.port, comm.FormatJointLine(pose)); err != nil {
		return s.HandleWithError(fmt.Errorf("failed to write serial port: %w", err))
	}
	s.RecordWrite()
	s.ClearError()
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.SetStatus(comm.StatusDisconnected)
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
