// Package modbus writes joint angles to a servo controller's holding
// registers over Modbus TCP or RTU.
package modbus

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"roboarm/internal/hardware/comm"
	"roboarm/pkg/types"
)

type closer interface {
	Close() error
}

// Sink writes the shoulder and elbow registers, in centi-degrees, starting at
// StartRegister.
type Sink struct {
	*comm.BaseSink
	config  types.ModbusConfig
	mu      sync.Mutex
	client  modbus.Client
	handler closer
}

// NewSink creates an unconnected Modbus sink.
func NewSink(config types.ModbusConfig) *Sink {
	return &Sink{
		BaseSink: comm.NewBaseSink("modbus-" + config.Type),
		config:   config,
	}
}

// Connect opens the TCP or RTU handler.
func (s *Sink) Connect(ctx context.Context) error {
	s.SetStatus(comm.StatusConnecting)

	var (
		client  modbus.Client
		handler closer
		err     error
	)
	switch s.config.Type {
	case "tcp":
		client, handler, err = s.connectTCP()
	case "rtu":
		client, handler, err = s.connectRTU()
	default:
		err = fmt.Errorf("unsupported Modbus type: %s", s.config.Type)
	}
	if err != nil {
		s.SetStatus(comm.StatusError)
		return s.HandleWithError(err)
	}

	s.mu.Lock()
	s.client = client
	s.handler = handler
	s.mu.Unlock()

	s.SetStatus(comm.StatusConnected)
	s.ClearError()
	return nil
}

func (s *Sink) timeout() time.Duration {
	if s.config.Timeout > 0 {
		return s.config.Timeout
	}
	return time.Second
}

func (s *Sink) connectTCP() (modbus.Client, closer, error) {
	address := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	handler := modbus.NewTCPClientHandler(address)
	handler.Timeout = s.timeout()
	handler.SlaveId = s.config.SlaveID

	if err := handler.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect TCP Modbus %s: %w", address, err)
	}
	return modbus.NewClient(handler), handler, nil
}

func (s *Sink) connectRTU() (modbus.Client, closer, error) {
	handler := modbus.NewRTUClientHandler(s.config.Address)
	handler.BaudRate = s.config.BaudRate
	handler.DataBits = s.config.DataBits
	handler.StopBits = s.config.StopBits
	handler.Parity = s.config.Parity
	handler.SlaveId = s.config.SlaveID
	handler.Timeout = s.timeout()

	if err := handler.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect RTU Modbus %s: %w", s.config.Address, err)
	}
	return modbus.NewClient(handler), handler, nil
}

// WriteJoints writes both joint registers in one request.
func (s *Sink) WriteJoints(ctx context.Context, pose types.Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return comm.ErrNotConnected
	}

	_, err := s.client.WriteMultipleRegisters(s.config.StartRegister, 2, comm.EncodeJoints(pose))
	if err != nil {
		return s.HandleWithError(fmt.Errorf("failed to write joint registers: %w", err))
	}
	s.RecordWrite()
	s.ClearError()
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handler == nil {
		return nil
	}
	err := s.handler.Close()
	s.handler = nil
	s.client = nil
	s.SetStatus(comm.StatusDisconnected)
	if err != nil {
		return fmt.Errorf("failed to close Modbus connection: %w", err)
	}
	return nil
}
