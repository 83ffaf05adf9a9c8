// Command simulator is a test client for armd. It connects over IPC, records
// a regular polygon of waypoints around the shoulder, starts playback and
// logs the frames it receives until playback finishes.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roboarm/internal/config"
	"roboarm/internal/ipc"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

type Simulator struct {
	ipcClient *ipc.IPCClient
	arm       types.ArmConfig
	sides     int
	logEvery  uint64
	frames    chan types.IPCMessage
	logger    *logging.Logger
}

func NewSimulator(ipcConfig types.IPCConfig, arm types.ArmConfig, sides int, logEvery uint64) *Simulator {
	if logEvery == 0 {
		logEvery = 1
	}
	return &Simulator{
		ipcClient: ipc.NewIPCClient(ipcConfig),
		arm:       arm,
		sides:     sides,
		logEvery:  logEvery,
		frames:    make(chan types.IPCMessage, 64),
		logger:    logging.GetLogger("simulator"),
	}
}

func (s *Simulator) Start() error {
	s.ipcClient.RegisterHandler(ipc.MessageTypeStatusResponse, s.handleStatusResponse)
	s.ipcClient.RegisterHandler(ipc.MessageTypeErrorResponse, s.handleErrorResponse)
	s.ipcClient.RegisterHandler(ipc.MessageTypeFrame, s.handleFrame)

	if err := s.ipcClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect to IPC server: %w", err)
	}
	s.logger.Info("Simulator started", "client", s.ipcClient.ID())
	return nil
}

func (s *Simulator) Stop() {
	s.ipcClient.Disconnect()
	s.logger.Info("Simulator stopped")
}

// Polygon returns the vertices of a regular polygon centred on the shoulder,
// inside the arm's reach.
func Polygon(arm types.ArmConfig, sides int) []types.Point2D {
	if sides < 2 {
		sides = 2
	}
	radius := 1.5 * arm.SegmentLength
	points := make([]types.Point2D, 0, sides+1)
	for i := 0; i <= sides; i++ {
		angle := 2 * math.Pi * float64(i%sides) / float64(sides)
		points = append(points, arm.Shoulder.Add(types.Point2D{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		}))
	}
	return points
}

// Run records the polygon, plays it back and waits for the arm to return to
// idle.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.ipcClient.SendCommand(ipc.MessageTypeReset); err != nil {
		return err
	}

	points := Polygon(s.arm, s.sides)
	for _, p := range points {
		if err := s.ipcClient.SendPointer(p); err != nil {
			return err
		}
		if err := s.ipcClient.SendCommand(ipc.MessageTypeRecord); err != nil {
			return err
		}
	}
	s.logger.Info("Recorded waypoints", "count", len(points))

	if err := s.ipcClient.SendPointer(s.arm.Shoulder.Add(types.Point2D{X: s.arm.SegmentLength})); err != nil {
		return err
	}
	if err := s.ipcClient.SendCommand(ipc.MessageTypePlay); err != nil {
		return err
	}

	statusTicker := time.NewTicker(2 * time.Second)
	defer statusTicker.Stop()

	started := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statusTicker.C:
			if err := s.ipcClient.SendCommand(ipc.MessageTypeStatusRequest); err != nil {
				return err
			}
		case msg := <-s.frames:
			switch msg.Data["mode"] {
			case types.ModePlaying.String():
				started = true
			case types.ModeIdle.String():
				if started {
					s.logger.Info("Playback finished")
					return nil
				}
			}
		}
	}
}

func (s *Simulator) handleFrame(message types.IPCMessage) {
	seq, _ := message.Data["seq"].(float64)
	if uint64(seq)%s.logEvery == 0 {
		effector, _ := ipc.PointFromData(message.Data["effector"])
		s.logger.Info("Frame",
			"seq", uint64(seq),
			"mode", message.Data["mode"],
			"segment", message.Data["segment"],
			"effector", effector.String())
	}

	select {
	case s.frames <- message:
	default:
	}
}

func (s *Simulator) handleStatusResponse(message types.IPCMessage) {
	s.logger.Info("Status received", "status", message.Data)
}

func (s *Simulator) handleErrorResponse(message types.IPCMessage) {
	s.logger.Warn("Error response", "error", message.Data["error"], "request_id", message.Data["request_id"])
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		sides      = flag.Int("sides", 6, "Number of polygon sides to record")
		logEvery   = flag.Uint64("log-every", 8, "Log every n-th received frame")
		timeout    = flag.Duration("timeout", time.Minute, "Give up after this long")
	)
	flag.Parse()

	cm := config.NewConfigManager(*configPath)
	if err := cm.LoadConfig(""); err != nil {
		logging.Warn("Using default configuration", "error", err)
	}
	cfg := cm.GetConfig()

	sim := NewSimulator(cfg.IPC, cfg.Arm, *sides, *logEvery)
	if err := sim.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
	defer sim.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	if err := sim.Run(ctx); err != nil {
		logging.Error("Simulation ended early", "error", err)
	}
}
